package horosafe

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateSecret(t *testing.T) {
	if err := ValidateSecret([]byte("short")); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("short secret: err = %v", err)
	}
	if err := ValidateSecret(bytes.Repeat([]byte("a"), MinSecretLen)); err != nil {
		t.Errorf("valid secret: %v", err)
	}
}

func TestSafePath(t *testing.T) {
	base := filepath.FromSlash("/data/clips")
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"reading/article.inkclip", false},
		{"/absolute/is/rebased", false},
		{"../etc/passwd", true},
		{"notes/../../outside", true},
		{"", true},
		{"/", true},
	}
	for _, tt := range tests {
		got, err := SafePath(base, tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrPathTraversal) {
				t.Errorf("SafePath(%q) err = %v, want ErrPathTraversal", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("SafePath(%q): %v", tt.input, err)
			continue
		}
		if !strings.HasPrefix(got, base+string(filepath.Separator)) {
			t.Errorf("SafePath(%q) = %q escapes %q", tt.input, got, base)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"https://93.184.216.34/article", nil},
		{"ftp://93.184.216.34/data", ErrUnsafeScheme},
		{"javascript:alert(1)", ErrUnsafeScheme},
		{"http://127.0.0.1/admin", ErrSSRF},
		{"http://10.0.0.1/internal", ErrSSRF},
		{"http://192.168.1.1/api", ErrSSRF},
		{"http://[::1]/api", ErrSSRF},
		{"http://172.16.0.1/secret", ErrSSRF},
		{"http://0.0.0.0/", ErrSSRF},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if tt.want == nil {
			if err != nil {
				t.Errorf("ValidateURL(%q): %v", tt.url, err)
			}
		} else if !errors.Is(err, tt.want) {
			t.Errorf("ValidateURL(%q) err = %v, want %v", tt.url, err, tt.want)
		}
	}
	if ValidateURL("http:///nohost") == nil {
		t.Error("expected error for URL without host")
	}
}

func TestValidateIdentifier(t *testing.T) {
	if err := ValidateIdentifier("space-1_main.v2"); err != nil {
		t.Errorf("valid identifier: %v", err)
	}
	for _, bad := range []string{"../etc/passwd", "", "has spaces", strings.Repeat("a", 257)} {
		if ValidateIdentifier(bad) == nil {
			t.Errorf("ValidateIdentifier(%q) accepted", bad)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}

	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}
