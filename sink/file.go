package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/webclip/horosafe"
)

// File writes each artifact's container to <dir>/<documentPath>.inkclip.
type File struct {
	dir string
}

// NewFile creates a File sink rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// Path returns where a would be written.
func (f *File) Path(a Artifact) (string, error) {
	return horosafe.SafePath(f.dir, a.FileName())
}

func (f *File) Send(_ context.Context, a Artifact) error {
	path, err := f.Path(a)
	if err != nil {
		return fmt.Errorf("file sink: %q: %w", a.DocumentPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("file sink: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".webclip-*")
	if err != nil {
		return fmt.Errorf("file sink: create: %w", err)
	}
	if _, err := tmp.Write(a.Container); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("file sink: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file sink: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file sink: rename: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }

func (f *File) Name() string { return "file" }
