// Package dataurl converts between raw image bytes and RFC 2397 data URLs,
// the textual payload form carried inside webclip containers.
package dataurl

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalid is returned when a string is not a base64 data URL.
var ErrInvalid = errors.New("dataurl: not a base64 data URL")

// Encode returns "data:<mime>;base64,<payload>".
func Encode(mime string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// Decode splits a base64 data URL into its MIME type and raw bytes.
func Decode(s string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrInvalid
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalid
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrInvalid
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrInvalid, err)
	}
	return mime, data, nil
}
