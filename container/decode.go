package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/hazyhaar/webclip/horosafe"
)

var (
	// ErrMalformedContainer marks a structural inconsistency in an artifact.
	ErrMalformedContainer = errors.New("container: malformed")
	// ErrPayloadDecode marks a slice payload that is not valid UTF-8 text.
	ErrPayloadDecode = errors.New("container: payload is not valid UTF-8")
)

// MalformedError describes where decoding stopped making sense.
type MalformedError struct {
	Offset int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("container: malformed at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedContainer }

// PayloadError identifies the slice whose payload failed to decode.
type PayloadError struct {
	Index int
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("container: slice %d: payload is not valid UTF-8", e.Index)
}

func (e *PayloadError) Unwrap() error { return ErrPayloadDecode }

// Descriptor is one entry of the slice table.
type Descriptor struct {
	Width      uint32 `json:"width"`
	Height     uint32 `json:"height"`
	DataLength uint32 `json:"data_length"`
	// Offset is the absolute byte offset of the payload in the buffer.
	Offset int `json:"offset"`
}

// Header is the artifact header plus its descriptor table.
type Header struct {
	Width       uint32       `json:"width"`
	Height      uint32       `json:"height"`
	Descriptors []Descriptor `json:"slices"`
	Size        int          `json:"size"`
}

// Inspect validates the structure of b and returns its header and
// descriptor table without copying payloads. Every payload window must lie
// inside b and the payloads must account for the rest of the buffer.
func Inspect(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, &MalformedError{Offset: 0, Reason: fmt.Sprintf("buffer of %d bytes is shorter than the %d-byte header", len(b), HeaderSize)}
	}
	be := binary.BigEndian
	h := &Header{
		Width:  be.Uint32(b[0:]),
		Height: be.Uint32(b[4:]),
		Size:   len(b),
	}
	n := uint64(be.Uint32(b[8:]))

	// Guards against absurd counts before allocating anything.
	tableEnd := uint64(HeaderSize) + n*DescriptorSize
	if tableEnd > uint64(len(b)) {
		return nil, &MalformedError{Offset: 8, Reason: fmt.Sprintf("%d slices need a %d-byte table, buffer has %d bytes", n, tableEnd, len(b))}
	}

	h.Descriptors = make([]Descriptor, n)
	pos := tableEnd
	for i := range h.Descriptors {
		off := HeaderSize + i*DescriptorSize
		d := Descriptor{
			Width:      be.Uint32(b[off:]),
			Height:     be.Uint32(b[off+4:]),
			DataLength: be.Uint32(b[off+8:]),
			Offset:     int(pos),
		}
		end := pos + uint64(d.DataLength)
		if end > uint64(len(b)) {
			return nil, &MalformedError{Offset: off + 8, Reason: fmt.Sprintf("slice %d payload [%d,%d) exceeds buffer of %d bytes", i, pos, end, len(b))}
		}
		h.Descriptors[i] = d
		pos = end
	}
	if pos != uint64(len(b)) {
		return nil, &MalformedError{Offset: int(pos), Reason: fmt.Sprintf("%d trailing bytes after last payload", uint64(len(b))-pos)}
	}
	return h, nil
}

// Decode parses an artifact. Structural problems yield an error wrapping
// ErrMalformedContainer; a non-UTF-8 payload yields one wrapping
// ErrPayloadDecode. A zero-slice artifact decodes to an empty, non-nil
// slice list.
func Decode(b []byte) (*Container, error) {
	h, err := Inspect(b)
	if err != nil {
		return nil, err
	}
	c := &Container{
		Width:  h.Width,
		Height: h.Height,
		Slices: make([]Slice, len(h.Descriptors)),
	}
	for i, d := range h.Descriptors {
		payload := b[d.Offset : d.Offset+int(d.DataLength)]
		if !utf8.Valid(payload) {
			return nil, &PayloadError{Index: i}
		}
		c.Slices[i] = Slice{Width: d.Width, Height: d.Height, Data: string(payload)}
	}
	return c, nil
}

// Write encodes c to w.
func Write(w io.Writer, c Container) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read reads at most limit bytes from r and decodes them. A limit <= 0
// uses horosafe.MaxArtifactSize.
func Read(r io.Reader, limit int64) (*Container, error) {
	if limit <= 0 {
		limit = horosafe.MaxArtifactSize
	}
	data, err := horosafe.LimitedReadAll(r, limit)
	if err != nil {
		return nil, fmt.Errorf("container: read: %w", err)
	}
	return Decode(data)
}
