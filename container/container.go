// Package container encodes an ordered sequence of image slices into the
// binary .inkclip artifact and decodes it back.
//
// Layout, all integers big-endian u32:
//
//	0            width
//	4            height
//	8            N (slice count)
//	12 + i*12    sliceWidth, sliceHeight, dataLength   (i = 0..N-1)
//	12 + N*12    N payloads back to back, dataLength bytes each
//
// Payloads are the UTF-8 bytes of each slice's encoded image (a data URL
// in practice). Slice order is positional: the format carries no index.
package container

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// Ext is the conventional file suffix of a webclip artifact.
	Ext = ".inkclip"
	// MIMEType is the media type used when uploading artifacts.
	MIMEType = "application/inkclip"

	HeaderSize     = 12
	DescriptorSize = 12
)

// Slice is one image band of the artifact.
type Slice struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	// Data is the encoded image as text, typically a data URL.
	Data string `json:"image_data_url"`
}

// Container is the full artifact: logical canvas size plus ordered slices.
type Container struct {
	Width  uint32  `json:"width"`
	Height uint32  `json:"height"`
	Slices []Slice `json:"slices"`
}

// Size returns the exact encoded length of c.
func (c Container) Size() int {
	n := HeaderSize + len(c.Slices)*DescriptorSize
	for _, s := range c.Slices {
		n += len(s.Data)
	}
	return n
}

// Encode serialises c into one contiguous buffer: header, descriptor
// table, then payloads with no padding or delimiters.
func Encode(c Container) ([]byte, error) {
	if uint64(len(c.Slices)) > math.MaxUint32 {
		return nil, fmt.Errorf("container: encode: %d slices overflow u32", len(c.Slices))
	}
	for i, s := range c.Slices {
		if uint64(len(s.Data)) > math.MaxUint32 {
			return nil, fmt.Errorf("container: encode: slice %d payload of %d bytes overflows u32", i, len(s.Data))
		}
	}

	buf := make([]byte, HeaderSize+len(c.Slices)*DescriptorSize, c.Size())
	be := binary.BigEndian
	be.PutUint32(buf[0:], c.Width)
	be.PutUint32(buf[4:], c.Height)
	be.PutUint32(buf[8:], uint32(len(c.Slices)))

	for i, s := range c.Slices {
		off := HeaderSize + i*DescriptorSize
		be.PutUint32(buf[off:], s.Width)
		be.PutUint32(buf[off+4:], s.Height)
		be.PutUint32(buf[off+8:], uint32(len(s.Data)))
	}
	for _, s := range c.Slices {
		buf = append(buf, s.Data...)
	}
	return buf, nil
}
