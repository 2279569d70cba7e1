package slicer

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/hazyhaar/webclip/internal/dataurl"
)

// Encoder turns a chunk raster into payload bytes.
type Encoder struct {
	MIME   string
	Encode func(w io.Writer, img image.Image) error
}

// PNG is the default chunk encoder.
var PNG = Encoder{MIME: "image/png", Encode: png.Encode}

// JPEG returns an encoder at the given quality (1-100).
func JPEG(quality int) Encoder {
	return Encoder{
		MIME: "image/jpeg",
		Encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		},
	}
}

// Piece is one encoded chunk.
type Piece struct {
	Chunk  Chunk
	Width  int
	Height int
	MIME   string
	Data   []byte
}

// DataURL returns the piece as a base64 data URL.
func (p Piece) DataURL() string { return dataurl.Encode(p.MIME, p.Data) }

// Split renders every chunk of img into a freshly sized raster and encodes
// it. Chunks must lie within the image.
func Split(img image.Image, chunks []Chunk, enc Encoder) ([]Piece, error) {
	if enc.Encode == nil {
		enc = PNG
	}
	b := img.Bounds()
	pieces := make([]Piece, 0, len(chunks))
	for i, c := range chunks {
		if c.Top < 0 || c.Bottom > b.Dy() || c.Height() <= 0 {
			return nil, fmt.Errorf("slicer: chunk %d [%d,%d) outside image height %d", i, c.Top, c.Bottom, b.Dy())
		}

		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), c.Height()))
		src := image.Rect(b.Min.X, b.Min.Y+c.Top, b.Max.X, b.Min.Y+c.Bottom)
		draw.Copy(dst, image.Point{}, img, src, draw.Src, nil)

		var buf bytes.Buffer
		if err := enc.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("slicer: encode chunk %d: %w", i, err)
		}
		pieces = append(pieces, Piece{
			Chunk:  c,
			Width:  b.Dx(),
			Height: c.Height(),
			MIME:   enc.MIME,
			Data:   buf.Bytes(),
		})
	}
	return pieces, nil
}
