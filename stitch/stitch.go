// Package stitch turns captured frames back into one tall raster, and
// renders decoded containers for preview.
package stitch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/hazyhaar/webclip/capture"
	"github.com/hazyhaar/webclip/container"
	"github.com/hazyhaar/webclip/internal/dataurl"
)

// ErrEmpty is returned when there is nothing to stitch.
var ErrEmpty = errors.New("stitch: no slices")

// DecodeImage decodes a PNG, JPEG or WebP image.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("stitch: decode image: %w", err)
	}
	return img, nil
}

// ParseDataURL splits a base64 data URL into MIME type and bytes.
func ParseDataURL(s string) (mime string, data []byte, err error) {
	return dataurl.Decode(s)
}

// EncodeDataURL is the inverse of ParseDataURL.
func EncodeDataURL(mime string, data []byte) string {
	return dataurl.Encode(mime, data)
}

// Assemble crops every frame to its normalized rectangle and stacks the
// crops top to bottom. Sub-pixel bands are dropped. The canvas takes the
// width of the first crop; later crops of a different width are scaled
// to it.
func Assemble(slices []capture.Slice) (*image.RGBA, error) {
	if len(slices) == 0 {
		return nil, ErrEmpty
	}
	crops := make([]image.Image, 0, len(slices))
	for i, s := range slices {
		img, err := DecodeImage(s.Image)
		if err != nil {
			return nil, fmt.Errorf("stitch: slice %d: %w", i, err)
		}
		b := img.Bounds()
		x0, y0, x1, y1 := s.Rect.Scale(b.Dx(), b.Dy())
		r := image.Rect(x0, y0, x1, y1).Add(b.Min).Intersect(b)
		if r.Empty() {
			// A tail band thinner than one device pixel rounds away.
			if s.Rect.Height > 0 && s.Rect.Width > 0 && s.Rect.Height*float64(b.Dy()) < 1 {
				continue
			}
			return nil, fmt.Errorf("stitch: slice %d: crop %v is empty", i, r)
		}
		crops = append(crops, subImage(img, r))
	}
	if len(crops) == 0 {
		return nil, fmt.Errorf("stitch: every crop is thinner than a pixel: %w", ErrEmpty)
	}
	return stack(crops, crops[0].Bounds().Dx()), nil
}

// Stack decodes every slice payload of c and stacks them. The canvas is
// c.Width wide when set, otherwise as wide as the first slice.
func Stack(c *container.Container) (*image.RGBA, error) {
	if c == nil || len(c.Slices) == 0 {
		return nil, ErrEmpty
	}
	imgs := make([]image.Image, 0, len(c.Slices))
	for i, s := range c.Slices {
		_, data, err := dataurl.Decode(s.Data)
		if err != nil {
			return nil, fmt.Errorf("stitch: slice %d: %w", i, err)
		}
		img, err := DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("stitch: slice %d: %w", i, err)
		}
		imgs = append(imgs, img)
	}
	width := int(c.Width)
	if width == 0 {
		width = imgs[0].Bounds().Dx()
	}
	return stack(imgs, width), nil
}

func stack(imgs []image.Image, width int) *image.RGBA {
	heights := make([]int, len(imgs))
	total := 0
	for i, img := range imgs {
		b := img.Bounds()
		h := b.Dy()
		if b.Dx() != width && b.Dx() > 0 {
			h = (b.Dy()*width + b.Dx()/2) / b.Dx()
		}
		heights[i] = h
		total += h
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, total))
	y := 0
	for i, img := range imgs {
		b := img.Bounds()
		r := image.Rect(0, y, width, y+heights[i])
		if b.Dx() == width {
			draw.Draw(dst, r, img, b.Min, draw.Src)
		} else {
			draw.CatmullRom.Scale(dst, r, img, b, draw.Src, nil)
		}
		y += heights[i]
	}
	return dst
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func subImage(img image.Image, r image.Rectangle) image.Image {
	if si, ok := img.(subImager); ok {
		return si.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
