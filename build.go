package webclip

import (
	"fmt"
	"image"
	"time"

	"github.com/hazyhaar/webclip/capture"
	"github.com/hazyhaar/webclip/container"
	"github.com/hazyhaar/webclip/sink"
	"github.com/hazyhaar/webclip/slicer"
	"github.com/hazyhaar/webclip/stitch"
)

// Build turns a finished capture into an artifact: the slices are
// stitched into one raster, cut into bands and encoded as a container.
// No browser is involved.
func (c *Clipper) Build(res *capture.Result, docPath string) (*sink.Artifact, error) {
	if res == nil {
		return nil, fmt.Errorf("webclip: build: nil result")
	}
	img, err := stitch.Assemble(res.Slices)
	if err != nil {
		return nil, fmt.Errorf("webclip: build %s: %w", res.SessionID, err)
	}

	cont, err := c.pack(img)
	if err != nil {
		return nil, fmt.Errorf("webclip: build %s: %w", res.SessionID, err)
	}
	data, err := container.Encode(*cont)
	if err != nil {
		return nil, fmt.Errorf("webclip: build %s: %w", res.SessionID, err)
	}

	if docPath == "" {
		docPath = c.docPath()
	}
	return &sink.Artifact{
		ID:           c.clipID(),
		SessionID:    res.SessionID,
		URL:          res.Page.URL,
		Title:        res.Page.Title,
		Excerpt:      res.Page.Excerpt,
		DocumentPath: docPath,
		Width:        cont.Width,
		Height:       cont.Height,
		SliceCount:   len(cont.Slices),
		Container:    data,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// pack cuts img according to the slicer configuration.
func (c *Clipper) pack(img image.Image) (*container.Container, error) {
	b := img.Bounds()
	sc := c.cfg.Slicer

	var chunks []slicer.Chunk
	switch sc.Mode {
	case "budget":
		chunks = slicer.BudgetChunks(b.Dx(), b.Dy(), sc.MaxPixels)
	default:
		chunks = slicer.Chunks(img, slicer.Options{
			TargetHeight:   sc.TargetHeight,
			SearchWindow:   sc.SearchWindow,
			QuietThreshold: sc.QuietThreshold,
		})
	}

	enc := slicer.PNG
	if sc.Encoding == "jpeg" {
		enc = slicer.JPEG(sc.Quality)
	}
	pieces, err := slicer.Split(img, chunks, enc)
	if err != nil {
		return nil, err
	}

	cont := &container.Container{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Slices: make([]container.Slice, len(pieces)),
	}
	for i, p := range pieces {
		cont.Slices[i] = container.Slice{
			Width:  uint32(p.Width),
			Height: uint32(p.Height),
			Data:   p.DataURL(),
		}
	}
	return cont, nil
}
