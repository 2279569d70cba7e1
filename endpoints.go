package webclip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/webclip/container"
	"github.com/hazyhaar/webclip/kit"
	"github.com/hazyhaar/webclip/sink"
)

// ErrNoStore is returned by lookups when no store sink is configured.
var ErrNoStore = errors.New("webclip: no store configured")

// ClipSummary describes a stored clip without its container bytes.
type ClipSummary struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id,omitempty"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	DocumentPath string    `json:"document_path"`
	Width        uint32    `json:"width"`
	Height       uint32    `json:"height"`
	SliceCount   int       `json:"slice_count"`
	SizeBytes    int       `json:"size_bytes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func summarize(a sink.Artifact) ClipSummary {
	return ClipSummary{
		ID:           a.ID,
		SessionID:    a.SessionID,
		URL:          a.URL,
		Title:        a.Title,
		DocumentPath: a.DocumentPath,
		Width:        a.Width,
		Height:       a.Height,
		SliceCount:   a.SliceCount,
		SizeBytes:    a.Size(),
		CreatedAt:    a.CreatedAt,
	}
}

// Manifest is the decoded header of a stored clip.
type Manifest struct {
	ClipSummary
	Descriptors []container.Descriptor `json:"descriptors"`
}

type captureReq = Request

type idReq struct {
	ID string `json:"id"`
}

type listReq struct {
	Limit int `json:"limit"`
}

// Inspect decodes the header of a stored clip.
func (c *Clipper) Inspect(ctx context.Context, id string) (*Manifest, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	a, err := c.store.GetClip(ctx, id)
	if err != nil {
		return nil, err
	}
	h, err := container.Inspect(a.Container)
	if err != nil {
		return nil, fmt.Errorf("webclip: inspect %s: %w", id, err)
	}
	return &Manifest{ClipSummary: summarize(*a), Descriptors: h.Descriptors}, nil
}

// List returns the most recent stored clips.
func (c *Clipper) List(ctx context.Context, limit int) ([]ClipSummary, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	clips, err := c.store.ListClips(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ClipSummary, len(clips))
	for i, a := range clips {
		out[i] = summarize(a)
	}
	return out, nil
}

// Raw returns the stored container bytes of a clip.
func (c *Clipper) Raw(ctx context.Context, id string) (*sink.Artifact, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	return c.store.GetClip(ctx, id)
}

func (c *Clipper) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.WithRequestIDs(nil), kit.Logging(c.logger, name))(ep)
}

func (c *Clipper) captureEndpoint() kit.Endpoint {
	return c.endpoint("capture", func(ctx context.Context, req any) (any, error) {
		art, err := c.Clip(ctx, *req.(*captureReq))
		if err != nil {
			return nil, err
		}
		return summarize(*art), nil
	})
}

func (c *Clipper) inspectEndpoint() kit.Endpoint {
	return c.endpoint("inspect", func(ctx context.Context, req any) (any, error) {
		return c.Inspect(ctx, req.(*idReq).ID)
	})
}

func (c *Clipper) listEndpoint() kit.Endpoint {
	return c.endpoint("list", func(ctx context.Context, req any) (any, error) {
		clips, err := c.List(ctx, req.(*listReq).Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"clips": clips}, nil
	})
}
