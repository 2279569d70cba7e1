package sink

import "context"

// Func is called for each artifact, in process.
type Func func(ctx context.Context, a Artifact) error

// Callback delivers artifacts through a Go function call. It is how an
// embedding program receives clips without any serialisation.
type Callback struct {
	fn Func
}

// NewCallback creates a Callback sink. A nil fn accepts everything.
func NewCallback(fn Func) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, a Artifact) error {
	if c.fn != nil {
		return c.fn(ctx, a)
	}
	return nil
}

func (c *Callback) Close() error { return nil }

func (c *Callback) Name() string { return "callback" }
