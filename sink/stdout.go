package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// Stdout writes one JSON line per artifact to an io.Writer (default
// os.Stdout). Container bytes are left out unless requested.
type Stdout struct {
	mu               sync.Mutex
	enc              *json.Encoder
	includeContainer bool
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer, includeContainer bool) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w), includeContainer: includeContainer}
}

func (s *Stdout) Send(_ context.Context, a Artifact) error {
	if !s.includeContainer {
		a.Container = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(a)
}

func (s *Stdout) Close() error { return nil }

func (s *Stdout) Name() string { return "stdout" }
