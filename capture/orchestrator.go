package capture

import (
	"context"
	"sync"

	"github.com/hazyhaar/webclip/geometry"
)

// Result is a complete capture: every slice in order, never a prefix.
type Result struct {
	SessionID string                 `json:"session_id"`
	Page      PageMeta               `json:"page"`
	Region    geometry.CaptureRegion `json:"region"`
	Slices    []Slice                `json:"slices"`
}

// Orchestrator runs one in-page agent and one privileged agent against a
// page and returns the finished capture.
type Orchestrator struct {
	page     Page
	capturer Capturer
	sessions *Sessions
	opts     Options
}

// NewOrchestrator wires page and capturer. A nil sessions registry gets a
// private one.
func NewOrchestrator(page Page, capturer Capturer, sessions *Sessions, opts Options) *Orchestrator {
	opts.defaults()
	if sessions == nil {
		sessions = NewSessions(nil)
	}
	return &Orchestrator{page: page, capturer: capturer, sessions: sessions, opts: opts}
}

// Sessions returns the registry the orchestrator records into.
func (o *Orchestrator) Sessions() *Sessions { return o.sessions }

// Capture starts a selection and blocks until the capture completes,
// fails, or ctx ends. Errors match ErrCaptureFailure, ErrAborted or
// ErrSelectCanceled.
func (o *Orchestrator) Capture(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)

	link := NewLink(4)
	out := make(chan Message, 4)

	inPage := NewInPageAgent(o.page, o.opts.Logger)
	opts := o.opts
	opts.Progress = nil
	privileged := NewPrivilegedAgent(o.capturer, o.sessions, opts)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = inPage.Run(ctx, link)
	}()
	go func() {
		defer wg.Done()
		_ = privileged.Run(ctx, link, out)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	id := o.sessions.NewID()
	if !send(ctx, link.Page, BeginSelect{SessionID: id}) {
		return nil, &Error{Op: "select", SessionID: id, Err: aborted(ctx.Err())}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, &Error{Op: "capture", SessionID: id, Err: aborted(ctx.Err())}
		case m := <-out:
			switch m := m.(type) {
			case SliceCaptured:
				if o.opts.Progress != nil {
					o.opts.Progress(m.Slice.Index+1, m.Total)
				}
			case CaptureComplete:
				return &Result{SessionID: m.SessionID, Page: m.Page, Region: m.Region, Slices: m.Slices}, nil
			case CaptureFailed:
				return nil, m.Err
			}
		}
	}
}
