package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Defaults for Options.
const (
	DefaultSettleDelay    = time.Second
	DefaultSessionTimeout = 2 * time.Minute
)

// Frame is one screenshot of the visible tab.
type Frame struct {
	Image []byte
	MIME  string
}

// Capturer takes screenshots of the visible tab.
type Capturer interface {
	CaptureVisible(ctx context.Context) (Frame, error)
}

// Options tunes the privileged agent.
type Options struct {
	// SettleDelay is the wait between a scroll and the next frame. Default: 1s.
	SettleDelay time.Duration
	// AwaitRepaint starts the settle delay only once the page acknowledged
	// the scroll.
	AwaitRepaint bool
	// SessionTimeout bounds a capture from StartCapture to its end. Default: 2m.
	SessionTimeout time.Duration
	// Progress is called after every frame with the frames done and the total.
	Progress func(done, total int)
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.SessionTimeout <= 0 {
		o.SessionTimeout = DefaultSessionTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// PrivilegedAgent owns tab screenshots and the capture loop.
type PrivilegedAgent struct {
	capturer Capturer
	sessions *Sessions
	opts     Options
	logger   *slog.Logger
}

// NewPrivilegedAgent creates an agent that records its sessions in sessions.
func NewPrivilegedAgent(capturer Capturer, sessions *Sessions, opts Options) *PrivilegedAgent {
	opts.defaults()
	if sessions == nil {
		sessions = NewSessions(nil)
	}
	return &PrivilegedAgent{
		capturer: capturer,
		sessions: sessions,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Run serves link.Privileged until ctx is done or the inbox is closed.
// Results are published on out.
func (a *PrivilegedAgent) Run(ctx context.Context, link *Link, out chan<- Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-link.Privileged:
			if !ok {
				return nil
			}
			switch m := m.(type) {
			case StartCapture:
				send(ctx, out, a.capture(ctx, link, m, out))
			case SelectCanceled:
				err := m.Err
				switch {
				case err == nil:
					err = ErrSelectCanceled
				case !errors.Is(err, ErrSelectCanceled):
					err = failed(err)
				}
				send(ctx, out, CaptureFailed{SessionID: m.SessionID, Err: &Error{Op: "select", SessionID: m.SessionID, Err: err}})
			case AgentGone:
				send(ctx, out, CaptureFailed{SessionID: m.SessionID, Err: &Error{Op: "select", SessionID: m.SessionID, Err: aborted(m.Err)}})
			case ScrollDone:
				// Late acknowledgement of a finished session.
			default:
				a.logger.Warn("capture: privileged agent ignoring message", "type", typeName(m))
			}
		}
	}
}

// capture runs the loop for one session and returns its closing message.
func (a *PrivilegedAgent) capture(ctx context.Context, link *Link, start StartCapture, out chan<- Message) Message {
	id := start.SessionID
	fail := func(op string, err error) Message {
		if _, ferr := a.sessions.Fail(id, err); ferr != nil {
			a.logger.Debug("capture: fail session", "session", id, "error", ferr)
		}
		a.logger.Warn("capture: session failed", "session", id, "op", op, "error", err)
		return CaptureFailed{SessionID: id, Err: &Error{Op: op, SessionID: id, Err: err}}
	}

	if err := a.sessions.Create(id, start.Page, start.Region); err != nil {
		return CaptureFailed{SessionID: id, Err: &Error{Op: "start", SessionID: id, Err: failed(err)}}
	}

	steps, err := Plan(start.Region)
	if err != nil {
		return fail("plan", err)
	}

	sctx, cancel := context.WithTimeout(ctx, a.opts.SessionTimeout)
	defer cancel()

	a.logger.Info("capture: session started",
		"session", id, "url", start.Page.URL, "frames", len(steps))

	for i, step := range steps {
		if err := sctx.Err(); err != nil {
			return fail("capture", aborted(err))
		}

		frame, err := a.capturer.CaptureVisible(sctx)
		if err != nil {
			if cerr := sctx.Err(); cerr != nil {
				return fail("capture", aborted(cerr))
			}
			return fail("capture", failed(err))
		}

		slice := Slice{Index: i, Image: frame.Image, MIME: frame.MIME, Rect: step.Rect}.clone()
		if err := a.sessions.Append(id, slice); err != nil {
			return fail("capture", failed(err))
		}
		if !send(sctx, out, SliceCaptured{SessionID: id, Slice: slice.clone(), Total: len(steps)}) {
			return fail("capture", aborted(sctx.Err()))
		}
		if a.opts.Progress != nil {
			a.opts.Progress(i+1, len(steps))
		}

		if i == len(steps)-1 {
			break
		}

		if err := a.sessions.Transition(id, ScrollRequested); err != nil {
			return fail("scroll", failed(err))
		}
		if !send(sctx, link.Page, ScrollTo{SessionID: id, Top: step.ScrollTop}) {
			return fail("scroll", aborted(sctx.Err()))
		}
		if err := a.settle(sctx, link, id, step.ScrollTop); err != nil {
			return fail("settle", err)
		}
		if err := a.sessions.Transition(id, Capturing); err != nil {
			return fail("scroll", failed(err))
		}
	}

	sess, err := a.sessions.Complete(id)
	if err != nil {
		return fail("complete", failed(err))
	}
	a.logger.Info("capture: session complete",
		"session", id, "frames", len(sess.Slices), "elapsed", sess.FinishedAt.Sub(sess.StartedAt))
	return CaptureComplete{SessionID: id, Page: sess.Page, Region: sess.Region, Slices: sess.Slices}
}

// settle waits for the page to repaint after a scroll to top. With
// AwaitRepaint the delay starts at the matching ScrollDone; otherwise it
// starts immediately. Losing the page or the context aborts the session.
func (a *PrivilegedAgent) settle(ctx context.Context, link *Link, id string, top float64) error {
	var timer *time.Timer
	var fire <-chan time.Time
	startTimer := func() {
		timer = time.NewTimer(a.opts.SettleDelay)
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	if !a.opts.AwaitRepaint {
		startTimer()
	}

	for {
		select {
		case <-ctx.Done():
			return aborted(ctx.Err())
		case <-fire:
			return nil
		case m, ok := <-link.Privileged:
			if !ok {
				return aborted(errPageGone)
			}
			switch m := m.(type) {
			case ScrollDone:
				if timer == nil && m.SessionID == id && m.Top == top {
					startTimer()
				}
			case AgentGone:
				return aborted(m.Err)
			default:
				a.logger.Warn("capture: message dropped during capture", "session", id, "type", typeName(m))
			}
		}
	}
}

func typeName(m Message) string { return fmt.Sprintf("%T", m) }
