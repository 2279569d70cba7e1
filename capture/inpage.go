package capture

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/webclip/geometry"
)

// Selection is what the page reports when the user (or a selector)
// confirms an element.
type Selection struct {
	Box           geometry.BoundingBox `json:"box"`
	Viewport      geometry.Viewport    `json:"viewport"`
	ScrollTop     float64              `json:"scroll_top"`
	ContentWidth  float64              `json:"content_width"`
	ContentHeight float64              `json:"content_height"`
	Meta          PageMeta             `json:"meta"`
}

// Page is the DOM side of a capture: selection, masking and scrolling.
type Page interface {
	// Select blocks until an element is confirmed. It returns an error
	// wrapping ErrSelectCanceled when the user dismisses the selection.
	Select(ctx context.Context) (Selection, error)
	// Mask dims everything outside rect. The returned func removes the
	// overlay and is safe to call more than once.
	Mask(ctx context.Context, rect geometry.Rect) (func(), error)
	// ScrollTo scrolls the window instantly to (0, top).
	ScrollTo(ctx context.Context, top float64) error
}

// InPageAgent owns everything that happens inside the tab. It processes
// its inbox one message at a time.
type InPageAgent struct {
	page   Page
	logger *slog.Logger
	state  State
	gone   bool
}

// NewInPageAgent wraps page. A nil logger uses slog.Default().
func NewInPageAgent(page Page, logger *slog.Logger) *InPageAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &InPageAgent{page: page, logger: logger, state: Idle}
}

// Run serves link.Page until ctx is done or the inbox is closed.
func (a *InPageAgent) Run(ctx context.Context, link *Link) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-link.Page:
			if !ok {
				return nil
			}
			switch m := m.(type) {
			case BeginSelect:
				a.handleSelect(ctx, link, m)
			case ScrollTo:
				a.handleScroll(ctx, link, m)
			default:
				a.logger.Warn("capture: in-page agent ignoring message", "type", typeName(m))
			}
		}
	}
}

func (a *InPageAgent) handleSelect(ctx context.Context, link *Link, m BeginSelect) {
	if a.gone {
		send(ctx, link.Privileged, AgentGone{SessionID: m.SessionID, Err: errPageGone})
		return
	}
	if !a.state.CanTransition(Selecting) {
		send(ctx, link.Privileged, SelectCanceled{SessionID: m.SessionID, Err: errors.New("capture: selection already in progress")})
		return
	}
	a.state = Selecting
	defer func() { a.state = Idle }()

	sel, err := a.page.Select(ctx)
	if err != nil {
		if errors.Is(err, ErrSelectCanceled) {
			err = nil
		} else if ctx.Err() == nil {
			a.logger.Warn("capture: selection failed", "session", m.SessionID, "error", err)
		}
		send(ctx, link.Privileged, SelectCanceled{SessionID: m.SessionID, Err: err})
		return
	}

	region := geometry.NewRegion(sel.Box, sel.Viewport, sel.ScrollTop, sel.ContentWidth, sel.ContentHeight)
	if region.Degenerate() {
		send(ctx, link.Privileged, SelectCanceled{SessionID: m.SessionID, Err: ErrDegenerateRegion})
		return
	}

	// The mask confirms the resolved region and must be gone before the
	// first frame is taken.
	dispose, err := a.page.Mask(ctx, region.Rect)
	if err != nil {
		a.logger.Debug("capture: mask failed", "session", m.SessionID, "error", err)
	} else {
		dispose()
	}

	a.logger.Debug("capture: region selected",
		"session", m.SessionID,
		"top", region.Top, "left", region.Left,
		"width", region.Width, "height", region.Height,
		"content_height", region.ContentHeight)

	send(ctx, link.Privileged, StartCapture{SessionID: m.SessionID, Region: region, Page: sel.Meta})
}

func (a *InPageAgent) handleScroll(ctx context.Context, link *Link, m ScrollTo) {
	if a.gone {
		return
	}
	if err := a.page.ScrollTo(ctx, m.Top); err != nil {
		a.gone = true
		a.logger.Warn("capture: page gone", "session", m.SessionID, "error", err)
		send(ctx, link.Privileged, AgentGone{SessionID: m.SessionID, Err: err})
		return
	}
	send(ctx, link.Privileged, ScrollDone{SessionID: m.SessionID, Top: m.Top})
}

var errPageGone = errors.New("capture: page is gone")

// send delivers m unless ctx ends first.
func send(ctx context.Context, ch chan<- Message, m Message) bool {
	select {
	case ch <- m:
		return true
	case <-ctx.Done():
		return false
	}
}
