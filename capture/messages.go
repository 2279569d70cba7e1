package capture

import (
	"github.com/hazyhaar/webclip/geometry"
	"github.com/hazyhaar/webclip/internal/dataurl"
)

// Message is the sealed set of values exchanged between the two agents
// and the orchestrator. Messages travel by value; byte payloads are
// copied before they are sent.
type Message interface {
	message()
}

// PageMeta describes the page a region was selected on.
type PageMeta struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	// Excerpt is the selected element's content as markdown, when available.
	Excerpt string `json:"excerpt,omitempty"`
}

// Slice is one captured frame and the window fraction that belongs to
// the selected region.
type Slice struct {
	Index int                     `json:"index"`
	Image []byte                  `json:"-"`
	MIME  string                  `json:"mime"`
	Rect  geometry.NormalizedRect `json:"rect"`
}

// DataURL returns the frame as a base64 data URL.
func (s Slice) DataURL() string { return dataurl.Encode(s.MIME, s.Image) }

func (s Slice) clone() Slice {
	s.Image = append([]byte(nil), s.Image...)
	return s
}

// Commands handled by the in-page agent.

// BeginSelect starts a selection for the given session.
type BeginSelect struct {
	SessionID string
}

// ScrollTo asks the in-page agent to scroll the window to Top (instant,
// horizontal offset 0).
type ScrollTo struct {
	SessionID string
	Top       float64
}

// Events handled by the privileged agent.

// StartCapture hands a confirmed region to the privileged agent.
type StartCapture struct {
	SessionID string
	Region    geometry.CaptureRegion
	Page      PageMeta
}

// ScrollDone acknowledges a ScrollTo.
type ScrollDone struct {
	SessionID string
	Top       float64
}

// SelectCanceled ends a selection without a region. Err is nil when the
// user dismissed it.
type SelectCanceled struct {
	SessionID string
	Err       error
}

// AgentGone reports that the page can no longer be driven.
type AgentGone struct {
	SessionID string
	Err       error
}

// Events emitted by the privileged agent.

// SliceCaptured reports progress: Slice is the Index-th of Total.
type SliceCaptured struct {
	SessionID string
	Slice     Slice
	Total     int
}

// CaptureComplete carries the full, ordered slice sequence.
type CaptureComplete struct {
	SessionID string
	Page      PageMeta
	Region    geometry.CaptureRegion
	Slices    []Slice
}

// CaptureFailed ends a session without a result.
type CaptureFailed struct {
	SessionID string
	Err       error
}

func (BeginSelect) message()     {}
func (ScrollTo) message()        {}
func (StartCapture) message()    {}
func (ScrollDone) message()      {}
func (SelectCanceled) message()  {}
func (AgentGone) message()       {}
func (SliceCaptured) message()   {}
func (CaptureComplete) message() {}
func (CaptureFailed) message()   {}

// Link is the pair of inboxes connecting the in-page agent and the
// privileged agent.
type Link struct {
	// Page is the in-page agent's inbox.
	Page chan Message
	// Privileged is the privileged agent's inbox.
	Privileged chan Message
}

// NewLink returns a Link whose inboxes hold up to buf pending messages.
func NewLink(buf int) *Link {
	return &Link{
		Page:       make(chan Message, buf),
		Privileged: make(chan Message, buf),
	}
}
