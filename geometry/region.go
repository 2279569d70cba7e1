package geometry

import "math"

// CaptureRegion is the selected element's visible rectangle at confirm
// time plus the auxiliary numbers the capture loop needs. It is built
// once, when the user confirms a selection, and never modified.
type CaptureRegion struct {
	Rect

	// ContentWidth/ContentHeight are the element's full, unclipped size.
	ContentWidth  float64 `json:"content_width"`
	ContentHeight float64 `json:"content_height"`

	// ScrollTop is window.scrollY at selection time.
	ScrollTop float64 `json:"scroll_top"`

	WindowWidth  float64 `json:"window_width"`
	WindowHeight float64 `json:"window_height"`
}

// NewRegion resolves the visible rectangle and bundles it with the
// element and window metrics.
func NewRegion(box BoundingBox, vp Viewport, scrollTop, contentWidth, contentHeight float64) CaptureRegion {
	return CaptureRegion{
		Rect:          VisibleArea(box, vp),
		ContentWidth:  contentWidth,
		ContentHeight: contentHeight,
		ScrollTop:     scrollTop,
		WindowWidth:   vp.InnerWidth,
		WindowHeight:  vp.InnerHeight,
	}
}

// Degenerate reports whether the region cannot produce any capture.
func (r CaptureRegion) Degenerate() bool {
	return r.Empty() || r.WindowWidth <= 0 || r.WindowHeight <= 0
}

// Normalize returns the fraction-of-window rectangle of the band that
// remains to be emitted when scrollDistance pixels of the region are
// still visible at the bottom of the viewport. Values are clamped to [0, 1].
func (r CaptureRegion) Normalize(scrollDistance float64) NormalizedRect {
	nr := NormalizedRect{
		Top:    (r.Top + r.Height - scrollDistance) / r.WindowHeight,
		Left:   r.Left / r.WindowWidth,
		Width:  r.Width / r.WindowWidth,
		Height: scrollDistance / r.WindowHeight,
	}
	return nr.Clamp()
}

// NormalizedRect is a Rect whose fields are fractions (0..1) of the
// window dimensions at capture time.
type NormalizedRect Rect

// Clamp bounds every field to [0, 1] and keeps the rectangle inside the
// unit square.
func (n NormalizedRect) Clamp() NormalizedRect {
	n.Top = Clamp01(n.Top)
	n.Left = Clamp01(n.Left)
	n.Width = math.Min(Clamp01(n.Width), 1-n.Left)
	n.Height = math.Min(Clamp01(n.Height), 1-n.Top)
	return n
}

// Valid reports whether every field lies in [0, 1].
func (n NormalizedRect) Valid() bool {
	for _, v := range [...]float64{n.Top, n.Left, n.Width, n.Height} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Scale maps the rectangle onto an image of w x h pixels, rounding to
// whole pixels.
func (n NormalizedRect) Scale(w, h int) (x0, y0, x1, y1 int) {
	fw, fh := float64(w), float64(h)
	x0 = int(math.Round(n.Left * fw))
	y0 = int(math.Round(n.Top * fh))
	x1 = int(math.Round((n.Left + n.Width) * fw))
	y1 = int(math.Round((n.Top + n.Height) * fh))
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}
	return x0, y0, x1, y1
}
