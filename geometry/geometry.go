// Package geometry resolves the on-screen rectangle of a selected element
// and expresses capture rectangles as fractions of the window so that
// captures taken at different scroll offsets can be reassembled.
package geometry

import "math"

// Rect is a rectangle in CSS pixels, relative to the viewport unless
// stated otherwise.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns Top + Height.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Right returns Left + Width.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// BoundingBox is what getBoundingClientRect reports for an element.
type BoundingBox struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Viewport holds the window metrics needed to find the visible canvas.
// InnerWidth/InnerHeight include scrollbars, ClientWidth/ClientHeight
// (documentElement) do not.
type Viewport struct {
	InnerWidth   float64 `json:"inner_width"`
	InnerHeight  float64 `json:"inner_height"`
	ClientWidth  float64 `json:"client_width"`
	ClientHeight float64 `json:"client_height"`
}

// ScrollbarWidth is the vertical scrollbar thickness, never negative.
func (v Viewport) ScrollbarWidth() float64 {
	return math.Max(0, v.InnerWidth-v.ClientWidth)
}

// ScrollbarHeight is the horizontal scrollbar thickness, never negative.
func (v Viewport) ScrollbarHeight() float64 {
	return math.Max(0, v.InnerHeight-v.ClientHeight)
}

// VisibleArea intersects the element's bounding box with the visible
// canvas [0, visibleWidth] x [0, visibleHeight]. An element entirely
// off-screen yields a zero-area rectangle whose origin is clamped into
// the canvas.
func VisibleArea(box BoundingBox, vp Viewport) Rect {
	visW := math.Max(0, vp.InnerWidth-vp.ScrollbarWidth())
	visH := math.Max(0, vp.InnerHeight-vp.ScrollbarHeight())

	left := clamp(box.Left, 0, visW)
	top := clamp(box.Top, 0, visH)
	right := clamp(box.Right, 0, visW)
	bottom := clamp(box.Bottom, 0, visH)

	return Rect{
		Top:    top,
		Left:   left,
		Width:  math.Max(0, right-left),
		Height: math.Max(0, bottom-top),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}
