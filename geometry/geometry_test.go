package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleArea_FullyVisible(t *testing.T) {
	vp := Viewport{InnerWidth: 1000, InnerHeight: 800, ClientWidth: 1000, ClientHeight: 800}
	got := VisibleArea(BoundingBox{Top: 100, Left: 50, Right: 450, Bottom: 300}, vp)
	assert.Equal(t, Rect{Top: 100, Left: 50, Width: 400, Height: 200}, got)
}

func TestVisibleArea_ScrollbarsClip(t *testing.T) {
	// 15px vertical scrollbar, 10px horizontal scrollbar.
	vp := Viewport{InnerWidth: 1000, InnerHeight: 800, ClientWidth: 985, ClientHeight: 790}
	got := VisibleArea(BoundingBox{Top: 700, Left: 900, Right: 1200, Bottom: 1500}, vp)
	assert.Equal(t, 85.0, got.Width)
	assert.Equal(t, 90.0, got.Height)
	assert.Equal(t, 700.0, got.Top)
	assert.Equal(t, 900.0, got.Left)
}

func TestVisibleArea_PartiallyAbove(t *testing.T) {
	vp := Viewport{InnerWidth: 1000, InnerHeight: 800, ClientWidth: 1000, ClientHeight: 800}
	got := VisibleArea(BoundingBox{Top: -200, Left: 0, Right: 500, Bottom: 300}, vp)
	assert.Equal(t, Rect{Top: 0, Left: 0, Width: 500, Height: 300}, got)
}

func TestVisibleArea_OffScreen(t *testing.T) {
	vp := Viewport{InnerWidth: 1000, InnerHeight: 800, ClientWidth: 1000, ClientHeight: 800}
	got := VisibleArea(BoundingBox{Top: 900, Left: 10, Right: 200, Bottom: 1200}, vp)
	assert.True(t, got.Empty())
	assert.Zero(t, got.Width)
	assert.Zero(t, got.Height)
}

func TestViewport_NegativeScrollbarIgnored(t *testing.T) {
	vp := Viewport{InnerWidth: 1000, InnerHeight: 800, ClientWidth: 1200, ClientHeight: 900}
	assert.Zero(t, vp.ScrollbarWidth())
	assert.Zero(t, vp.ScrollbarHeight())
}

func TestNormalize_FirstAndLastBands(t *testing.T) {
	r := CaptureRegion{
		Rect:          Rect{Top: 100, Left: 200, Width: 400, Height: 300},
		ContentHeight: 1000,
		WindowWidth:   1000,
		WindowHeight:  500,
	}

	first := r.Normalize(300)
	assert.InDelta(t, 0.2, first.Top, 1e-9)
	assert.InDelta(t, 0.2, first.Left, 1e-9)
	assert.InDelta(t, 0.4, first.Width, 1e-9)
	assert.InDelta(t, 0.6, first.Height, 1e-9)

	last := r.Normalize(100)
	assert.InDelta(t, 0.6, last.Top, 1e-9)
	assert.InDelta(t, 0.2, last.Height, 1e-9)
	assert.True(t, last.Valid())
}

func TestNormalizedRect_Clamp(t *testing.T) {
	n := NormalizedRect{Top: -0.1, Left: 0.9, Width: 0.5, Height: 1.4}.Clamp()
	assert.True(t, n.Valid())
	assert.Equal(t, 0.0, n.Top)
	assert.InDelta(t, 0.1, n.Width, 1e-9)
	assert.Equal(t, 1.0, n.Height)
}

func TestNormalizedRect_Scale(t *testing.T) {
	n := NormalizedRect{Top: 0.25, Left: 0.5, Width: 0.5, Height: 0.5}
	x0, y0, x1, y1 := n.Scale(200, 400)
	assert.Equal(t, []int{100, 100, 200, 300}, []int{x0, y0, x1, y1})
}

func TestCaptureRegion_Degenerate(t *testing.T) {
	assert.True(t, CaptureRegion{Rect: Rect{Width: 10}, WindowWidth: 10, WindowHeight: 10}.Degenerate())
	assert.True(t, CaptureRegion{Rect: Rect{Width: 10, Height: 10}}.Degenerate())
	assert.False(t, CaptureRegion{Rect: Rect{Width: 10, Height: 10}, WindowWidth: 10, WindowHeight: 10}.Degenerate())
}
