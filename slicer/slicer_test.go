package slicer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// striped builds a w x h white image with black rows at the given ys.
func striped(w, h int, blackRows ...int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	for _, y := range blackRows {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	return img
}

func assertCoverage(t *testing.T, chunks []Chunk, h int) {
	t.Helper()
	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].Top)
	assert.Equal(t, h, chunks[len(chunks)-1].Bottom)
	for i := range chunks {
		assert.Greater(t, chunks[i].Height(), 0, "chunk %d empty", i)
		if i > 0 {
			assert.Equal(t, chunks[i-1].Bottom, chunks[i].Top, "gap before chunk %d", i)
		}
	}
}

func TestChunks_SingleChunkShortcut(t *testing.T) {
	for _, h := range []int{1, 50, 100} {
		got := Chunks(striped(4, h), Options{TargetHeight: 100})
		assert.Equal(t, []Chunk{{Top: 0, Bottom: h}}, got)
	}
}

func TestChunks_EmptyImage(t *testing.T) {
	assert.Nil(t, Chunks(image.NewNRGBA(image.Rect(0, 0, 4, 0)), Options{}))
}

func TestChunks_CutsOnQuietRow(t *testing.T) {
	img := striped(8, 300, 130, 250)
	got := Chunks(img, Options{TargetHeight: 100, SearchWindow: 50})
	assert.Equal(t, []Chunk{{0, 130}, {130, 250}, {250, 300}}, got)
}

func TestChunks_DenseWindowKeepsFirstMinimum(t *testing.T) {
	// All white: every score is 255, so the first row of the window wins.
	got := Chunks(striped(4, 250), Options{TargetHeight: 100, SearchWindow: 30})
	assert.Equal(t, []Chunk{{0, 100}, {100, 200}, {200, 250}}, got)
}

func TestChunks_PicksDarkestWhenNoneQuiet(t *testing.T) {
	img := striped(4, 200)
	for x := 0; x < 4; x++ {
		img.SetNRGBA(x, 110, color.NRGBA{100, 100, 100, 255})
		img.SetNRGBA(x, 120, color.NRGBA{50, 50, 50, 255})
	}
	got := Chunks(img, Options{TargetHeight: 100, SearchWindow: 40})
	assert.Equal(t, []Chunk{{0, 120}, {120, 200}}, got)
}

func TestChunks_Coverage(t *testing.T) {
	for _, tc := range []struct{ h, target int }{
		{1, 1}, {999, 100}, {1000, 1000}, {1001, 1000}, {2345, 300}, {7, 3},
	} {
		img := striped(3, tc.h, tc.h/2, tc.h/3)
		assertCoverage(t, Chunks(img, Options{TargetHeight: tc.target, SearchWindow: 20}), tc.h)
	}
}

func TestRowScore_GenericImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 200})
	assert.InDelta(t, 100, RowScore(img, 0), 1e-9)
}

func TestRowScore_SubImageOffset(t *testing.T) {
	img := striped(4, 20, 10)
	sub := img.SubImage(image.Rect(0, 5, 4, 20))
	assert.Zero(t, RowScore(sub, 5))
	assert.Equal(t, 255.0, RowScore(sub, 0))
}

func TestBudgetChunks(t *testing.T) {
	got := BudgetChunks(1000, 25000, 7_000_000)
	assert.Equal(t, []Chunk{{0, 7000}, {7000, 14000}, {14000, 21000}, {21000, 25000}}, got)
	assertCoverage(t, got, 25000)
	assert.Nil(t, BudgetChunks(10, 0, 100))
}

func TestSplit_RendersChunks(t *testing.T) {
	img := striped(6, 30, 10)
	pieces, err := Split(img, []Chunk{{0, 10}, {10, 30}}, PNG)
	require.NoError(t, err)
	require.Len(t, pieces, 2)

	second, err := png.Decode(bytes.NewReader(pieces[1].Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 20), second.Bounds())
	r, _, _, _ := second.At(0, 0).RGBA()
	assert.Zero(t, r, "first row of second chunk is the black row")

	assert.Equal(t, 6, pieces[0].Width)
	assert.Equal(t, 10, pieces[0].Height)
	assert.Contains(t, pieces[0].DataURL(), "data:image/png;base64,")
}

func TestSplit_RejectsOutOfRange(t *testing.T) {
	_, err := Split(striped(2, 5), []Chunk{{0, 6}}, PNG)
	assert.Error(t, err)
}
