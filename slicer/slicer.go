// Package slicer cuts one tall raster into vertically stacked chunks,
// choosing cut rows that fall on visually quiet bands so glyphs and
// graphics are not bisected.
package slicer

import (
	"image"
	"image/color"
)

// Defaults match the capture pipeline's reference behaviour.
const (
	DefaultTargetHeight   = 1000
	DefaultSearchWindow   = 100
	DefaultQuietThreshold = 10.0
	DefaultMaxPixels      = 7_000_000
)

// Chunk is a pixel-row interval [Top, Bottom) of one source image.
type Chunk struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// Height returns Bottom - Top.
func (c Chunk) Height() int { return c.Bottom - c.Top }

// Options tunes the quiet-row search.
type Options struct {
	// TargetHeight is the nominal chunk height. Default: 1000.
	TargetHeight int
	// SearchWindow is how many rows below the nominal cut are scanned. Default: 100.
	SearchWindow int
	// QuietThreshold stops the scan early when a row scores below it. Default: 10.
	QuietThreshold float64
}

func (o *Options) defaults() {
	if o.TargetHeight <= 0 {
		o.TargetHeight = DefaultTargetHeight
	}
	if o.SearchWindow <= 0 {
		o.SearchWindow = DefaultSearchWindow
	}
	if o.QuietThreshold <= 0 {
		o.QuietThreshold = DefaultQuietThreshold
	}
}

// Chunks walks down img in TargetHeight steps. Whenever a nominal cut is
// not the last row, the rows [cut, cut+SearchWindow) are scored and the
// first row with the lowest mean grayscale wins. A row scoring below
// QuietThreshold ends the scan immediately. The result covers [0, H)
// exactly once; an image no taller than TargetHeight yields one chunk.
func Chunks(img image.Image, opts Options) []Chunk {
	opts.defaults()
	h := img.Bounds().Dy()
	if h <= 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < h {
		end := min(start+opts.TargetHeight, h)
		if end < h {
			end = bestCut(img, end, min(end+opts.SearchWindow, h), opts.QuietThreshold)
		}
		chunks = append(chunks, Chunk{Top: start, Bottom: end})
		start = end
	}
	return chunks
}

// bestCut returns the row in [from, to) with the lowest score. Ties keep
// the first row. from is returned when the window is empty.
func bestCut(img image.Image, from, to int, quiet float64) int {
	best := from
	bestScore := -1.0
	for y := from; y < to; y++ {
		score := RowScore(img, y)
		if bestScore < 0 || score < bestScore {
			bestScore = score
			best = y
		}
		if score < quiet {
			break
		}
	}
	return best
}

// RowScore is the mean of (R+G+B)/3 across the row's pixels, using 8-bit
// non-premultiplied channels. y is relative to the image's top edge.
func RowScore(img image.Image, y int) float64 {
	b := img.Bounds()
	w := b.Dx()
	if w == 0 {
		return 0
	}
	py := b.Min.Y + y

	var sum float64
	switch m := img.(type) {
	case *image.NRGBA:
		row := m.Pix[m.PixOffset(b.Min.X, py):]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			sum += float64(int(p[0])+int(p[1])+int(p[2])) / 3
		}
	default:
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, py)).(color.NRGBA)
			sum += float64(int(c.R)+int(c.G)+int(c.B)) / 3
		}
	}
	return sum / float64(w)
}

// BudgetChunks cuts a width x height image into equal bands that each hold
// at most maxPixels pixels; the last band takes the remainder. This is
// the content-blind fallback used when a capture must only respect a
// per-slice pixel budget.
func BudgetChunks(width, height, maxPixels int) []Chunk {
	if height <= 0 {
		return nil
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	band := height
	if width > 0 {
		band = max(1, maxPixels/width)
	}

	var chunks []Chunk
	for top := 0; top < height; top += band {
		chunks = append(chunks, Chunk{Top: top, Bottom: min(top+band, height)})
	}
	return chunks
}
