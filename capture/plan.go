package capture

import (
	"fmt"
	"math"

	"github.com/hazyhaar/webclip/geometry"
)

// MaxSteps bounds the number of frames a single region may need.
const MaxSteps = 2000

// Step is one iteration of the capture loop.
type Step struct {
	// Rect is the window fraction of the frame that belongs to the region.
	Rect geometry.NormalizedRect `json:"rect"`
	// Distance is the number of region pixels this frame contributes.
	Distance float64 `json:"distance"`
	// ScrollTop is the window scroll offset requested after the frame.
	ScrollTop float64 `json:"scroll_top"`
}

// Plan unrolls the capture loop for region. The first frame covers the
// visible part of the region; each following frame scrolls by at most
// the region's height until ContentHeight is exhausted. The last step's
// ScrollTop equals the previous one when nothing is left to scroll.
func Plan(region geometry.CaptureRegion) ([]Step, error) {
	if region.Degenerate() || anyNaN(region) {
		return nil, ErrDegenerateRegion
	}

	distance := region.Height
	remaining := region.ContentHeight - distance
	scrollTop := region.ScrollTop

	var steps []Step
	for distance > 0 {
		if len(steps) == MaxSteps {
			return nil, fmt.Errorf("%w: region needs more than %d frames", ErrCaptureFailure, MaxSteps)
		}
		step := Step{Rect: region.Normalize(distance), Distance: distance}

		distance = math.Min(remaining, region.Height)
		remaining -= distance
		scrollTop += math.Max(0, distance)

		step.ScrollTop = scrollTop
		steps = append(steps, step)
	}
	return steps, nil
}

func anyNaN(r geometry.CaptureRegion) bool {
	for _, v := range [...]float64{r.Top, r.Left, r.Width, r.Height, r.ContentHeight, r.ScrollTop} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
