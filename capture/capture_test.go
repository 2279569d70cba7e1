package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/webclip/geometry"
)

type fakePage struct {
	mu        sync.Mutex
	sel       Selection
	selectErr error
	scrollErr error
	scrolls   []float64
	disposed  int
}

func (p *fakePage) Select(ctx context.Context) (Selection, error) {
	if p.selectErr != nil {
		return Selection{}, p.selectErr
	}
	return p.sel, nil
}

func (p *fakePage) Mask(ctx context.Context, rect geometry.Rect) (func(), error) {
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.disposed++
			p.mu.Unlock()
		})
	}, nil
}

func (p *fakePage) ScrollTo(ctx context.Context, top float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scrollErr != nil {
		return p.scrollErr
	}
	p.scrolls = append(p.scrolls, top)
	return nil
}

func (p *fakePage) scrolled() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.scrolls...)
}

type fakeCapturer struct {
	mu    sync.Mutex
	calls int
	// hook runs before each frame with the 1-based call number.
	hook func(ctx context.Context, call int) error
}

func (c *fakeCapturer) CaptureVisible(ctx context.Context) (Frame, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if c.hook != nil {
		if err := c.hook(ctx, n); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Image: []byte(fmt.Sprintf("frame-%d", n)), MIME: "image/png"}, nil
}

// articleSelection is a 400x300 element at (50,100) in a 1000x800 window,
// 1000px tall in total.
func articleSelection() Selection {
	return Selection{
		Box:           geometry.BoundingBox{Top: 100, Left: 50, Right: 450, Bottom: 400},
		Viewport:      geometry.Viewport{InnerWidth: 1000, InnerHeight: 800, ClientWidth: 1000, ClientHeight: 800},
		ContentWidth:  400,
		ContentHeight: 1000,
		Meta:          PageMeta{URL: "https://example.org/post", Title: "Post"},
	}
}

func fastOptions() Options {
	return Options{SettleDelay: time.Millisecond, SessionTimeout: 5 * time.Second}
}

func TestOrchestrator_CapturesWholeRegion(t *testing.T) {
	page := &fakePage{sel: articleSelection()}
	var progress [][2]int
	opts := fastOptions()
	opts.Progress = func(done, total int) { progress = append(progress, [2]int{done, total}) }

	o := NewOrchestrator(page, &fakeCapturer{}, nil, opts)
	res, err := o.Capture(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Slices, 4)
	for i, s := range res.Slices {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, fmt.Sprintf("frame-%d", i+1), string(s.Image))
		assert.True(t, s.Rect.Valid(), "slice %d rect %+v", i, s.Rect)
	}
	last := res.Slices[3].Rect
	assert.InDelta(t, 100.0/800, last.Height, 1e-9)
	assert.InDelta(t, 300.0/800, last.Top, 1e-9)
	assert.InDelta(t, 0.05, last.Left, 1e-9)
	assert.InDelta(t, 0.4, last.Width, 1e-9)

	assert.Equal(t, []float64{300, 600, 700}, page.scrolled())
	assert.Equal(t, 1, page.disposed)
	assert.Equal(t, "Post", res.Page.Title)
	assert.Equal(t, [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}, progress)
	assert.Zero(t, o.Sessions().Len())
}

func TestOrchestrator_AwaitRepaint(t *testing.T) {
	page := &fakePage{sel: articleSelection()}
	opts := fastOptions()
	opts.AwaitRepaint = true

	res, err := NewOrchestrator(page, &fakeCapturer{}, nil, opts).Capture(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Slices, 4)
	assert.Equal(t, []float64{300, 600, 700}, page.scrolled())
}

func TestOrchestrator_CaptureErrorFails(t *testing.T) {
	page := &fakePage{sel: articleSelection()}
	boom := errors.New("screenshot throttled")
	capturer := &fakeCapturer{hook: func(_ context.Context, call int) error {
		if call == 2 {
			return boom
		}
		return nil
	}}

	var finished []Session
	sessions := NewSessions(nil)
	sessions.OnFinish(func(s Session) { finished = append(finished, s) })

	res, err := NewOrchestrator(page, capturer, sessions, fastOptions()).Capture(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrCaptureFailure)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAborted)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "capture", ce.Op)
	assert.NotEmpty(t, ce.SessionID)

	require.Len(t, finished, 1)
	assert.Equal(t, Failed, finished[0].State)
	assert.Empty(t, finished[0].Slices)
	assert.Zero(t, sessions.Len())
}

func TestOrchestrator_CancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	capturer := &fakeCapturer{hook: func(_ context.Context, call int) error {
		if call == 2 {
			cancel()
		}
		return nil
	}}

	res, err := NewOrchestrator(&fakePage{sel: articleSelection()}, capturer, nil, fastOptions()).Capture(ctx)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrchestrator_SessionTimeout(t *testing.T) {
	capturer := &fakeCapturer{hook: func(ctx context.Context, call int) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	opts := fastOptions()
	opts.SessionTimeout = 20 * time.Millisecond

	_, err := NewOrchestrator(&fakePage{sel: articleSelection()}, capturer, nil, opts).Capture(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOrchestrator_PageGoneAborts(t *testing.T) {
	page := &fakePage{sel: articleSelection(), scrollErr: errors.New("target closed")}
	capturer := &fakeCapturer{}
	opts := fastOptions()
	opts.AwaitRepaint = true

	_, err := NewOrchestrator(page, capturer, nil, opts).Capture(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, capturer.calls)
}

func TestOrchestrator_SelectionCanceled(t *testing.T) {
	page := &fakePage{selectErr: fmt.Errorf("escape pressed: %w", ErrSelectCanceled)}
	capturer := &fakeCapturer{}
	_, err := NewOrchestrator(page, capturer, nil, fastOptions()).Capture(context.Background())
	assert.ErrorIs(t, err, ErrSelectCanceled)
	assert.Zero(t, capturer.calls)
}

func TestOrchestrator_SelectorMissIsCaptureFailure(t *testing.T) {
	page := &fakePage{selectErr: errors.New("no element matches #missing")}
	_, err := NewOrchestrator(page, &fakeCapturer{}, nil, fastOptions()).Capture(context.Background())
	assert.ErrorIs(t, err, ErrCaptureFailure)
}

func TestOrchestrator_DegenerateRegion(t *testing.T) {
	sel := articleSelection()
	sel.Box = geometry.BoundingBox{Top: 900, Left: 50, Right: 450, Bottom: 1200}
	_, err := NewOrchestrator(&fakePage{sel: sel}, &fakeCapturer{}, nil, fastOptions()).Capture(context.Background())
	assert.ErrorIs(t, err, ErrDegenerateRegion)
	assert.ErrorIs(t, err, ErrCaptureFailure)
}

func TestPlan_LoopTermination(t *testing.T) {
	region := geometry.CaptureRegion{
		Rect:          geometry.Rect{Top: 0, Left: 0, Width: 500, Height: 300},
		ContentWidth:  500,
		ContentHeight: 1000,
		WindowWidth:   1000,
		WindowHeight:  600,
	}
	steps, err := Plan(region)
	require.NoError(t, err)
	require.Len(t, steps, 4)

	var total float64
	for _, s := range steps {
		total += s.Distance
		assert.True(t, s.Rect.Valid())
	}
	assert.Equal(t, 1000.0, total)
	assert.InDelta(t, 100.0/600, steps[3].Rect.Height, 1e-9)
	assert.Equal(t, []float64{300, 600, 700, 700},
		[]float64{steps[0].ScrollTop, steps[1].ScrollTop, steps[2].ScrollTop, steps[3].ScrollTop})
}

func TestPlan_ShortContentIsOneStep(t *testing.T) {
	region := geometry.CaptureRegion{
		Rect:          geometry.Rect{Top: 10, Left: 10, Width: 100, Height: 200},
		ContentHeight: 150,
		WindowWidth:   800,
		WindowHeight:  600,
	}
	steps, err := Plan(region)
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestPlan_Rejects(t *testing.T) {
	_, err := Plan(geometry.CaptureRegion{WindowWidth: 100, WindowHeight: 100})
	assert.ErrorIs(t, err, ErrDegenerateRegion)

	tall := geometry.CaptureRegion{
		Rect:          geometry.Rect{Width: 10, Height: 1},
		ContentHeight: MaxSteps * 10,
		WindowWidth:   100,
		WindowHeight:  100,
	}
	_, err = Plan(tall)
	assert.ErrorIs(t, err, ErrCaptureFailure)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, Idle.CanTransition(Selecting))
	assert.True(t, Capturing.CanTransition(ScrollRequested))
	assert.True(t, ScrollRequested.CanTransition(Capturing))
	assert.False(t, Idle.CanTransition(Capturing))
	assert.False(t, Done.CanTransition(Capturing))
	assert.True(t, Failed.Terminal())
	assert.Equal(t, "scroll_requested", ScrollRequested.String())
}

func TestSessions(t *testing.T) {
	s := NewSessions(nil)
	id := s.NewID()
	assert.Regexp(t, `^cap_`, id)

	require.NoError(t, s.Create(id, PageMeta{URL: "u"}, geometry.CaptureRegion{}))
	assert.Error(t, s.Create(id, PageMeta{}, geometry.CaptureRegion{}))

	require.NoError(t, s.Append(id, Slice{Index: 0}))
	assert.Error(t, s.Append(id, Slice{Index: 2}), "out of order")
	assert.Error(t, s.Transition(id, Selecting))

	sess, err := s.Complete(id)
	require.NoError(t, err)
	assert.Equal(t, Done, sess.State)
	assert.Len(t, sess.Slices, 1)
	_, ok := s.Get(id)
	assert.False(t, ok)
}

func TestSessions_Sweep(t *testing.T) {
	s := NewSessions(nil)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Create("old", PageMeta{}, geometry.CaptureRegion{}))
	now = now.Add(3 * time.Minute)
	require.NoError(t, s.Create("new", PageMeta{}, geometry.CaptureRegion{}))

	var failed []Session
	s.OnFinish(func(sess Session) { failed = append(failed, sess) })
	assert.Equal(t, []string{"old"}, s.Sweep(2*time.Minute))
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrAborted)
	assert.Equal(t, 1, s.Len())
}
