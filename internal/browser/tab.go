package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Viewport sizes the tab's layout viewport in CSS pixels.
type Viewport struct {
	Width  int
	Height int
	// Scale is the device pixel ratio. Default: 1.
	Scale float64
}

// DefaultNavigationTimeout bounds page navigation and load.
const DefaultNavigationTimeout = 30 * time.Second

// Tab is one page opened for a capture.
type Tab struct {
	Page     *rod.Page
	PageURL  string
	PageID   string
	Stealth  StealthLevel
	Viewport Viewport

	manager *Manager
	router  *rod.HijackRouter
	closed  bool
}

// OpenTab creates a tab with the requested viewport, navigates it to
// pageURL and waits for the load event. The tab counts against the
// manager until Close.
func OpenTab(ctx context.Context, mgr *Manager, pageURL, pageID string, level StealthLevel, vp Viewport) (*Tab, error) {
	b, err := mgr.acquire()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if level >= LevelHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		mgr.release()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{
		Page:     page,
		PageURL:  pageURL,
		PageID:   pageID,
		Stealth:  level,
		Viewport: vp,
		manager:  mgr,
	}

	if vp.Width > 0 && vp.Height > 0 {
		scale := vp.Scale
		if scale <= 0 {
			scale = 1
		}
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: scale,
		})
		if err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("browser: set viewport: %w", err)
		}
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		t.router = blockResources(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, DefaultNavigationTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return t, nil
}

// Close closes the tab and releases it from the manager. Safe to call
// more than once.
func (t *Tab) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	defer t.manager.release()

	if t.router != nil {
		_ = t.router.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
