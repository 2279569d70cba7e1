// Package webclip captures a region of a web page as a tall raster, cuts
// it into bands at visually quiet rows and packs the bands into an
// .inkclip container handed to the configured sinks.
//
// The pipeline:
//
//	trigger → select element → scroll-and-capture → stitch → slice → encode → sinks
//
// Usage:
//
//	c, err := webclip.New(cfg, logger)
//	defer c.Stop()
//	c.Start(ctx)
//	art, err := c.Clip(ctx, webclip.Request{URL: u, Selector: "article"})
//	c.RegisterMCP(mcpServer)
//	c.RegisterHTTP(chiRouter)
package webclip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/webclip/capture"
	"github.com/hazyhaar/webclip/config"
	"github.com/hazyhaar/webclip/horosafe"
	"github.com/hazyhaar/webclip/idgen"
	"github.com/hazyhaar/webclip/internal/browser"
	"github.com/hazyhaar/webclip/sink"
	"github.com/hazyhaar/webclip/store"
)

// ErrInvalidRequest is returned for requests rejected before any browser
// work starts.
var ErrInvalidRequest = errors.New("webclip: invalid request")

// Request triggers one capture.
type Request struct {
	URL string `json:"url"`
	// Selector picks the element with querySelector. Ignored when
	// Interactive is set.
	Selector string `json:"selector,omitempty"`
	// Interactive lets the user pick the element in a visible browser.
	Interactive bool `json:"interactive,omitempty"`
	// DocumentPath names the artifact for the storage collaborator.
	// Default: a timestamped name.
	DocumentPath string `json:"document_path,omitempty"`

	// Progress is called after every captured frame.
	Progress func(done, total int) `json:"-"`
}

// opener prepares the page side and the screenshot side of one capture.
// The returned func releases the tab.
type opener func(ctx context.Context, req Request) (capture.Page, capture.Capturer, func(), error)

// Clipper wires the browser, the capture orchestrator, the slicer, the
// container codec and the sinks.
type Clipper struct {
	cfg      *config.Config
	logger   *slog.Logger
	manager  *browser.Manager
	stealth  browser.StealthLevel
	sessions *capture.Sessions
	router   *sink.Router
	store    *store.Store
	clipID   idgen.Generator
	docPath  idgen.Generator
	open     opener

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Clipper. Sinks named in cfg are opened and receive every
// artifact along with the extra sinks passed here. A nil cfg uses the
// defaults.
func New(cfg *config.Config, logger *slog.Logger, extra ...sink.Sink) (*Clipper, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	level, err := browser.ParseStealth(cfg.Browser.Stealth)
	if err != nil {
		return nil, err
	}

	sinks, st, err := openSinks(cfg, logger)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, extra...)

	c := &Clipper{
		cfg:      cfg,
		logger:   logger,
		stealth:  level,
		sessions: capture.NewSessions(nil),
		router:   sink.NewRouter(logger, sinks...),
		store:    st,
		clipID:   idgen.Default,
		docPath:  idgen.Prefixed("clip_", idgen.Timestamped(idgen.NanoID(6))),
	}
	c.manager = browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Bin:              cfg.Browser.Bin,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          level,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		ScreenWidth:      cfg.Capture.Viewport.Width,
		ScreenHeight:     cfg.Capture.Viewport.Height,
		Logger:           logger,
	})
	c.open = c.openTab

	if st != nil {
		c.sessions.OnFinish(func(s capture.Session) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := st.RecordSession(ctx, s); err != nil {
				logger.Warn("webclip: record session", "session", s.ID, "error", err)
			}
		})
	}
	return c, nil
}

// Start launches Chrome and the session sweeper. Both stop with ctx or Stop.
func (c *Clipper) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	if _, err := c.manager.Start(ctx); err != nil {
		cancel()
		return err
	}
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.sweep(ctx)
	}()

	c.logger.Info("webclip: started", "stealth", c.cfg.Browser.Stealth, "sinks", c.router.Len())
	return nil
}

func (c *Clipper) sweep(ctx context.Context) {
	ttl := c.cfg.Server.SessionTTL
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := c.sessions.Sweep(ttl); len(ids) > 0 {
				c.logger.Debug("webclip: swept sessions", "count", len(ids))
			}
		}
	}
}

// Stop shuts down Chrome and closes every sink.
func (c *Clipper) Stop() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.wg.Wait()

	return errors.Join(c.manager.Close(), c.router.Close())
}

// Sessions returns the capture session registry.
func (c *Clipper) Sessions() *capture.Sessions { return c.sessions }

// Store returns the SQLite store, or nil when no store sink is configured.
func (c *Clipper) Store() *store.Store { return c.store }

// Clip opens req.URL, captures the selected element, builds the artifact
// and delivers it to every sink. The artifact is returned only once every
// sink acknowledged it.
func (c *Clipper) Clip(ctx context.Context, req Request) (*sink.Artifact, error) {
	docPath, err := c.validate(&req)
	if err != nil {
		return nil, err
	}

	page, capturer, release, err := c.open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer release()

	orch := capture.NewOrchestrator(page, capturer, c.sessions, capture.Options{
		SettleDelay:    c.cfg.Capture.SettleDelay,
		AwaitRepaint:   c.cfg.Capture.AwaitRepaint,
		SessionTimeout: c.cfg.Capture.SessionTimeout,
		Progress:       req.Progress,
		Logger:         c.logger,
	})
	res, err := orch.Capture(ctx)
	if err != nil {
		return nil, err
	}

	art, err := c.Build(res, docPath)
	if err != nil {
		return nil, err
	}
	if err := c.router.Send(ctx, *art); err != nil {
		return nil, fmt.Errorf("webclip: deliver %s: %w", art.ID, err)
	}
	c.logger.Info("webclip: clip stored",
		"id", art.ID, "session", art.SessionID, "url", art.URL,
		"slices", art.SliceCount, "bytes", art.Size())
	return art, nil
}

func (c *Clipper) validate(req *Request) (string, error) {
	if req.URL == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if !c.cfg.Server.AllowPrivate {
		if err := horosafe.ValidateURL(req.URL); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	if req.Interactive {
		req.Selector = ""
		if c.stealth != browser.LevelHeadful && c.cfg.Browser.Remote == "" {
			c.logger.Warn("webclip: interactive selection in a headless browser", "stealth", c.cfg.Browser.Stealth)
		}
	} else if req.Selector == "" {
		return "", fmt.Errorf("%w: selector is required unless interactive", ErrInvalidRequest)
	}

	docPath := req.DocumentPath
	if docPath == "" {
		docPath = c.docPath()
	}
	if _, err := horosafe.SafePath("/webclip", docPath); err != nil {
		return "", fmt.Errorf("%w: document path: %w", ErrInvalidRequest, err)
	}
	return docPath, nil
}

func (c *Clipper) openTab(ctx context.Context, req Request) (capture.Page, capture.Capturer, func(), error) {
	vp := c.cfg.Capture.Viewport
	tab, err := browser.OpenTab(ctx, c.manager, req.URL, c.clipID(), c.stealth,
		browser.Viewport{Width: vp.Width, Height: vp.Height, Scale: vp.Scale})
	if err != nil {
		return nil, nil, nil, err
	}

	capturer, err := browser.NewRodCapturer(tab, c.cfg.Capture.Format, c.cfg.Capture.Quality)
	if err != nil {
		_ = tab.Close()
		return nil, nil, nil, err
	}
	page := browser.NewRodPage(tab, req.Selector, c.logger)
	page.SetExcerptLen(c.cfg.Capture.ExcerptLength)

	return page, capturer, func() { _ = tab.Close() }, nil
}
