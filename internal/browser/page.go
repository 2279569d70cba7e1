package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/webclip/capture"
	"github.com/hazyhaar/webclip/geometry"
)

//go:embed page.js
var pageJS string

//go:embed select.js
var selectJS string

const bindingName = "__webclip_binding"

// RodPage implements capture.Page on a Tab. With a selector the element
// is resolved with querySelector and scrolled to the top of the window;
// without one the user picks it (hover highlights, click confirms,
// Escape cancels).
type RodPage struct {
	tab        *Tab
	selector   string
	excerptLen int
	logger     *slog.Logger

	once       sync.Once
	installErr error
}

// NewRodPage wraps tab. An empty selector selects interactively.
func NewRodPage(tab *Tab, selector string, logger *slog.Logger) *RodPage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodPage{tab: tab, selector: selector, excerptLen: DefaultExcerptLen, logger: logger}
}

// SetExcerptLen caps the markdown excerpt in runes. Zero keeps the
// default; a negative value disables the excerpt.
func (p *RodPage) SetExcerptLen(n int) {
	if n != 0 {
		p.excerptLen = n
	}
}

func (p *RodPage) install(ctx context.Context) error {
	p.once.Do(func() {
		_, err := p.tab.Page.Context(ctx).Eval("() => {\n" + pageJS + "\n}")
		if err != nil {
			p.installErr = fmt.Errorf("browser: install helpers: %w", err)
		}
	})
	return p.installErr
}

// Select implements capture.Page.
func (p *RodPage) Select(ctx context.Context) (capture.Selection, error) {
	if err := p.install(ctx); err != nil {
		return capture.Selection{}, err
	}

	var sel capture.Selection
	var err error
	if p.selector != "" {
		sel, err = p.selectCSS(ctx)
	} else {
		sel, err = p.selectInteractive(ctx)
	}
	if err != nil {
		return capture.Selection{}, err
	}

	p.fillMeta(ctx, &sel.Meta)
	return sel, nil
}

func (p *RodPage) selectCSS(ctx context.Context) (capture.Selection, error) {
	res, err := p.tab.Page.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		if (!el) return null;
		el.scrollIntoView({ block: 'start', inline: 'nearest', behavior: 'instant' });
		window.__webclip_selected = el;
		return window.__webclip_metrics(el);
	}`, p.selector)
	if err != nil {
		return capture.Selection{}, fmt.Errorf("browser: select %q: %w", p.selector, err)
	}
	if res.Value.Nil() {
		return capture.Selection{}, fmt.Errorf("browser: no element matches %q", p.selector)
	}
	var sel capture.Selection
	if err := res.Value.Unmarshal(&sel); err != nil {
		return capture.Selection{}, fmt.Errorf("browser: decode metrics: %w", err)
	}
	return sel, nil
}

type selectResult struct {
	OK      bool              `json:"ok"`
	Reason  string            `json:"reason"`
	Metrics capture.Selection `json:"metrics"`
}

func (p *RodPage) selectInteractive(ctx context.Context) (capture.Selection, error) {
	page := p.tab.Page.Context(ctx)

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		p.logger.Debug("browser: addBinding failed (may already exist)", "error", err)
	}

	var payload string
	wait := page.EachEvent(func(e *proto.RuntimeBindingCalled) bool {
		if e.Name != bindingName {
			return false
		}
		payload = e.Payload
		return true
	})

	if _, err := page.Eval("() => {\n" + selectJS + "\n}"); err != nil {
		return capture.Selection{}, fmt.Errorf("browser: start selection: %w", err)
	}
	p.logger.Info("browser: waiting for element selection", "url", p.tab.PageURL)
	wait()

	if err := ctx.Err(); err != nil {
		return capture.Selection{}, err
	}
	var r selectResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return capture.Selection{}, fmt.Errorf("browser: decode selection: %w", err)
	}
	if !r.OK {
		return capture.Selection{}, fmt.Errorf("browser: %s: %w", r.Reason, capture.ErrSelectCanceled)
	}
	return r.Metrics, nil
}

// fillMeta completes the title from the document head when empty and
// attaches a markdown excerpt of the selected element. Failures only
// leave fields empty.
func (p *RodPage) fillMeta(ctx context.Context, meta *capture.PageMeta) {
	page := p.tab.Page.Context(ctx)
	if meta.URL == "" {
		meta.URL = p.tab.PageURL
	}
	if meta.Title == "" {
		if res, err := page.Eval(`() => document.head ? document.head.outerHTML : ''`); err == nil {
			meta.Title = TitleFromHTML(res.Value.Str())
		}
	}
	if p.excerptLen <= 0 {
		return
	}
	res, err := page.Eval(`() => window.__webclip_selected ? window.__webclip_selected.outerHTML : ''`)
	if err != nil {
		p.logger.Debug("browser: read selected element", "error", err)
		return
	}
	md, err := Excerpt(res.Value.Str(), meta.URL, p.excerptLen)
	if err != nil {
		p.logger.Debug("browser: excerpt", "error", err)
		return
	}
	meta.Excerpt = md
}

// Mask implements capture.Page.
func (p *RodPage) Mask(ctx context.Context, rect geometry.Rect) (func(), error) {
	if err := p.install(ctx); err != nil {
		return nil, err
	}
	res, err := p.tab.Page.Context(ctx).Eval(`(r) => window.__webclip_mask(r)`, rect)
	if err != nil {
		return nil, fmt.Errorf("browser: mask: %w", err)
	}
	id := res.Value.Str()
	return sync.OnceFunc(func() {
		_, err := p.tab.Page.Timeout(5*time.Second).Eval(`(id) => window.__webclip_unmask(id)`, id)
		if err != nil {
			p.logger.Debug("browser: unmask", "error", err)
		}
	}), nil
}

// ScrollTo implements capture.Page.
func (p *RodPage) ScrollTo(ctx context.Context, top float64) error {
	_, err := p.tab.Page.Context(ctx).Eval(`(y) => window.scrollTo({ top: y, left: 0, behavior: 'instant' })`, top)
	if err != nil {
		return fmt.Errorf("browser: scroll to %v: %w", top, err)
	}
	return nil
}
