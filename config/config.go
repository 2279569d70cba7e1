// Package config loads webclip configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level webclip configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Capture CaptureConfig `yaml:"capture"`
	Slicer  SlicerConfig  `yaml:"slicer"`
	Sinks   SinksConfig   `yaml:"sinks"`
	Server  ServerConfig  `yaml:"server"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Bin              string        `yaml:"bin"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // plain | headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// CaptureConfig tunes the scroll-and-capture loop.
type CaptureConfig struct {
	SettleDelay    time.Duration  `yaml:"settle_delay"`
	AwaitRepaint   bool           `yaml:"await_repaint"`
	SessionTimeout time.Duration  `yaml:"session_timeout"`
	Format         string         `yaml:"format"`  // png | jpeg | webp
	Quality        int            `yaml:"quality"` // jpeg/webp only
	Viewport       ViewportConfig `yaml:"viewport"`
	ExcerptLength  int            `yaml:"excerpt_length"`
}

// ViewportConfig is the emulated window.
type ViewportConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float64 `yaml:"scale"`
}

// SlicerConfig selects how the assembled raster is cut.
type SlicerConfig struct {
	Mode           string  `yaml:"mode"` // content | budget
	TargetHeight   int     `yaml:"target_height"`
	SearchWindow   int     `yaml:"search_window"`
	QuietThreshold float64 `yaml:"quiet_threshold"`
	MaxPixels      int     `yaml:"max_pixels"`
	Encoding       string  `yaml:"encoding"` // png | jpeg
	Quality        int     `yaml:"quality"`
}

// SinksConfig enables output backends. Every configured sink receives
// every artifact.
type SinksConfig struct {
	Stdout  *StdoutSinkConfig  `yaml:"stdout"`
	File    *FileSinkConfig    `yaml:"file"`
	Webhook *WebhookSinkConfig `yaml:"webhook"`
	Store   *StoreSinkConfig   `yaml:"store"`
}

// StdoutSinkConfig prints one JSON line per artifact.
type StdoutSinkConfig struct {
	IncludeContainer bool `yaml:"include_container"`
}

// FileSinkConfig writes <dir>/<document path>.inkclip.
type FileSinkConfig struct {
	Dir string `yaml:"dir"`
}

// WebhookSinkConfig targets a document server space.
type WebhookSinkConfig struct {
	BaseURL string        `yaml:"base_url"`
	Space   string        `yaml:"space"`
	Token   string        `yaml:"token"`
	Secret  string        `yaml:"secret"`
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreSinkConfig persists artifacts and capture history in SQLite.
type StoreSinkConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls `webclip serve`.
type ServerConfig struct {
	Addr         string          `yaml:"addr"`
	AllowPrivate bool            `yaml:"allow_private"`
	SessionTTL   time.Duration   `yaml:"session_ttl"`
	CaptureRate  RateLimitConfig `yaml:"capture_rate"`
}

// RateLimitConfig bounds capture triggers per client IP. MaxRequests 0
// disables the limit.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// Load reads a YAML configuration file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.MemoryLimit == 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval == 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}

	if c.Capture.SettleDelay == 0 {
		c.Capture.SettleDelay = time.Second
	}
	if c.Capture.SessionTimeout == 0 {
		c.Capture.SessionTimeout = 2 * time.Minute
	}
	if c.Capture.Format == "" {
		c.Capture.Format = "png"
	}
	if c.Capture.Quality == 0 {
		c.Capture.Quality = 90
	}
	if c.Capture.Viewport.Width == 0 {
		c.Capture.Viewport.Width = 1280
	}
	if c.Capture.Viewport.Height == 0 {
		c.Capture.Viewport.Height = 800
	}
	if c.Capture.Viewport.Scale == 0 {
		c.Capture.Viewport.Scale = 1
	}
	if c.Capture.ExcerptLength == 0 {
		c.Capture.ExcerptLength = 2000
	}

	if c.Slicer.Mode == "" {
		c.Slicer.Mode = "content"
	}
	if c.Slicer.Encoding == "" {
		c.Slicer.Encoding = "png"
	}
	if c.Slicer.Quality == 0 {
		c.Slicer.Quality = 85
	}

	if w := c.Sinks.Webhook; w != nil {
		if w.Retries == 0 {
			w.Retries = 3
		}
		if w.Backoff == 0 {
			w.Backoff = time.Second
		}
		if w.Timeout == 0 {
			w.Timeout = 60 * time.Second
		}
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8087"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 10 * time.Minute
	}
	if c.Server.CaptureRate.Window == 0 {
		c.Server.CaptureRate.Window = time.Minute
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Browser.Stealth {
	case "plain", "headless", "headful":
	default:
		return fmt.Errorf("config: browser.stealth: unknown level %q", c.Browser.Stealth)
	}
	switch c.Capture.Format {
	case "png", "jpeg", "webp":
	default:
		return fmt.Errorf("config: capture.format: unsupported %q", c.Capture.Format)
	}
	switch c.Slicer.Mode {
	case "content", "budget":
	default:
		return fmt.Errorf("config: slicer.mode: unknown %q", c.Slicer.Mode)
	}
	switch c.Slicer.Encoding {
	case "png", "jpeg":
	default:
		return fmt.Errorf("config: slicer.encoding: unsupported %q", c.Slicer.Encoding)
	}
	if w := c.Sinks.Webhook; w != nil && (w.BaseURL == "" || w.Space == "") {
		return fmt.Errorf("config: sinks.webhook: base_url and space are required")
	}
	if f := c.Sinks.File; f != nil && f.Dir == "" {
		return fmt.Errorf("config: sinks.file: dir is required")
	}
	if s := c.Sinks.Store; s != nil && s.Path == "" {
		return fmt.Errorf("config: sinks.store: path is required")
	}
	return nil
}
