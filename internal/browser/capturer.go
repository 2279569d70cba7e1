package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/webclip/capture"
)

// RodCapturer implements capture.Capturer with Page.captureScreenshot of
// the current viewport.
type RodCapturer struct {
	tab     *Tab
	format  proto.PageCaptureScreenshotFormat
	quality int
}

// NewRodCapturer returns a capturer for tab. format is "png", "jpeg" or
// "webp"; quality applies to the lossy formats.
func NewRodCapturer(tab *Tab, format string, quality int) (*RodCapturer, error) {
	f, err := screenshotFormat(format)
	if err != nil {
		return nil, err
	}
	return &RodCapturer{tab: tab, format: f, quality: quality}, nil
}

func screenshotFormat(s string) (proto.PageCaptureScreenshotFormat, error) {
	switch s {
	case "", "png":
		return proto.PageCaptureScreenshotFormatPng, nil
	case "jpeg", "jpg":
		return proto.PageCaptureScreenshotFormatJpeg, nil
	case "webp":
		return proto.PageCaptureScreenshotFormatWebp, nil
	}
	return "", fmt.Errorf("browser: unsupported screenshot format %q", s)
}

// MIME returns the media type of the frames this capturer produces.
func (c *RodCapturer) MIME() string { return "image/" + string(c.format) }

// CaptureVisible implements capture.Capturer.
func (c *RodCapturer) CaptureVisible(ctx context.Context) (capture.Frame, error) {
	req := &proto.PageCaptureScreenshot{Format: c.format}
	if c.format != proto.PageCaptureScreenshotFormatPng && c.quality > 0 {
		q := c.quality
		req.Quality = &q
	}
	data, err := c.tab.Page.Context(ctx).Screenshot(false, req)
	if err != nil {
		return capture.Frame{}, fmt.Errorf("browser: screenshot: %w", err)
	}
	return capture.Frame{Image: data, MIME: c.MIME()}, nil
}
