package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/webclip"
	"github.com/hazyhaar/webclip/sink"
)

var captureOpts struct {
	selector     string
	interactive  bool
	out          string
	docPath      string
	allowPrivate bool
	quiet        bool
}

var captureCmd = &cobra.Command{
	Use:   "capture <url>",
	Short: "Capture one element of a page and deliver the artifact to the configured sinks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if captureOpts.allowPrivate {
			cfg.Server.AllowPrivate = true
		}

		var extra []sink.Sink
		if captureOpts.out != "" {
			extra = append(extra, sink.NewCallback(writeArtifact(captureOpts.out)))
		}

		c, err := webclip.New(cfg, logger, extra...)
		if err != nil {
			return err
		}
		defer c.Stop()
		if err := c.Start(cmd.Context()); err != nil {
			return err
		}

		req := webclip.Request{
			URL:          args[0],
			Selector:     captureOpts.selector,
			Interactive:  captureOpts.interactive,
			DocumentPath: captureOpts.docPath,
		}
		var bar *progressbar.ProgressBar
		if !captureOpts.quiet {
			req.Progress = func(done, total int) {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("capturing"),
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}
				_ = bar.Set(done)
			}
		}

		art, err := c.Clip(cmd.Context(), req)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":            art.ID,
			"session_id":    art.SessionID,
			"url":           art.URL,
			"title":         art.Title,
			"document_path": art.DocumentPath,
			"width":         art.Width,
			"height":        art.Height,
			"slices":        art.SliceCount,
			"bytes":         art.Size(),
		})
	},
}

func init() {
	f := captureCmd.Flags()
	f.StringVar(&captureOpts.selector, "selector", "", "CSS selector of the element to capture")
	f.BoolVar(&captureOpts.interactive, "interactive", false, "pick the element in the browser window")
	f.StringVarP(&captureOpts.out, "out", "o", "", "also write the .inkclip container to this file")
	f.StringVar(&captureOpts.docPath, "path", "", "document path for the storage backend")
	f.BoolVar(&captureOpts.allowPrivate, "allow-private", false, "allow loopback and private network targets")
	f.BoolVarP(&captureOpts.quiet, "quiet", "q", false, "no progress bar")
	captureCmd.MarkFlagsMutuallyExclusive("selector", "interactive")
}

func writeArtifact(path string) sink.Func {
	return func(_ context.Context, a sink.Artifact) error {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(path, a.Container, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
}
