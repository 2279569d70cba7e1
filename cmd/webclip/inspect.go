package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/webclip/container"
	"github.com/hazyhaar/webclip/horosafe"
	"github.com/hazyhaar/webclip/stitch"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.inkclip>",
	Short: "Print the header and slice descriptors of a container as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readContainer(args[0])
		if err != nil {
			return err
		}
		h, err := container.Inspect(data)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	},
}

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render <file.inkclip>",
	Short: "Stack the slices of a container into one PNG preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readContainer(args[0])
		if err != nil {
			return err
		}
		c, err := container.Decode(data)
		if err != nil {
			return err
		}
		img, err := stitch.Stack(c)
		if err != nil {
			return err
		}

		f, err := os.Create(renderOut)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("encode %s: %w", renderOut, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("webclip: rendered", "file", renderOut, "width", img.Bounds().Dx(), "height", img.Bounds().Dy(), "slices", len(c.Slices))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "preview.png", "output PNG file")
}

func readContainer(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return horosafe.LimitedReadAll(f, horosafe.MaxArtifactSize)
}
