package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/webclip/container"
	"github.com/hazyhaar/webclip/stitch"
)

func writeTestContainer(t *testing.T) string {
	t.Helper()
	var slices []container.Slice
	for _, h := range []int{20, 15} {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 30, h))))
		slices = append(slices, container.Slice{Width: 30, Height: uint32(h), Data: stitch.EncodeDataURL("image/png", buf.Bytes())})
	}
	data, err := container.Encode(container.Container{Width: 30, Height: 35, Slices: slices})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "clip.inkclip")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", writeTestContainer(t))
	require.NoError(t, err)

	var h container.Header
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, uint32(35), h.Height)
	require.Len(t, h.Descriptors, 2)
	assert.Equal(t, uint32(15), h.Descriptors[1].Height)
}

func TestRender(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "preview.png")
	_, err := run(t, "render", writeTestContainer(t), "--out", dst)
	require.NoError(t, err)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 35, cfg.Height)
}

func TestInspect_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.inkclip")
	require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 1}, 0o644))
	_, err := run(t, "inspect", path)
	assert.ErrorIs(t, err, container.ErrMalformedContainer)
}
