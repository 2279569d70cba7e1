package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"fonts": true, "media": true, "xhr": true}
	assert.True(t, shouldBlock(set, "Font"))
	assert.True(t, shouldBlock(set, "Media"))
	assert.True(t, shouldBlock(set, "XHR"))
	assert.False(t, shouldBlock(set, "Image"))
	assert.False(t, shouldBlock(set, "Stylesheet"))
	assert.False(t, shouldBlock(set, "Document"))
}

func TestParseStealth(t *testing.T) {
	for in, want := range map[string]StealthLevel{"": LevelHeadless, "plain": LevelPlain, "headless": LevelHeadless, "headful": LevelHeadful} {
		got, err := ParseStealth(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStealth("invisible")
	assert.Error(t, err)
}

func TestScreenshotFormat(t *testing.T) {
	c, err := NewRodCapturer(nil, "jpeg", 80)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", c.MIME())

	c, err = NewRodCapturer(nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.MIME())

	_, err = NewRodCapturer(nil, "gif", 0)
	assert.Error(t, err)
}

func TestTitleFromHTML(t *testing.T) {
	head := `<html><head><title> Plain title </title><meta property="og:title" content="Social title"></head></html>`
	assert.Equal(t, "Social title", TitleFromHTML(head))
	assert.Equal(t, "Plain title", TitleFromHTML(`<head><title> Plain title </title></head>`))
	assert.Empty(t, TitleFromHTML(`<p>no head</p>`))
}

func TestExcerpt(t *testing.T) {
	md, err := Excerpt(`<article><h2>Heading</h2><p>Some <a href="/a">link</a>.</p></article>`, "https://example.org/post", 0)
	require.NoError(t, err)
	assert.Contains(t, md, "## Heading")
	assert.Contains(t, md, "[link](https://example.org/a)")

	long, err := Excerpt("<p>"+strings.Repeat("word ", 100)+"</p>", "https://example.org", 20)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(long, "…"))
	assert.LessOrEqual(t, len([]rune(long)), 21)

	empty, err := Excerpt("   ", "", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
