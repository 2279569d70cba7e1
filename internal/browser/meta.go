package browser

import (
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultExcerptLen caps excerpts, in runes.
const DefaultExcerptLen = 2000

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// TitleFromHTML returns og:title when present, otherwise the <title> text.
func TitleFromHTML(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	if t := findOGTitle(root); t != "" {
		return t
	}
	return findTitle(root)
}

func findOGTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
		var prop, content string
		for _, a := range n.Attr {
			switch a.Key {
			case "property", "name":
				prop = a.Val
			case "content":
				content = a.Val
			}
		}
		if prop == "og:title" {
			return strings.TrimSpace(content)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findOGTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// Excerpt converts an element's outer HTML to markdown, resolving links
// against pageURL, and truncates the result to maxRunes.
func Excerpt(fragment, pageURL string, maxRunes int) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	md, err := mdConverter.ConvertString(fragment, converter.WithDomain(pageURL))
	if err != nil {
		return "", err
	}
	md = strings.TrimSpace(md)
	if maxRunes > 0 && utf8.RuneCountInString(md) > maxRunes {
		r := []rune(md)
		md = strings.TrimSpace(string(r[:maxRunes])) + "…"
	}
	return md, nil
}
