package collector

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var _ LinkCollector = (*HTMLLinkCollector)(nil)

// HTMLLinkCollector is a collector that collects links from a reader of an HTML document.
//
// It reads href of a, link and area, src of img, source and script, and action of form. The text of an anchor is
// the text between its tags, other elements are described by their alt or title attribute.
//
//	c := NewHTMLLinkCollector(WithScriptLinks())
//	links, err := c.GetLinks(r)
//	if err != nil {
//		return nil, err
//	}
//
//	fmt.Println(links)
type HTMLLinkCollector struct {
	tagAttributes map[string]string // Key is tag name, Value is attribute name.
	scripts       *ScriptLinkCollector
}

// GetLinks collects links from a reader of an HTML document.
func (c HTMLLinkCollector) GetLinks(r io.Reader) ([]Link, error) {
	z := html.NewTokenizer(r)
	links := make([]Link, 0, initialLinksCapacity)

	var (
		anchor     = -1 // Index of the open anchor collecting text.
		anchorText strings.Builder
		inScript   bool
	)

	closeAnchor := func() {
		if text := collapseSpaces(anchorText.String()); anchor >= 0 && text != "" {
			links[anchor].Text = text
		}

		anchor = -1

		anchorText.Reset()
	}

process:
	for {
		switch tt := z.Next(); tt { // nolint: exhaustive // Other tokens carry no links.
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				break process
			}

			return nil, fmt.Errorf("could not collect links from html doc: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			tag := z.Token()

			if tag.Data == "a" && tt == html.StartTagToken {
				closeAnchor()
			}

			if tag.Data == "script" && tt == html.StartTagToken && attrValue(tag, "src") == "" {
				inScript = true
			}

			wantAttr, ok := c.tagAttributes[tag.Data]
			if !ok {
				continue
			}

			val, ok := attr(tag, wantAttr)
			if !ok {
				continue
			}

			links = append(links, Link{
				// In HTML, \n does not mean new line. Browser will ignore it, so link like "\nhttps://example.org/\npath"
				// will be interpreted as "https://example.org/path".
				URL:  strings.ReplaceAll(val, "\n", ""),
				Text: describe(tag),
			})

			if tag.Data == "a" && tt == html.StartTagToken {
				anchor = len(links) - 1
			}

		case html.EndTagToken:
			switch name, _ := z.TagName(); string(name) {
			case "a":
				closeAnchor()
			case "script":
				inScript = false
			}

		case html.TextToken:
			switch {
			case inScript && c.scripts != nil:
				scriptLinks, _ := c.scripts.GetLinks(strings.NewReader(string(z.Text()))) // nolint: errcheck // Reading from memory.
				links = append(links, scriptLinks...)

			case anchor >= 0:
				anchorText.WriteString(" ")
				anchorText.Write(z.Text())
			}
		}
	}

	closeAnchor()

	// Reduce memory allocation. GC will clean up the old links slice.
	result := make([]Link, len(links))
	copy(result, links)

	return result, nil
}

func attr(tag html.Token, key string) (string, bool) {
	for _, a := range tag.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

func attrValue(tag html.Token, key string) string {
	v, _ := attr(tag, key)

	return v
}

// describe returns the describing attribute of a tag. The visible text of an anchor replaces it when there is one.
func describe(tag html.Token) string {
	for _, key := range []string{"alt", "title", "aria-label"} {
		if v := collapseSpaces(attrValue(tag, key)); v != "" {
			return v
		}
	}

	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NewHTMLLinkCollector creates a new collector for collecting links from an HTML document.
func NewHTMLLinkCollector(opts ...HTMLOption) *HTMLLinkCollector {
	c := &HTMLLinkCollector{
		tagAttributes: map[string]string{
			"a":      "href",
			"link":   "href",
			"area":   "href",
			"img":    "src",
			"source": "src",
			"script": "src",
			"form":   "action",
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HTMLOption is option to set up HTMLLinkCollector.
type HTMLOption func(c *HTMLLinkCollector)

// WithScriptLinks also collects url literals from inline scripts.
func WithScriptLinks() HTMLOption {
	return func(c *HTMLLinkCollector) {
		c.scripts = NewScriptLinkCollector()
	}
}
