package downloader

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var refreshURLRegexp = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'";]+)`)

// findMetaRefresh returns the absolute target of the first meta refresh of the document.
func findMetaRefresh(body []byte, baseURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var target string

	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "refresh") {
			return true
		}

		if m := refreshURLRegexp.FindStringSubmatch(s.AttrOr("content", "")); m != nil {
			target = strings.TrimSpace(m[1])
		}

		return target == ""
	})

	if target == "" {
		return "", false
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}

	ref, err := url.Parse(target)
	if err != nil {
		return "", false
	}

	return base.ResolveReference(ref).String(), true
}
