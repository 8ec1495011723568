package crawler

import "strings"

// Denylist is a list of url fragments that are never crawled.
type Denylist []string

// DefaultDenylist skips api endpoints, feeds, embeds, static assets and staff or contact pages.
var DefaultDenylist = Denylist{
	"/wp-json/", "/feed/", "oembed", "embed", "trackback",
	".css", ".js", ".jpg", ".jpeg", ".png", ".gif", ".ico",
	"contact", "faculty",
}

// Match tells whether the lower-cased url contains one of the fragments.
func (d Denylist) Match(rawURL string) bool {
	rawURL = strings.ToLower(rawURL)

	for _, fragment := range d {
		if strings.Contains(rawURL, fragment) {
			return true
		}
	}

	return false
}
