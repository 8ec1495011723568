package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Response is a retrieved resource.
type Response struct {
	// URL is the final url after redirects.
	URL string
	// ContentType is the media type without parameters.
	ContentType string
	StatusCode  int
	Body        []byte
}

// Fetcher retrieves resources.
type Fetcher interface {
	// Fetch retrieves the resource at the url.
	Fetch(ctx context.Context, rawURL string) (*Response, error)
	// ProbeHead returns the content type of the resource without retrieving its body.
	ProbeHead(ctx context.Context, rawURL string) (string, error)
}

// IsHTML tells whether the media type is an html document.
func IsHTML(contentType string) bool {
	contentType = strings.ToLower(contentType)

	return strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml+xml")
}

// IsDocument tells whether the content type designates a downloadable document.
func IsDocument(contentType string) bool {
	contentType = strings.ToLower(contentType)

	return strings.Contains(contentType, "application/pdf") || strings.Contains(contentType, "application/octet-stream")
}

// ParseURL parses an absolute http or https url.
func ParseURL(s string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, err // nolint: wrapcheck // *url.Error is meaningful, we do not need to wrap it.
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse %q: %w %q", s, ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("parse %q: %w", s, ErrMissingHostname)
	}

	return u, nil
}
