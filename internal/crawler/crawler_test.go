package crawler_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nhatthm/docharvest/internal/fetcher"
)

type page struct {
	contentType string
	body        []byte
}

// site is an in-memory web site.
type site struct {
	mu      sync.Mutex
	pages   map[string]page
	fetches map[string]int
	probes  map[string]int
}

func newSite() *site {
	return &site{
		pages:   make(map[string]page),
		fetches: make(map[string]int),
		probes:  make(map[string]int),
	}
}

// html adds an html page linking to the hrefs, given as href and text pairs.
func (s *site) html(u string, links ...string) *site {
	var b strings.Builder

	b.WriteString("<html><body>")

	for i := 0; i+1 < len(links); i += 2 {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, links[i], links[i+1])
	}

	b.WriteString("</body></html>")

	s.pages[u] = page{contentType: "text/html", body: []byte(b.String())}

	return s
}

func (s *site) pdf(u string, size int) *site {
	s.pages[u] = page{contentType: "application/pdf", body: append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), size)...)}

	return s
}

func (s *site) Fetch(_ context.Context, rawURL string) (*fetcher.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches[rawURL]++

	p, ok := s.pages[rawURL]
	if !ok {
		return nil, &fetcher.FetchError{URL: rawURL, Err: fmt.Errorf("%w: 404", fetcher.ErrUnexpectedStatusCode)}
	}

	return &fetcher.Response{URL: rawURL, ContentType: p.contentType, StatusCode: 200, Body: p.body}, nil
}

func (s *site) ProbeHead(_ context.Context, rawURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.probes[rawURL]++

	if p, ok := s.pages[rawURL]; ok {
		return p.contentType, nil
	}

	return "text/html", nil
}

func (s *site) fetchCount(u string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetches[u]
}
