package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/docharvest/internal/collector"
	"github.com/nhatthm/docharvest/internal/fetcher"
)

var _ Extractor = (*LinkExtractor)(nil)

// LinkExtractor fetches a page and lists its links as absolute urls.
type LinkExtractor struct {
	fetcher   fetcher.Fetcher
	collector collector.LinkCollector
	denylist  Denylist
	timeout   time.Duration
	log       ctxd.Logger
}

// Extract fetches the page and returns its links, resolved against the final url of the page, without fragments,
// without duplicates and without denylisted urls. Only http and https links are kept.
func (e *LinkExtractor) Extract(ctx context.Context, pageURL string) ([]LinkCandidate, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.fetcher.Fetch(fetchCtx, pageURL)
	if err != nil {
		return nil, err //nolint: wrapcheck // FetchError carries the url.
	}

	ctx = ctxd.AddFields(ctx, "http.content_type", resp.ContentType)

	if !fetcher.IsHTML(resp.ContentType) {
		e.log.Debug(ctx, "page is not html")

		return nil, fmt.Errorf("%w: %s", ErrNotHTML, resp.ContentType)
	}

	links, err := e.collector.GetLinks(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}

	base, err := url.Parse(resp.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}

	candidates := e.resolveLinks(ctx, base, links)

	e.log.Debug(ctx, "collected links", "crawler.num_links", len(links), "crawler.num_candidates", len(candidates))

	return candidates, nil
}

// resolveLinks resolves the links into absolute urls.
//
// For example: given a `http://localhost/exams/` page
//   - link: .
//     result: http://localhost/exams/
//   - link: /absolute/path/to/file.pdf
//     result: http://localhost/absolute/path/to/file.pdf
//   - link: papers.html#latest
//     result: http://localhost/exams/papers.html
//   - link: mailto:office@localhost
//     result: skipped
func (e *LinkExtractor) resolveLinks(ctx context.Context, base *url.URL, links []collector.Link) []LinkCandidate {
	candidates := make([]LinkCandidate, 0, len(links))
	seen := make(map[string]struct{}, len(links))

	for _, link := range links {
		raw := strings.TrimSpace(link.URL)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		linkURL, err := url.Parse(raw)
		if err != nil {
			e.log.Debug(ctx, "failed to parse link", "link", raw, "error", err)

			continue
		}

		linkURL = base.ResolveReference(linkURL)
		linkURL.Fragment = ""
		linkURL.RawFragment = ""

		if linkURL.Scheme != "http" && linkURL.Scheme != "https" {
			continue
		}

		abs := linkURL.String()

		if e.denylist.Match(abs) {
			continue
		}

		if _, ok := seen[abs]; ok {
			continue
		}

		seen[abs] = struct{}{}

		candidates = append(candidates, LinkCandidate{URL: abs, AnchorText: link.Text})
	}

	return candidates
}

// NewLinkExtractor creates a new LinkExtractor.
func NewLinkExtractor(f fetcher.Fetcher, opts ...ExtractorOption) *LinkExtractor {
	e := &LinkExtractor{
		fetcher:   f,
		collector: collector.NewHTMLLinkCollector(),
		denylist:  DefaultDenylist,
		timeout:   defaultPageTimeout,
		log:       ctxd.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExtractorOption is option to set up LinkExtractor.
type ExtractorOption func(e *LinkExtractor)

// WithExtractorLogger sets logger for LinkExtractor.
func WithExtractorLogger(l ctxd.Logger) ExtractorOption {
	return func(e *LinkExtractor) {
		e.log = l
	}
}

// WithLinkCollector sets the collector reading links from html.
func WithLinkCollector(c collector.LinkCollector) ExtractorOption {
	return func(e *LinkExtractor) {
		e.collector = c
	}
}

// WithExtractorDenylist replaces the denylist.
func WithExtractorDenylist(d Denylist) ExtractorOption {
	return func(e *LinkExtractor) {
		e.denylist = d
	}
}

// WithPageTimeout bounds the retrieval of a page.
func WithPageTimeout(d time.Duration) ExtractorOption {
	return func(e *LinkExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}
