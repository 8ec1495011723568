package classifier

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bool64/ctxd"
)

const defaultProbeTimeout = 5 * time.Second

// nonDocumentExtensions are path suffixes of pages that are never documents.
var nonDocumentExtensions = []string{".html", ".htm", ".php", ".aspx", ".asp", ".jsp", ".xml", ".json"}

// Prober reads the content type of a resource without retrieving it.
type Prober interface {
	ProbeHead(ctx context.Context, rawURL string) (string, error)
}

// DocumentClassifier decides whether a link points at a downloadable document.
type DocumentClassifier struct {
	prober   Prober
	keywords Keywords
	timeout  time.Duration
	log      ctxd.Logger
}

// IsDocument decides whether the url is a document.
//
// A url whose path ends in .pdf is a document, one whose path ends in a page extension is not. A url that has no
// relevance keyword in the url or the text is not either. Otherwise, the content type is probed: pdf and octet-stream
// are documents, anything else is not. A failed probe counts as a document.
func (c *DocumentClassifier) IsDocument(ctx context.Context, rawURL, text string) bool {
	p := urlPath(strings.ToLower(rawURL))

	if strings.HasSuffix(p, ".pdf") {
		return true
	}

	for _, ext := range nonDocumentExtensions {
		if strings.HasSuffix(p, ext) {
			return false
		}
	}

	if !c.keywords.MatchAny(combine(rawURL, text)) {
		return false
	}

	ctx = ctxd.AddFields(ctx, "classifier.url", rawURL)

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contentType, err := c.prober.ProbeHead(probeCtx, rawURL)
	if err != nil {
		c.log.Debug(ctx, "could not probe content type, assuming document", "error", err)

		return true
	}

	return strings.Contains(contentType, "application/pdf") || strings.Contains(contentType, "application/octet-stream")
}

func urlPath(lowerURL string) string {
	u, err := url.Parse(lowerURL)
	if err != nil {
		return lowerURL
	}

	return u.Path
}

// NewDocumentClassifier creates a new DocumentClassifier.
func NewDocumentClassifier(prober Prober, opts ...DocumentOption) *DocumentClassifier {
	c := &DocumentClassifier{
		prober:   prober,
		keywords: DefaultRelevanceKeywords,
		timeout:  defaultProbeTimeout,
		log:      ctxd.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DocumentOption is option to set up DocumentClassifier.
type DocumentOption func(c *DocumentClassifier)

// WithDocumentLogger sets logger for DocumentClassifier.
func WithDocumentLogger(l ctxd.Logger) DocumentOption {
	return func(c *DocumentClassifier) {
		c.log = l
	}
}

// WithProbeTimeout bounds the duration of a content type probe.
func WithProbeTimeout(d time.Duration) DocumentOption {
	return func(c *DocumentClassifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDocumentKeywords replaces the relevance keywords.
func WithDocumentKeywords(k Keywords) DocumentOption {
	return func(c *DocumentClassifier) {
		if len(k) > 0 {
			c.keywords = k
		}
	}
}
