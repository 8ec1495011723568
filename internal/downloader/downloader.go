package downloader

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/docharvest/internal/fetcher"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMinSize      = 1000
	defaultMaxRedirects = 5
)

// Saved describes a persisted document.
type Saved struct {
	// Filename is the name the document was saved under.
	Filename string
	// Path is the location of the file.
	Path string
	Size int64
}

// Downloader fetches documents and persists them under collision-free names.
type Downloader struct {
	fetcher fetcher.Fetcher
	storage Storage
	log     ctxd.Logger

	timeout      time.Duration
	minSize      int64
	maxRedirects int

	mu       sync.Mutex
	reserved map[string]struct{}
}

// Download fetches the url and saves it under the hint, or under the hint with a numeric suffix when the name is taken.
//
// An html answer is scanned for a meta refresh which is followed up to a bounded number of times. A saved file not
// larger than the minimum size is removed and reported as ErrUndersized.
func (d *Downloader) Download(ctx context.Context, rawURL, hint string) (*Saved, error) {
	ctx = ctxd.AddFields(ctx, "downloader.url", rawURL)

	return d.download(ctx, rawURL, hint, 0)
}

func (d *Downloader) download(ctx context.Context, rawURL, hint string, redirects int) (*Saved, error) {
	if redirects > d.maxRedirects {
		return nil, &DownloadError{URL: rawURL, Err: ErrTooManyRedirects}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.timeout)
	resp, err := d.fetcher.Fetch(fetchCtx, rawURL)

	cancel()

	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}

	switch {
	case fetcher.IsDocument(resp.ContentType):
		return d.persist(ctx, rawURL, hint, resp.Body)

	case fetcher.IsHTML(resp.ContentType):
		target, ok := findMetaRefresh(resp.Body, resp.URL)
		if !ok {
			return nil, &DownloadError{URL: rawURL, Err: fmt.Errorf("%w: html page without refresh", ErrNotDocument)}
		}

		d.log.Debug(ctx, "following meta refresh", "downloader.target", target)

		return d.download(ctx, target, hint, redirects+1)

	default:
		return nil, &DownloadError{URL: rawURL, Err: fmt.Errorf("%w: %s", ErrNotDocument, resp.ContentType)}
	}
}

func (d *Downloader) persist(ctx context.Context, rawURL, hint string, body []byte) (*Saved, error) {
	name, release := d.reserve(hint)
	defer release()

	n, err := d.storage.Save(name, bytes.NewReader(body))
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}

	if n <= d.minSize {
		if err := d.storage.Remove(name); err != nil {
			d.log.Warn(ctx, "could not remove undersized file", "downloader.path", d.storage.Path(name), "error", err)
		}

		return nil, &DownloadError{URL: rawURL, Err: fmt.Errorf("%w: %d bytes", ErrUndersized, n)}
	}

	saved := &Saved{
		Filename: filepath.Base(name),
		Path:     d.storage.Path(name),
		Size:     n,
	}

	d.log.Debug(ctx, "saved document", "downloader.path", saved.Path, "downloader.size", n)

	return saved, nil
}

// reserve picks the first free name among hint, stem_1.ext, stem_2.ext... and holds it until release is called.
func (d *Downloader) reserve(hint string) (string, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ext := filepath.Ext(hint)
	stem := strings.TrimSuffix(hint, ext)
	name := hint

	for i := 1; ; i++ {
		if _, taken := d.reserved[name]; !taken && !d.storage.Exists(name) {
			break
		}

		name = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}

	d.reserved[name] = struct{}{}

	return name, func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		delete(d.reserved, name)
	}
}

// New creates a new Downloader.
func New(f fetcher.Fetcher, storage Storage, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher:  f,
		storage:  storage,
		log:      ctxd.NoOpLogger{},
		reserved: make(map[string]struct{}),

		timeout:      defaultTimeout,
		minSize:      defaultMinSize,
		maxRedirects: defaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Option is option to set up Downloader.
type Option func(d *Downloader)

// WithLogger sets logger for Downloader.
func WithLogger(l ctxd.Logger) Option {
	return func(d *Downloader) {
		d.log = l
	}
}

// WithTimeout bounds a single fetch.
func WithTimeout(t time.Duration) Option {
	return func(d *Downloader) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithMinSize sets the size a document must exceed to be kept.
func WithMinSize(n int64) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.minSize = n
		}
	}
}

// WithMaxRedirects caps the meta-refresh chain.
func WithMaxRedirects(n int) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.maxRedirects = n
		}
	}
}
