package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bool64/ctxd"
)

var _ Fetcher = (*Fallback)(nil)

// Fallback tries its backends in order and returns the first successful answer.
type Fallback struct {
	backends []Fetcher
	log      ctxd.Logger
}

// NewFallback creates a fallback chain over the backends.
func NewFallback(log ctxd.Logger, backends ...Fetcher) *Fallback {
	if log == nil {
		log = ctxd.NoOpLogger{}
	}

	return &Fallback{backends: backends, log: log}
}

// Fetch returns the answer of the first backend that succeeds, or the error of the last one.
func (f *Fallback) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error = &FetchError{URL: rawURL, Err: ErrNoBackend}

	for _, b := range f.backends {
		resp, err := b.Fetch(ctx, rawURL)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}

		f.log.Debug(ctx, "fetch backend failed, trying next",
			"fetcher.backend", fmt.Sprintf("%T", b),
			"error", err,
		)
	}

	return nil, lastErr
}

// ProbeHead returns the answer of the first backend that can probe the url.
func (f *Fallback) ProbeHead(ctx context.Context, rawURL string) (string, error) {
	var lastErr error = &ProbeError{URL: rawURL, Err: ErrNoBackend}

	for _, b := range f.backends {
		contentType, err := b.ProbeHead(ctx, rawURL)
		if err == nil {
			return contentType, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return "", lastErr
}

// Close closes every backend holding resources.
func (f *Fallback) Close() error {
	var errs []error

	for _, b := range f.backends {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
