package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bool64/ctxd"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	// sniffLen is used for detecting content type. See http.sniffLen.
	sniffLen = 512

	// DefaultUserAgent is the browser identity presented to servers.
	DefaultUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36`

	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 100 << 20
	defaultMaxRetries  = 2
	defaultRetryDelay  = time.Second
	defaultMaxDelay    = 10 * time.Second
)

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher fetches resources with a plain HTTP client.
type HTTPFetcher struct {
	client  *http.Client
	limiter *HostLimiter
	log     ctxd.Logger
	headers http.Header

	userAgent   string
	maxBodySize int64
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration

	executor failsafe.Executor[*http.Response]
}

// NewHTTPFetcher creates a new HTTPFetcher.
//
// Requests answered with 429, 500, 502, 503 or 504, and requests failing at the transport level are retried twice with
// an exponential backoff unless WithRetry says otherwise.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{},
		log:    ctxd.NoOpLogger{},
		headers: http.Header{
			"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf,*/*;q=0.8"},
			"Accept-Language": []string{"en-US,en;q=0.9"},
		},

		userAgent:   DefaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		maxRetries:  defaultMaxRetries,
		retryDelay:  defaultRetryDelay,
		maxDelay:    defaultMaxDelay,
	}

	for _, opt := range opts {
		opt.applyHTTPOption(f)
	}

	if f.client.Timeout == 0 {
		f.client.Timeout = defaultTimeout
	}

	if f.maxDelay < f.retryDelay {
		f.maxDelay = f.retryDelay
	}

	f.executor = failsafe.With[*http.Response](f.retryPolicy())

	return f
}

// nolint: bodyclose // The generic type parameter is not an actual response.
func (f *HTTPFetcher) retryPolicy() retrypolicy.RetryPolicy[*http.Response] {
	builder := retrypolicy.NewBuilder[*http.Response]().
		WithMaxRetries(f.maxRetries).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		HandleIf(func(resp *http.Response, err error) bool {
			if !shouldRetry(resp, err) {
				return false
			}

			// The response is discarded either way, its status code is all the caller needs.
			if resp != nil {
				_ = resp.Body.Close() // nolint: errcheck
			}

			return true
		})

	if f.retryDelay > 0 {
		builder = builder.WithBackoff(f.retryDelay, f.maxDelay)
	}

	return builder.Build()
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	if resp == nil {
		return true
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Fetch retrieves the resource and reads its body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	resp, err := f.doRequest(ctx, http.MethodGet, u)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Debug(ctx, "unexpected http status code", "http.url", rawURL, "http.status_code", resp.StatusCode)

		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("could not read body: %w", err)}
	}

	if int64(len(body)) > f.maxBodySize {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBodySize)}
	}

	finalURL := u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         finalURL,
		ContentType: detectContentType(resp.Header, body),
		StatusCode:  resp.StatusCode,
		Body:        body,
	}, nil
}

// ProbeHead sends a HEAD request and returns the lower-cased Content-Type header. Non-success statuses are not errors,
// the header is returned as is.
func (f *HTTPFetcher) ProbeHead(ctx context.Context, rawURL string) (string, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return "", &ProbeError{URL: rawURL, Err: err}
	}

	resp, err := f.doRequest(ctx, http.MethodHead, u)
	if err != nil {
		return "", &ProbeError{URL: rawURL, Err: err}
	}

	defer resp.Body.Close() // nolint: errcheck

	return strings.ToLower(resp.Header.Get("Content-Type")), nil
}

func (f *HTTPFetcher) doRequest(ctx context.Context, method string, u *url.URL) (*http.Response, error) {
	ctx = ctxd.AddFields(ctx,
		"http.method", method,
		"http.url", u.String(),
	)

	startTime := time.Now()

	resp, err := f.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		if err := f.limiter.Wait(ctx, u.Host); err != nil {
			return nil, err // nolint: wrapcheck
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for k, v := range f.headers {
			req.Header[k] = v
		}

		req.Header.Set("User-Agent", f.userAgent)

		return f.client.Do(req)
	})
	if err != nil {
		f.log.Debug(ctx, "failed to send http request", "error", err)

		return nil, fmt.Errorf("failed to send http request: %w", err)
	}

	f.log.Debug(ctx, "received http response",
		"http.status_code", resp.StatusCode,
		"http.duration", time.Since(startTime).String(),
	)

	return resp, nil
}

// detectContentType returns the media type (without the parameters) from the Content-Type header. If the header is not
// set, the body is sniffed with http.DetectContentType(). An `application/octet-stream` header is only refined into html
// or pdf, any other sniffed type keeps the header value.
//
// See https://pkg.go.dev/net/http#DetectContentType.
func detectContentType(header http.Header, body []byte) string {
	contentType := header.Get("Content-Type")

	if contentType != "" {
		contentType, _, _ = mime.ParseMediaType(contentType) // nolint: errcheck // It is probably an error after the `;`.
	}

	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	sniff := body
	if len(sniff) > sniffLen {
		sniff = sniff[:sniffLen]
	}

	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(sniff)) // nolint: errcheck

	if contentType == "application/octet-stream" && !IsHTML(sniffed) && sniffed != "application/pdf" {
		return contentType
	}

	return sniffed
}

// HTTPOption is option to set up HTTPFetcher.
type HTTPOption interface {
	applyHTTPOption(f *HTTPFetcher)
}

type httpOptionFunc func(f *HTTPFetcher)

func (fn httpOptionFunc) applyHTTPOption(f *HTTPFetcher) {
	fn(f)
}

// WithLogger sets logger for HTTPFetcher.
func WithLogger(l ctxd.Logger) HTTPOption {
	return httpOptionFunc(func(f *HTTPFetcher) {
		f.log = l
	})
}

// WithClientTimeout sets timeout for HTTP client.
func WithClientTimeout(d time.Duration) HTTPOption {
	return httpOptionFunc(func(f *HTTPFetcher) {
		f.client.Timeout = d
	})
}

// WithUserAgent sets the user agent sent with every request.
func WithUserAgent(ua string) HTTPOption {
	return httpOptionFunc(func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	})
}

// WithRetry sets the number of retries and the backoff bounds. A zero delay retries immediately.
func WithRetry(maxRetries int, delay, maxDelay time.Duration) HTTPOption {
	return httpOptionFunc(func(f *HTTPFetcher) {
		if maxRetries < 0 {
			maxRetries = 0
		}

		f.maxRetries = maxRetries
		f.retryDelay = delay
		f.maxDelay = maxDelay
	})
}

// WithHostLimiter paces requests per host.
func WithHostLimiter(l *HostLimiter) HTTPOption {
	return httpOptionFunc(func(f *HTTPFetcher) {
		f.limiter = l
	})
}

// WithMaxBodySize limits the size of a response body.
func WithMaxBodySize(n int64) HTTPOption {
	return httpOptionFunc(func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	})
}
