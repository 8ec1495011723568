package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/chromedp/chromedp"
)

const (
	defaultSettleDelay = 3 * time.Second
	defaultMaxTabs     = 3
)

var _ Fetcher = (*ChromeFetcher)(nil)

// ChromeFetcher renders pages in a headless Chrome driven by chromedp. The browser is started on the first Fetch.
//
// The status code is the one of the main document navigation, a non-success status fails the fetch before rendering.
//
// It cannot issue metadata-only requests, ProbeHead always fails with ErrProbeUnsupported.
type ChromeFetcher struct {
	log ctxd.Logger

	userAgent   string
	headless    bool
	settleDelay time.Duration
	tabs        chan struct{}

	startOnce     sync.Once
	startErr      error
	browserCtx    context.Context // nolint: containedctx // The browser outlives a single call.
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewChromeFetcher creates a new ChromeFetcher.
func NewChromeFetcher(opts ...BrowserOption) *ChromeFetcher {
	o := newBrowserOptions(opts)

	return &ChromeFetcher{
		log:         o.log,
		userAgent:   o.userAgent,
		headless:    o.headless,
		settleDelay: o.settleDelay,
		tabs:        make(chan struct{}, o.maxTabs),
	}
}

func (f *ChromeFetcher) start() error {
	f.startOnce.Do(func() {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], // nolint: gocritic
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("headless", f.headless),
			chromedp.UserAgent(f.userAgent),
		)

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

		// Running without actions launches the browser.
		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrowser()
			cancelAlloc()

			f.startErr = fmt.Errorf("launch chrome: %w", err)

			return
		}

		f.browserCtx = browserCtx
		f.cancelAlloc = cancelAlloc
		f.cancelBrowser = cancelBrowser
	})

	return f.startErr
}

// Fetch navigates to the url, waits for the page to settle, scrolls it and returns the rendered html.
func (f *ChromeFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if _, err := ParseURL(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	if err := f.start(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	select {
	case f.tabs <- struct{}{}:
		defer func() { <-f.tabs }()
	case <-ctx.Done():
		return nil, &FetchError{URL: rawURL, Err: ctx.Err()}
	}

	tabCtx, cancel := chromedp.NewContext(f.browserCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc

		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		html     string
		location string
		scrolled bool
	)

	startTime := time.Now()

	nav, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(rawURL))
	if err != nil {
		f.log.Debug(ctx, "failed to navigate", "http.url", rawURL, "error", err)

		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("navigate: %w", err)}
	}

	status := 0
	if nav != nil {
		status = int(nav.Status)
	}

	if status, err = checkRenderedStatus(rawURL, status); err != nil {
		f.log.Debug(ctx, "unexpected http status code", "http.url", rawURL, "http.status_code", status)

		return nil, err
	}

	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settleDelay),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); true`, &scrolled),
		chromedp.Sleep(f.settleDelay/3),
		chromedp.Evaluate(`window.scrollTo(0, 0); true`, &scrolled),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		f.log.Debug(ctx, "failed to render page", "http.url", rawURL, "error", err)

		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("render page: %w", err)}
	}

	f.log.Debug(ctx, "rendered page", "http.url", rawURL, "http.duration", time.Since(startTime).String())

	if location == "" {
		location = rawURL
	}

	return &Response{URL: location, ContentType: "text/html", StatusCode: status, Body: []byte(html)}, nil
}

// checkRenderedStatus validates the status of a browser navigation. Drivers report 0 when no response was observed,
// which is taken as a success.
func checkRenderedStatus(rawURL string, status int) (int, error) {
	if status == 0 {
		return http.StatusOK, nil
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return status, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, status)}
	}

	return status, nil
}

// ProbeHead is not supported by a browser backend.
func (f *ChromeFetcher) ProbeHead(_ context.Context, rawURL string) (string, error) {
	return "", &ProbeError{URL: rawURL, Err: ErrProbeUnsupported}
}

// Close shuts the browser down.
func (f *ChromeFetcher) Close() error {
	if f.cancelBrowser != nil {
		f.cancelBrowser()
		f.cancelAlloc()
	}

	return nil
}

type browserOptions struct {
	log         ctxd.Logger
	userAgent   string
	headless    bool
	settleDelay time.Duration
	maxTabs     int
}

func newBrowserOptions(opts []BrowserOption) browserOptions {
	o := browserOptions{
		log:         ctxd.NoOpLogger{},
		userAgent:   DefaultUserAgent,
		headless:    true,
		settleDelay: defaultSettleDelay,
		maxTabs:     defaultMaxTabs,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.maxTabs < 1 {
		o.maxTabs = 1
	}

	return o
}

// BrowserOption is option to set up a browser backed fetcher.
type BrowserOption func(o *browserOptions)

// WithBrowserLogger sets logger for a browser backed fetcher.
func WithBrowserLogger(l ctxd.Logger) BrowserOption {
	return func(o *browserOptions) {
		o.log = l
	}
}

// WithBrowserUserAgent sets the user agent of the browser.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(o *browserOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithHeadless toggles the headless mode.
func WithHeadless(headless bool) BrowserOption {
	return func(o *browserOptions) {
		o.headless = headless
	}
}

// WithSettleDelay sets how long to wait for scripts after the page is ready.
func WithSettleDelay(d time.Duration) BrowserOption {
	return func(o *browserOptions) {
		o.settleDelay = d
	}
}

// WithMaxTabs limits the number of pages rendered at the same time.
func WithMaxTabs(n int) BrowserOption {
	return func(o *browserOptions) {
		o.maxTabs = n
	}
}
