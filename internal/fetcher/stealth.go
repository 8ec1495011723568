package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const stableDuration = 500 * time.Millisecond

var _ Fetcher = (*StealthFetcher)(nil)

// StealthFetcher renders pages in a Chromium driven by rod with automation fingerprints masked. It is meant for sites
// that turn away a plain headless browser.
//
// The status code is the one of the main document response, a non-success status fails the fetch.
//
// It cannot issue metadata-only requests, ProbeHead always fails with ErrProbeUnsupported.
type StealthFetcher struct {
	log ctxd.Logger

	userAgent   string
	headless    bool
	settleDelay time.Duration
	tabs        chan struct{}

	startOnce sync.Once
	startErr  error
	browser   *rod.Browser
}

// NewStealthFetcher creates a new StealthFetcher. The browser is started on the first Fetch.
func NewStealthFetcher(opts ...BrowserOption) *StealthFetcher {
	o := newBrowserOptions(opts)

	return &StealthFetcher{
		log:         o.log,
		userAgent:   o.userAgent,
		headless:    o.headless,
		settleDelay: o.settleDelay,
		tabs:        make(chan struct{}, o.maxTabs),
	}
}

func (f *StealthFetcher) start() error {
	f.startOnce.Do(func() {
		u, err := launcher.New().
			Headless(f.headless).
			Set("disable-gpu").
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled").
			Set("user-agent", f.userAgent).
			Launch()
		if err != nil {
			f.startErr = fmt.Errorf("launch browser: %w", err)

			return
		}

		browser := rod.New().ControlURL(u)
		if err := browser.Connect(); err != nil {
			f.startErr = fmt.Errorf("connect to browser: %w", err)

			return
		}

		f.browser = browser
	})

	return f.startErr
}

// Fetch navigates to the url in a masked tab and returns the rendered html once the DOM is stable.
func (f *StealthFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
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

	page, err := stealth.Page(f.browser)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("create tab: %w", err)}
	}

	defer page.Close() // nolint: errcheck

	page = page.Context(ctx)

	documents := make(chan int, 1)

	go page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}

		documents <- int(e.Response.Status)

		return true
	})()

	if err := page.Navigate(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("navigate: %w", err)}
	}

	if err := page.WaitLoad(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("wait for load: %w", err)}
	}

	status := 0

	select {
	case status = <-documents:
	case <-time.After(stableDuration):
	}

	status, err = checkRenderedStatus(rawURL, status)
	if err != nil {
		f.log.Debug(ctx, "unexpected http status code", "http.url", rawURL, "http.status_code", status)

		return nil, err
	}

	_ = page.WaitStable(stableDuration) // nolint: errcheck // A page that never settles is still worth reading.

	if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err == nil {
		time.Sleep(f.settleDelay / 3)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("read html: %w", err)}
	}

	location := rawURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		location = info.URL
	}

	f.log.Debug(ctx, "rendered page with stealth browser", "http.url", rawURL)

	return &Response{URL: location, ContentType: "text/html", StatusCode: status, Body: []byte(html)}, nil
}

// ProbeHead is not supported by a browser backend.
func (f *StealthFetcher) ProbeHead(_ context.Context, rawURL string) (string, error) {
	return "", &ProbeError{URL: rawURL, Err: ErrProbeUnsupported}
}

// Close shuts the browser down.
func (f *StealthFetcher) Close() error {
	if f.browser == nil {
		return nil
	}

	return f.browser.Close() // nolint: wrapcheck
}
