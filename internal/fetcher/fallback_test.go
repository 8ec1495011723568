package fetcher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatthm/docharvest/internal/fetcher"
)

type stubFetcher struct {
	resp        *fetcher.Response
	err         error
	contentType string
	probeErr    error
	calls       int
	closed      bool
}

func (s *stubFetcher) Fetch(context.Context, string) (*fetcher.Response, error) {
	s.calls++

	return s.resp, s.err
}

func (s *stubFetcher) ProbeHead(context.Context, string) (string, error) {
	return s.contentType, s.probeErr
}

func (s *stubFetcher) Close() error {
	s.closed = true

	return nil
}

func TestFallback_Fetch(t *testing.T) {
	t.Parallel()

	failing := &stubFetcher{err: &fetcher.FetchError{URL: "u", Err: errors.New("boom")}}
	working := &stubFetcher{resp: &fetcher.Response{URL: "u", ContentType: "text/html"}}
	unused := &stubFetcher{}

	f := fetcher.NewFallback(nil, failing, working, unused)

	resp, err := f.Fetch(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, "text/html", resp.ContentType)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
	assert.Equal(t, 0, unused.calls)
}

func TestFallback_Fetch_AllFail(t *testing.T) {
	t.Parallel()

	last := errors.New("last")
	f := fetcher.NewFallback(nil,
		&stubFetcher{err: errors.New("first")},
		&stubFetcher{err: last},
	)

	_, err := f.Fetch(context.Background(), "u")

	assert.ErrorIs(t, err, last)
}

func TestFallback_Fetch_NoBackend(t *testing.T) {
	t.Parallel()

	_, err := fetcher.NewFallback(nil).Fetch(context.Background(), "u")

	assert.ErrorIs(t, err, fetcher.ErrNoBackend)
}

func TestFallback_ProbeHead_SkipsBrowserBackends(t *testing.T) {
	t.Parallel()

	f := fetcher.NewFallback(nil,
		fetcher.NewChromeFetcher(),
		&stubFetcher{contentType: "application/pdf"},
	)

	contentType, err := f.ProbeHead(context.Background(), "https://example.com/a.pdf")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", contentType)
}

func TestFallback_Close(t *testing.T) {
	t.Parallel()

	a, b := &stubFetcher{}, &stubFetcher{}

	require.NoError(t, fetcher.NewFallback(nil, a, b).Close())

	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
