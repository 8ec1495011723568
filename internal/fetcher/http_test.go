package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nhatthm/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatthm/docharvest/internal/fetcher"
)

func newTestFetcher(opts ...fetcher.HTTPOption) *fetcher.HTTPFetcher {
	opts = append([]fetcher.HTTPOption{
		fetcher.WithClientTimeout(time.Second),
		fetcher.WithRetry(2, 0, 0),
	}, opts...)

	return fetcher.NewHTTPFetcher(opts...)
}

func TestHTTPFetcher_Fetch_Success(t *testing.T) {
	t.Parallel()

	srv := httpmock.New(func(s *httpmock.Server) {
		s.ExpectGet("/page").
			WithHeader("User-Agent", fetcher.DefaultUserAgent).
			ReturnHeader("Content-Type", "text/html; charset=utf-8").
			Return(`<html><body>hello</body></html>`)
	})(t)

	resp, err := newTestFetcher().Fetch(context.Background(), srv.URL()+"/page")
	require.NoError(t, err)

	assert.Equal(t, srv.URL()+"/page", resp.URL)
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `<html><body>hello</body></html>`, string(resp.Body))
}

func TestHTTPFetcher_Fetch_DetectContentType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario    string
		contentType string
		body        string
		expected    string
	}{
		{
			scenario:    "header wins",
			contentType: "application/pdf",
			body:        "not really a pdf",
			expected:    "application/pdf",
		},
		{
			scenario:    "octet stream is sniffed",
			contentType: "application/octet-stream",
			body:        "%PDF-1.4 fake",
			expected:    "application/pdf",
		},
		{
			scenario:    "octet stream keeps header for other bodies",
			contentType: "application/octet-stream",
			body:        "PK\x03\x04 zipped scan",
			expected:    "application/octet-stream",
		},
		{
			scenario:    "missing header is sniffed",
			contentType: "",
			body:        "<!DOCTYPE html><html></html>",
			expected:    "text/html",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			srv := httpmock.New(func(s *httpmock.Server) {
				s.ExpectGet("/doc").
					ReturnHeader("Content-Type", tc.contentType).
					Return(tc.body)
			})(t)

			resp, err := newTestFetcher().Fetch(context.Background(), srv.URL()+"/doc")
			require.NoError(t, err)

			assert.Equal(t, tc.expected, resp.ContentType)
		})
	}
}

func TestHTTPFetcher_Fetch_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	srv := httpmock.New(func(s *httpmock.Server) {
		s.ExpectGet("/flaky").
			ReturnCode(http.StatusServiceUnavailable).
			Times(2)

		s.ExpectGet("/flaky").
			ReturnHeader("Content-Type", "text/html").
			Return(`<html></html>`)
	})(t)

	resp, err := newTestFetcher().Fetch(context.Background(), srv.URL()+"/flaky")
	require.NoError(t, err)

	assert.Equal(t, `<html></html>`, string(resp.Body))
}

func TestHTTPFetcher_Fetch_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	srv := httpmock.New(func(s *httpmock.Server) {
		s.ExpectGet("/down").
			ReturnCode(http.StatusBadGateway).
			Times(3)
	})(t)

	source := srv.URL() + "/down"

	_, err := newTestFetcher().Fetch(context.Background(), source)
	require.Error(t, err)

	var fetchErr *fetcher.FetchError

	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, source, fetchErr.URL)
	assert.ErrorIs(t, err, fetcher.ErrUnexpectedStatusCode)
	assert.EqualError(t, err, "fetch "+source+": unexpected status code: 502")
}

func TestHTTPFetcher_Fetch_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	srv := httpmock.New(func(s *httpmock.Server) {
		s.ExpectGet("/missing").
			ReturnCode(http.StatusNotFound)
	})(t)

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL()+"/missing")

	assert.ErrorIs(t, err, fetcher.ErrUnexpectedStatusCode)
}

func TestHTTPFetcher_Fetch_BodyTooLarge(t *testing.T) {
	t.Parallel()

	srv := httpmock.New(func(s *httpmock.Server) {
		s.ExpectGet("/big").
			ReturnHeader("Content-Type", "application/pdf").
			Return("0123456789")
	})(t)

	_, err := newTestFetcher(fetcher.WithMaxBodySize(5)).Fetch(context.Background(), srv.URL()+"/big")

	assert.ErrorIs(t, err, fetcher.ErrBodyTooLarge)
}

func TestHTTPFetcher_Fetch_InvalidURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario string
		source   string
		expected error
	}{
		{
			scenario: "missing hostname",
			source:   "https:///relative/path",
			expected: fetcher.ErrMissingHostname,
		},
		{
			scenario: "unsupported scheme",
			source:   "ftp://example.com/file.pdf",
			expected: fetcher.ErrUnsupportedScheme,
		},
		{
			scenario: "relative url",
			source:   "relative/path",
			expected: fetcher.ErrUnsupportedScheme,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			_, err := fetcher.NewHTTPFetcher().Fetch(context.Background(), tc.source)

			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestHTTPFetcher_Fetch_Canceled(t *testing.T) {
	t.Parallel()

	srv := httpmock.New(func(s *httpmock.Server) {
		s.ExpectGet("/slow").
			After(time.Second).
			Return(`late`)
	})(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher().Fetch(ctx, srv.URL()+"/slow")

	var fetchErr *fetcher.FetchError

	assert.True(t, errors.As(err, &fetchErr))
}

func TestHTTPFetcher_ProbeHead(t *testing.T) {
	t.Parallel()

	srv := httpmock.New(func(s *httpmock.Server) {
		s.ExpectHead("/doc").
			ReturnHeader("Content-Type", "Application/PDF").
			ReturnCode(http.StatusOK)

		s.ExpectHead("/forbidden").
			ReturnHeader("Content-Type", "text/html").
			ReturnCode(http.StatusForbidden)
	})(t)

	f := newTestFetcher()

	contentType, err := f.ProbeHead(context.Background(), srv.URL()+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)

	contentType, err = f.ProbeHead(context.Background(), srv.URL()+"/forbidden")
	require.NoError(t, err)
	assert.Equal(t, "text/html", contentType)
}

func TestHTTPFetcher_ProbeHead_Unreachable(t *testing.T) {
	t.Parallel()

	f := fetcher.NewHTTPFetcher(
		fetcher.WithClientTimeout(100*time.Millisecond),
		fetcher.WithRetry(0, 0, 0),
	)

	_, err := f.ProbeHead(context.Background(), "http://127.0.0.1:1/doc")

	var probeErr *fetcher.ProbeError

	assert.True(t, errors.As(err, &probeErr))
}

func TestIsDocument(t *testing.T) {
	t.Parallel()

	assert.True(t, fetcher.IsDocument("application/pdf"))
	assert.True(t, fetcher.IsDocument("Application/Octet-Stream; charset=binary"))
	assert.False(t, fetcher.IsDocument("text/html"))
	assert.True(t, fetcher.IsHTML("text/html; charset=utf-8"))
	assert.True(t, fetcher.IsHTML("application/xhtml+xml"))
	assert.False(t, fetcher.IsHTML("application/pdf"))
}
