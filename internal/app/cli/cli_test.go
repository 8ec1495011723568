package cli_test

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/nhatthm/httpmock"

	"github.com/nhatthm/docharvest/internal/config"
)

// Mock interfaces for testing.

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) {
	return f(p)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}

type safeBuffer struct {
	buffer bytes.Buffer
	mutex  sync.Mutex
}

func (s *safeBuffer) Read(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.Read(p) // nolint: wrapcheck
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.Write(p) // nolint: wrapcheck
}

func (s *safeBuffer) String() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.buffer.String()
}

// pdfBody is a body large enough to be kept by the downloader.
var pdfBody = "%PDF-1.4\n" + strings.Repeat("0", 2048)

// testSettings returns settings harvesting into a temporary directory, without rate limit nor retry.
func testSettings(t *testing.T) *config.Config {
	t.Helper()

	s := config.Default()
	s.Crawl.Workers = 1
	s.Fetch.RateLimit = 0
	s.Fetch.MaxRetries = 0
	s.Storage.DataDir = t.TempDir()

	return &s
}

// expectPage expects a request for an html page linking to the given paths.
func expectPage(s *httpmock.Server, path string, links ...string) {
	s.ExpectGet(path).
		ReturnCode(http.StatusOK).
		ReturnHeader("Content-Type", "text/html; charset=utf-8").
		Return(pageBody(links...))
}

// expectPDF expects a request for a pdf document.
func expectPDF(s *httpmock.Server, path string) {
	s.ExpectGet(path).
		ReturnCode(http.StatusOK).
		ReturnHeader("Content-Type", "application/pdf").
		Return(pdfBody)
}

func pageBody(links ...string) string {
	var sb strings.Builder

	sb.WriteString("<html><body>")

	for _, l := range links {
		fmt.Fprintf(&sb, `<a href="%s">Download</a>`, l)
	}

	sb.WriteString("</body></html>")

	return sb.String()
}

// srvRequests generates a list of server urls for testing.
func srvRequests(srv *httpmock.Server, numRequests int) []string {
	result := make([]string, numRequests)

	for i := 0; i < numRequests; i++ {
		result[i] = fmt.Sprintf("%s/path%d", srv.URL(), i+1)
	}

	return result
}

// expectedResult is the compact json result of a seed.
func expectedResult(url string, visited, documents, errors int, errMsg string) string {
	if errMsg == "" {
		return fmt.Sprintf(`{"start_url":"%s","visited_num":%d,"documents_num":%d,"errors_num":%d,"success":true,"error":null}`,
			url, visited, documents, errors)
	}

	return fmt.Sprintf(`{"start_url":"%s","visited_num":%d,"documents_num":%d,"errors_num":%d,"success":false,"error":"%s"}`,
		url, visited, documents, errors, errMsg)
}
