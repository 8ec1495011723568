package downloader

import "fmt"

var _ error = (*Error)(nil)

const (
	// ErrNotDocument indicates that the url serves neither a document nor a redirect to one.
	ErrNotDocument = Error("not a document")
	// ErrUndersized indicates that the saved file is too small to be a real document.
	ErrUndersized = Error("document too small")
	// ErrTooManyRedirects indicates that the meta-refresh chain is too long.
	ErrTooManyRedirects = Error("too many meta-refresh redirects")
)

// Error is a downloader error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// DownloadError is returned when a document could not be downloaded.
type DownloadError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %s", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *DownloadError) Unwrap() error {
	return e.Err
}
