package fetcher

import "fmt"

var _ error = (*Error)(nil)

const (
	// ErrMissingHostname indicates that the url is missing hostname.
	ErrMissingHostname = Error("missing hostname")
	// ErrUnsupportedScheme indicates that the url contains an unsupported scheme.
	ErrUnsupportedScheme = Error("unsupported scheme")
	// ErrUnexpectedStatusCode indicates that the server answered with a non-success status code.
	ErrUnexpectedStatusCode = Error("unexpected status code")
	// ErrBodyTooLarge indicates that the response body exceeds the configured limit.
	ErrBodyTooLarge = Error("response body too large")
	// ErrProbeUnsupported indicates that the backend cannot issue metadata-only requests.
	ErrProbeUnsupported = Error("probe not supported by backend")
	// ErrNoBackend indicates that a fallback chain was built without any backend.
	ErrNoBackend = Error("no fetch backend")
)

// Error is a fetcher error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// FetchError is returned when a resource could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ProbeError is returned when a metadata-only request failed.
type ProbeError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %s", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Err
}
