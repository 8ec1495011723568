package crawler

import "time"

// Error is a crawler error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// Document is a downloaded document.
type Document struct {
	Filename      string `json:"filename"`
	StoragePath   string `json:"storage_path"`
	SourceURL     string `json:"source_url"`
	OriginPageURL string `json:"origin_page_url"`
	DepthFound    int    `json:"depth_found"`
	Category      string `json:"category"`
	Size          int64  `json:"size"`
	// OrganizedPath is set once the document is moved into its category directory.
	OrganizedPath string `json:"organized_path,omitempty"`
}

// CrawlError is an error attributed to a url.
type CrawlError struct {
	URL     string `json:"url"`
	Depth   int    `json:"depth"`
	Message string `json:"error"`
}

// Result is the outcome of crawling from one seed.
type Result struct {
	RunID    string
	StartURL string
	// Visited lists the visited pages in the order they were entered.
	Visited    []string
	Downloaded []Document
	Errors     []CrawlError
	StartedAt  time.Time
	FinishedAt time.Time
}
