package crawler

import (
	"context"
	"time"

	"github.com/nhatthm/docharvest/internal/classifier"
	"github.com/nhatthm/docharvest/internal/downloader"
)

const (
	// ErrOperationCanceled indicates that the operation was canceled.
	ErrOperationCanceled = Error("operation canceled")
	// ErrNotHTML indicates that a page is not an html document.
	ErrNotHTML = Error("not an html page")
	// ErrPanic indicates that visiting a page panicked.
	ErrPanic = Error("panic while visiting page")
)

const (
	// defaultNumWorkers is the default value for number of workers.
	defaultNumWorkers = 4
	// maxNumWorkers is the limitation for number of workers to avoid resource saturation.
	maxNumWorkers = 24

	defaultMaxDepth            = 3
	defaultFanOut              = 5
	defaultDownloadConcurrency = 4

	// defaultPageTimeout bounds the retrieval of a page.
	defaultPageTimeout = 15 * time.Second
)

// LinkCandidate is a resolved link discovered on a page.
type LinkCandidate struct {
	URL        string
	AnchorText string
}

// Task is a page scheduled for a visit.
type Task struct {
	URL   string
	Depth int
}

// Extractor lists the links of a page.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) ([]LinkCandidate, error)
}

// DocumentClassifier decides whether a link is a document.
type DocumentClassifier interface {
	IsDocument(ctx context.Context, rawURL, text string) bool
}

// HubScorer ranks page links.
type HubScorer interface {
	Score(rawURL, text string) classifier.Tier
}

// Downloader persists documents.
type Downloader interface {
	Download(ctx context.Context, rawURL, hint string) (*downloader.Saved, error)
}

// Categorizer labels downloaded documents.
type Categorizer interface {
	Categorize(ctx context.Context, s classifier.Subject) classifier.Category
}

// Recorder observes the crawl.
type Recorder interface {
	PageVisited(depth int)
	PageFailed()
	DocumentDownloaded(category string)
	DownloadFailed()
}

type noopRecorder struct{}

func (noopRecorder) PageVisited(int)           {}
func (noopRecorder) PageFailed()               {}
func (noopRecorder) DocumentDownloaded(string) {}
func (noopRecorder) DownloadFailed()           {}
