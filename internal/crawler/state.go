package crawler

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// run is the shared state of one crawl.
type run struct {
	mu      sync.Mutex
	visited map[string]struct{}
	claimed map[string]struct{}
	result  Result

	downloads   sync.WaitGroup
	downloadSem *semaphore.Weighted
}

func newRun(startURL string, downloadConcurrency int64) *run {
	return &run{
		visited: make(map[string]struct{}),
		claimed: make(map[string]struct{}),
		result: Result{
			RunID:      uuid.NewString(),
			StartURL:   startURL,
			Visited:    make([]string, 0),
			Downloaded: make([]Document, 0),
			Errors:     make([]CrawlError, 0),
			StartedAt:  time.Now(),
		},
		downloadSem: semaphore.NewWeighted(downloadConcurrency),
	}
}

// markVisited marks the url as visited and tells whether it was not visited before.
func (r *run) markVisited(u string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visited[u]; ok {
		return false
	}

	r.visited[u] = struct{}{}
	r.result.Visited = append(r.result.Visited, u)

	return true
}

func (r *run) isVisited(u string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.visited[u]

	return ok
}

// claimDownload tells whether the caller is the first to download the url.
func (r *run) claimDownload(u string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claimed[u]; ok {
		return false
	}

	r.claimed[u] = struct{}{}

	return true
}

func (r *run) addDocument(d Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.Downloaded = append(r.result.Downloaded, d)
}

func (r *run) recordError(u string, depth int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.Errors = append(r.result.Errors, CrawlError{URL: u, Depth: depth, Message: err.Error()})
}

// finish waits for the downloads and returns a copy of the result.
func (r *run) finish() Result {
	r.downloads.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.FinishedAt = time.Now()

	res := r.result
	res.Visited = cloneSlice(r.result.Visited)
	res.Downloaded = cloneSlice(r.result.Downloaded)
	res.Errors = cloneSlice(r.result.Errors)

	return res
}

func cloneSlice[T any](s []T) []T {
	c := make([]T, len(s))
	copy(c, s)

	return c
}
