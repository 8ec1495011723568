// Package report tracks the outcome of every seed and persists the run artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nhatthm/docharvest/internal/crawler"
)

const (
	// ProgressFile is written after every seed.
	ProgressFile = "progress.json"
	// FinalReportFile is written at the end of the run.
	FinalReportFile = "final_report.json"
)

// Status of a processed url.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// URLStatus is the outcome of one seed.
type URLStatus struct {
	URL                 string `json:"url"`
	DocumentsDownloaded int    `json:"documents_downloaded"`
	Status              string `json:"status"`
	Error               string `json:"error,omitempty"`
}

// Progress is the content of the run artifacts.
type Progress struct {
	ProcessedURLs     []URLStatus    `json:"processed_urls"`
	TotalDocuments    int            `json:"total_documents"`
	FailedURLs        []string       `json:"failed_urls"`
	CategoriesSummary map[string]int `json:"categories_summary"`
}

// Tracker accumulates seed outcomes. It is safe for concurrent use.
type Tracker struct {
	dir string

	mu       sync.Mutex
	progress Progress
}

// RecordSuccess records a seed that was crawled and the documents it yielded.
func (t *Tracker) RecordSuccess(url string, docs []crawler.Document) {
	t.record(URLStatus{URL: url, Status: StatusSuccess}, docs)
}

// RecordFailure records a seed that failed. Documents saved before the failure still count.
func (t *Tracker) RecordFailure(url string, err error, docs []crawler.Document) {
	s := URLStatus{URL: url, Status: StatusFailed}

	if err != nil {
		s.Error = err.Error()
	}

	t.record(s, docs)
}

func (t *Tracker) record(s URLStatus, docs []crawler.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s.DocumentsDownloaded = len(docs)

	t.progress.ProcessedURLs = append(t.progress.ProcessedURLs, s)
	t.progress.TotalDocuments += len(docs)

	if s.Status == StatusFailed {
		t.progress.FailedURLs = append(t.progress.FailedURLs, s.URL)
	}

	for _, d := range docs {
		t.progress.CategoriesSummary[d.Category]++
	}
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := Progress{
		ProcessedURLs:     append([]URLStatus{}, t.progress.ProcessedURLs...),
		TotalDocuments:    t.progress.TotalDocuments,
		FailedURLs:        append([]string{}, t.progress.FailedURLs...),
		CategoriesSummary: make(map[string]int, len(t.progress.CategoriesSummary)),
	}

	for k, v := range t.progress.CategoriesSummary {
		p.CategoriesSummary[k] = v
	}

	return p
}

// SaveProgress writes progress.json.
func (t *Tracker) SaveProgress() error {
	return t.save(ProgressFile)
}

// SaveReport writes final_report.json.
func (t *Tracker) SaveReport() error {
	return t.save(FinalReportFile)
}

func (t *Tracker) save(name string) error {
	data, err := json.Marshal(t.Snapshot())
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", name, err)
	}

	if err := os.MkdirAll(t.dir, 0o750); err != nil {
		return fmt.Errorf("could not create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(t.dir, name+".*")
	if err != nil {
		return fmt.Errorf("could not write %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()           // nolint: errcheck
		_ = os.Remove(tmp.Name()) // nolint: errcheck

		return fmt.Errorf("could not write %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name()) // nolint: errcheck

		return fmt.Errorf("could not write %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(t.dir, name)); err != nil {
		return fmt.Errorf("could not write %s: %w", name, err)
	}

	return nil
}

// WriteSummary prints a human readable summary of the run.
func (t *Tracker) WriteSummary(w io.Writer) error {
	p := t.Snapshot()

	categories := make([]string, 0, len(p.CategoriesSummary))
	for c := range p.CategoriesSummary {
		categories = append(categories, c)
	}

	sort.Strings(categories)

	_, err := fmt.Fprintf(w, "URLs processed: %d\nSuccessful URLs: %d\nFailed URLs: %d\nDocuments downloaded: %d\n",
		len(p.ProcessedURLs), len(p.ProcessedURLs)-len(p.FailedURLs), len(p.FailedURLs), p.TotalDocuments,
	)
	if err != nil {
		return err
	}

	for _, c := range categories {
		if _, err := fmt.Fprintf(w, "  %s: %d\n", c, p.CategoriesSummary[c]); err != nil {
			return err
		}
	}

	return nil
}

// Load reads a progress file or a final report.
func Load(path string) (Progress, error) {
	data, err := os.ReadFile(path) //nolint: gosec
	if err != nil {
		return Progress{}, fmt.Errorf("could not read report: %w", err)
	}

	var p Progress

	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, fmt.Errorf("could not decode report: %w", err)
	}

	return p, nil
}

// NewTracker creates a new Tracker writing its files into dir.
func NewTracker(dir string) *Tracker {
	return &Tracker{
		dir: dir,
		progress: Progress{
			ProcessedURLs:     []URLStatus{},
			FailedURLs:        []string{},
			CategoriesSummary: map[string]int{},
		},
	}
}
