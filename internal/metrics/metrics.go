// Package metrics counts what a harvest did with prometheus collectors.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docharvest"

// Recorder records crawl events. Its collectors live on their own registry.
type Recorder struct {
	registry *prometheus.Registry

	pagesVisited        *prometheus.CounterVec
	pagesFailed         prometheus.Counter
	documentsDownloaded *prometheus.CounterVec
	downloadsFailed     prometheus.Counter
	seedsProcessed      *prometheus.CounterVec
}

// PageVisited counts a page visited at the given depth.
func (r *Recorder) PageVisited(depth int) {
	r.pagesVisited.WithLabelValues(strconv.Itoa(depth)).Inc()
}

// PageFailed counts a page that could not be processed.
func (r *Recorder) PageFailed() {
	r.pagesFailed.Inc()
}

// DocumentDownloaded counts a saved document.
func (r *Recorder) DocumentDownloaded(category string) {
	r.documentsDownloaded.WithLabelValues(category).Inc()
}

// DownloadFailed counts a document that could not be saved.
func (r *Recorder) DownloadFailed() {
	r.downloadsFailed.Inc()
}

// SeedProcessed counts a seed url.
func (r *Recorder) SeedProcessed(success bool) {
	r.seedsProcessed.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the collected metrics in the text exposition format, for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("could not write metrics: %w", err)
	}

	return nil
}

// New creates a new Recorder.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pagesVisited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_visited_total",
				Help:      "Total number of pages visited",
			},
			[]string{"depth"},
		),
		pagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_failed_total",
			Help:      "Total number of pages that could not be processed",
		}),
		documentsDownloaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_downloaded_total",
				Help:      "Total number of documents saved",
			},
			[]string{"category"},
		),
		downloadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_failed_total",
			Help:      "Total number of documents that could not be saved",
		}),
		seedsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seeds_processed_total",
				Help:      "Total number of seed urls crawled",
			},
			[]string{"success"},
		),
	}

	r.registry.MustRegister(
		r.pagesVisited,
		r.pagesFailed,
		r.documentsDownloaded,
		r.downloadsFailed,
		r.seedsProcessed,
	)

	return r
}
