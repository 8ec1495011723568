package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/docharvest/internal/catalog"
	"github.com/nhatthm/docharvest/internal/classifier"
	"github.com/nhatthm/docharvest/internal/collector"
	"github.com/nhatthm/docharvest/internal/config"
	"github.com/nhatthm/docharvest/internal/crawler"
	"github.com/nhatthm/docharvest/internal/downloader"
	"github.com/nhatthm/docharvest/internal/fetcher"
	"github.com/nhatthm/docharvest/internal/llm"
	"github.com/nhatthm/docharvest/internal/metrics"
	"github.com/nhatthm/docharvest/internal/organizer"
	"github.com/nhatthm/docharvest/internal/report"
)

// seedResult is the outcome of harvesting one seed.
type seedResult struct {
	URL    string
	Result crawler.Result
	// Documents are the downloaded documents, moved into their category directory.
	Documents []crawler.Document
	Err       error
}

// harvester crawls seeds one after another and files what they yield.
type harvester struct {
	engine    *crawler.Engine
	organizer *organizer.Organizer
	tracker   *report.Tracker
	catalog   *catalog.Catalog
	metrics   *metrics.Recorder
	closers   []io.Closer
	log       ctxd.Logger

	metricsFile string
	seedsDone   atomic.Int64
	docsDone    atomic.Int64
}

// newHarvester builds every component of a harvest from the settings. The caller must call close.
func newHarvester(s config.Config, log ctxd.Logger) (*harvester, error) {
	categorizer, err := newCategorizer(s, log)
	if err != nil {
		return nil, err
	}

	h := &harvester{
		organizer:   organizer.New(s.Storage.OrganizedDir(), organizer.WithLogger(log)),
		tracker:     report.NewTracker(s.Storage.DataDir),
		metrics:     metrics.New(),
		log:         log,
		metricsFile: s.Storage.MetricsFile,
	}

	if s.Storage.Catalog != "" {
		c, err := catalog.Open(s.Storage.Catalog)
		if err != nil {
			return nil, err
		}

		h.catalog = c
		h.closers = append(h.closers, c)
	}

	httpFetcher := newHTTPFetcher(s.Fetch, log)
	pages := fetcher.NewFallback(log, newBackends(s, httpFetcher, log)...)

	h.closers = append(h.closers, pages)

	denylist := crawler.DefaultDenylist
	if len(s.Crawl.Denylist) > 0 {
		denylist = crawler.Denylist(s.Crawl.Denylist)
	}

	var htmlOpts []collector.HTMLOption

	if s.Crawl.ScriptLinks {
		htmlOpts = append(htmlOpts, collector.WithScriptLinks())
	}

	extractor := crawler.NewLinkExtractor(pages,
		crawler.WithExtractorLogger(log),
		crawler.WithLinkCollector(collector.NewHTMLLinkCollector(htmlOpts...)),
		crawler.WithExtractorDenylist(denylist),
		crawler.WithPageTimeout(s.Crawl.PageTimeout),
	)

	docClassifier := classifier.NewDocumentClassifier(httpFetcher,
		classifier.WithDocumentLogger(log),
		classifier.WithProbeTimeout(s.Crawl.ProbeTimeout),
		classifier.WithDocumentKeywords(classifier.NewKeywords(s.Keywords.Relevance...)),
	)

	dl := downloader.New(httpFetcher, downloader.NewFileStorage(s.Storage.RawDir()),
		downloader.WithLogger(log),
		downloader.WithTimeout(s.Download.Timeout),
		downloader.WithMinSize(s.Download.MinSize),
		downloader.WithMaxRedirects(s.Download.MaxRedirects),
	)

	traversal := crawler.BreadthFirst
	if s.Crawl.Traversal == config.TraversalDFS {
		traversal = crawler.DepthFirst
	}

	h.engine = crawler.NewEngine(extractor, docClassifier, dl,
		crawler.WithLogger(log),
		crawler.WithNumWorkers(s.Crawl.Workers),
		crawler.WithMaxDepth(s.Crawl.MaxDepth),
		crawler.WithFanOut(s.Crawl.FanOut),
		crawler.WithDownloadConcurrency(s.Download.Concurrency),
		crawler.WithTraversal(traversal),
		crawler.WithDenylist(denylist),
		crawler.WithHubScorer(classifier.NewHubScorer(
			classifier.WithHubThreshold(s.Crawl.HubThreshold),
			classifier.WithRelevanceKeywords(classifier.NewKeywords(s.Keywords.Relevance...)),
			classifier.WithResultTerms(classifier.NewKeywords(s.Keywords.ResultTerms...)),
			classifier.WithAcademicTerms(classifier.NewKeywords(s.Keywords.AcademicTerms...)),
		)),
		crawler.WithCategorizer(categorizer),
		crawler.WithRecorder(h.metrics),
	)

	return h, nil
}

// newHTTPFetcher builds the plain http backend. Documents are always downloaded and probed with it.
func newHTTPFetcher(s config.Fetch, log ctxd.Logger) *fetcher.HTTPFetcher {
	opts := []fetcher.HTTPOption{
		fetcher.WithLogger(log),
		fetcher.WithClientTimeout(s.Timeout),
		fetcher.WithRetry(s.MaxRetries, s.RetryDelay, 10*s.RetryDelay), // nolint: gomnd // Backoff grows up to 10 delays.
		fetcher.WithHostLimiter(fetcher.NewHostLimiter(s.RateLimit, s.RateBurst)),
		fetcher.WithMaxBodySize(s.MaxBodySize),
	}

	if s.UserAgent != "" {
		opts = append(opts, fetcher.WithUserAgent(s.UserAgent))
	}

	return fetcher.NewHTTPFetcher(opts...)
}

// newBackends returns the page backends in the configured order.
func newBackends(s config.Config, httpFetcher *fetcher.HTTPFetcher, log ctxd.Logger) []fetcher.Fetcher {
	browserOpts := []fetcher.BrowserOption{
		fetcher.WithBrowserLogger(log),
		fetcher.WithHeadless(s.Fetch.Headless),
		fetcher.WithSettleDelay(s.Fetch.SettleDelay),
		fetcher.WithMaxTabs(s.Crawl.Workers),
	}

	if s.Fetch.UserAgent != "" {
		browserOpts = append(browserOpts, fetcher.WithBrowserUserAgent(s.Fetch.UserAgent))
	}

	backends := make([]fetcher.Fetcher, 0, len(s.Fetch.Backends))

	for _, b := range s.Fetch.Backends {
		switch b {
		case config.BackendHTTP:
			backends = append(backends, httpFetcher)
		case config.BackendChrome:
			backends = append(backends, fetcher.NewChromeFetcher(browserOpts...))
		case config.BackendStealth:
			backends = append(backends, fetcher.NewStealthFetcher(browserOpts...))
		}
	}

	return backends
}

// newCategorizer returns the keyword categorizer, preceded by the llm one when enabled.
func newCategorizer(s config.Config, log ctxd.Logger) (*classifier.TwoStageCategorizer, error) {
	keywords := classifier.NewKeywordCategorizer(
		classifier.NewKeywords(s.Keywords.Syllabus...),
		classifier.NewKeywords(s.Keywords.QuestionPapers...),
	)

	opts := []classifier.TwoStageOption{
		classifier.WithCategorizerLogger(log),
		classifier.WithCategorizeTimeout(s.LLM.Timeout),
	}

	if !s.LLM.Enabled {
		return classifier.NewTwoStageCategorizer(nil, keywords, opts...), nil
	}

	model, err := llm.New(s.LLM.Model,
		llm.WithBaseURL(s.LLM.BaseURL),
		llm.WithAPIKey(s.LLM.APIKey),
		llm.WithTimeout(s.LLM.Timeout),
		llm.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("could not configure llm categorizer: %w", err)
	}

	return classifier.NewTwoStageCategorizer(model, keywords, opts...), nil
}

// harvest crawls one seed, files its documents and records the outcome.
//
// A seed fails when the harvest is canceled, when its own page could not be processed or when its documents could not
// be organized. Documents saved before a failure are still filed and counted.
func (h *harvester) harvest(ctx context.Context, seedURL string) seedResult {
	ctx = ctxd.AddFields(ctx, "harvest.seed", seedURL)

	res := h.engine.Crawl(ctx, seedURL)
	out := seedResult{URL: seedURL, Result: res, Err: seedError(ctx, res)}

	// Filing and bookkeeping go on after a cancellation.
	ctx = context.WithoutCancel(ctx)

	docs, err := h.organizer.Organize(ctx, res.Downloaded)
	if err != nil && out.Err == nil {
		out.Err = err
	}

	out.Documents = docs

	if h.catalog != nil {
		if err := h.catalog.Record(ctx, res.RunID, docs); err != nil {
			h.log.Error(ctx, "could not record documents in catalog", "error", err)
		}
	}

	if out.Err != nil {
		h.log.Error(ctx, "could not harvest seed", "error", out.Err)
		h.tracker.RecordFailure(seedURL, out.Err, docs)
	} else {
		h.tracker.RecordSuccess(seedURL, docs)
	}

	if err := h.tracker.SaveProgress(); err != nil {
		h.log.Error(ctx, "could not save progress", "error", err)
	}

	h.metrics.SeedProcessed(out.Err == nil)
	h.seedsDone.Add(1)
	h.docsDone.Add(int64(len(docs)))

	h.log.Info(ctx, "harvested seed",
		"harvest.run_id", res.RunID,
		"harvest.visited", len(res.Visited),
		"harvest.documents", len(docs),
		"harvest.errors", len(res.Errors),
	)

	return out
}

// seedError tells why a seed failed, if it did.
func seedError(ctx context.Context, res crawler.Result) error {
	if ctx.Err() != nil {
		return crawler.ErrOperationCanceled
	}

	for _, e := range res.Errors {
		if e.Depth == 0 && e.URL == res.StartURL {
			return errors.New(e.Message) // nolint: goerr113 // Message of a recorded error.
		}
	}

	return nil
}

// probe reports the progress of the harvest to the footprint tracker.
func (h *harvester) probe() []any {
	return []any{
		"harvest.seeds_done", h.seedsDone.Load(),
		"harvest.documents", h.docsDone.Load(),
	}
}

// close writes the final report and the metrics, then releases the backends and the catalog.
func (h *harvester) close(ctx context.Context) error {
	var errs []error

	if err := h.tracker.SaveReport(); err != nil {
		errs = append(errs, err)
	}

	if h.metricsFile != "" {
		if err := h.metrics.WriteTextfile(h.metricsFile); err != nil {
			errs = append(errs, err)
		}
	}

	if h.catalog != nil {
		if counts, err := h.catalog.CountByCategory(ctx); err == nil {
			h.log.Info(ctx, "catalog totals", "catalog.categories", counts)
		}
	}

	for _, c := range h.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	p := h.tracker.Snapshot()

	h.log.Info(ctx, "harvest finished",
		"harvest.seeds", len(p.ProcessedURLs),
		"harvest.failed", len(p.FailedURLs),
		"harvest.documents", p.TotalDocuments,
		"harvest.categories", p.CategoriesSummary,
	)

	return errors.Join(errs...)
}
