package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/docharvest/internal/classifier"
	"github.com/nhatthm/docharvest/internal/downloader"
)

// Engine crawls a site from a seed, downloading the documents it finds.
//
// Pages are visited at most once per crawl, never deeper than the maximum depth. Each page contributes at most the
// fan-out of its best scored links to the frontier. Documents are downloaded at most once per crawl, in the background,
// while the crawl goes on.
type Engine struct {
	extractor   Extractor
	classifier  DocumentClassifier
	scorer      HubScorer
	downloader  Downloader
	categorizer Categorizer
	recorder    Recorder
	denylist    Denylist
	log         ctxd.Logger

	// numWorkers is the number of pages visited in parallel. Default value is defaultNumWorkers.
	numWorkers int
	maxDepth   int
	fanOut     int
	// downloadConcurrency is the number of documents downloaded in parallel.
	downloadConcurrency int64
	traversal           Traversal
}

// Crawl crawls from the start url and returns when every reachable page and scheduled download is done or when the
// context is canceled. Errors are collected in the result, they never stop the crawl.
//
// Usage:
//
//	e := NewEngine(extractor, docClassifier, dl, WithMaxDepth(2))
//
//	res := e.Crawl(ctx, "https://univ.example/exams")
//	fmt.Printf("visited: %d, downloaded: %d\n", len(res.Visited), len(res.Downloaded))
func (e *Engine) Crawl(ctx context.Context, startURL string) Result {
	r := newRun(startURL, e.downloadConcurrency)
	startTime := time.Now()

	ctx = ctxd.AddFields(ctx,
		"crawler.run_id", r.result.RunID,
		"crawler.start_url", startURL,
	)

	e.log.Info(ctx, "started crawling", "crawler.max_depth", e.maxDepth)

	tasks := make(chan Task)
	done := make(chan []Task)
	wg := sync.WaitGroup{}

	wg.Add(e.numWorkers)

	for i := 0; i < e.numWorkers; i++ {
		ctx := ctxd.AddFields(ctx, "crawler.worker_id", i)

		go func(ctx context.Context) {
			defer wg.Done()

			for t := range tasks {
				done <- e.visit(ctx, r, t)
			}
		}(ctx)
	}

	e.dispatch(ctx, Task{URL: startURL}, tasks, done)
	close(tasks)
	wg.Wait()

	res := r.finish()

	e.log.Info(ctx, "finished crawling",
		"crawler.duration", time.Since(startTime).String(),
		"crawler.num_visited", len(res.Visited),
		"crawler.num_downloaded", len(res.Downloaded),
		"crawler.num_errors", len(res.Errors),
	)

	return res
}

// dispatch feeds the workers from the frontier until it is exhausted and no visit is in flight. On cancellation, the
// pending tasks are dropped and the visits in flight are awaited.
func (e *Engine) dispatch(ctx context.Context, seed Task, tasks chan<- Task, done <-chan []Task) {
	queue := newTaskQueue(e.traversal)
	queue.push(seed)

	inFlight := 0

	for queue.len() > 0 || inFlight > 0 {
		if ctx.Err() != nil {
			if n := queue.clear(); n > 0 {
				e.log.Debug(ctx, "dropped pending pages", "crawler.num_dropped", n)
			}

			if inFlight == 0 {
				return
			}

			<-done
			inFlight--

			continue
		}

		var (
			out  chan<- Task
			next Task
		)

		if queue.len() > 0 {
			out = tasks
			next = queue.peek()
		}

		select {
		case out <- next:
			queue.pop()
			inFlight++

		case children := <-done:
			inFlight--
			queue.push(children...)

		case <-ctx.Done():
		}
	}
}

// visit visits a page and returns the pages to visit next.
func (e *Engine) visit(ctx context.Context, r *run, t Task) (children []Task) {
	ctx = ctxd.AddFields(ctx, "crawler.url", t.URL, "crawler.depth", t.Depth)

	if t.Depth > e.maxDepth || e.denylist.Match(t.URL) || !r.markVisited(t.URL) {
		return nil
	}

	defer func() {
		if rcv := recover(); rcv != nil {
			e.log.Error(ctx, "recovered from panic", "panic", rcv)
			r.recordError(t.URL, t.Depth, fmt.Errorf("%w: %v", ErrPanic, rcv))

			children = nil
		}
	}()

	e.log.Debug(ctx, "visiting page")
	e.recorder.PageVisited(t.Depth)

	links, err := e.extractor.Extract(ctx, t.URL)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %s", ErrOperationCanceled, err.Error())
		}

		e.log.Warn(ctx, "could not extract links", "error", err)
		e.recorder.PageFailed()
		r.recordError(t.URL, t.Depth, err)

		return nil
	}

	pages := make([]LinkCandidate, 0, len(links))

	for _, l := range links {
		if ctx.Err() != nil {
			return nil
		}

		if e.classifier.IsDocument(ctx, l.URL, l.AnchorText) {
			e.scheduleDownload(ctx, r, t, l)

			continue
		}

		pages = append(pages, l)
	}

	if t.Depth >= e.maxDepth {
		return nil
	}

	return e.prioritize(r, t, pages)
}

// prioritize keeps the fan-out best scored unvisited pages, highest tier first, ties in discovery order.
func (e *Engine) prioritize(r *run, t Task, pages []LinkCandidate) []Task {
	type scored struct {
		url  string
		tier classifier.Tier
	}

	candidates := make([]scored, 0, len(pages))

	for _, p := range pages {
		if e.denylist.Match(p.URL) || r.isVisited(p.URL) {
			continue
		}

		tier := e.scorer.Score(p.URL, p.AnchorText)
		if tier == classifier.TierReject {
			continue
		}

		candidates = append(candidates, scored{url: p.URL, tier: tier})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].tier > candidates[j].tier
	})

	if len(candidates) > e.fanOut {
		candidates = candidates[:e.fanOut]
	}

	children := make([]Task, 0, len(candidates))

	for _, c := range candidates {
		children = append(children, Task{URL: c.url, Depth: t.Depth + 1})
	}

	return children
}

// scheduleDownload starts downloading the document in the background unless it was already claimed. It blocks while
// all download slots are busy.
func (e *Engine) scheduleDownload(ctx context.Context, r *run, t Task, l LinkCandidate) {
	if !isHTTPURL(l.URL) || !r.claimDownload(l.URL) {
		return
	}

	if err := r.downloadSem.Acquire(ctx, 1); err != nil {
		r.recordError(l.URL, t.Depth, fmt.Errorf("%w: %s", ErrOperationCanceled, err.Error()))

		return
	}

	r.downloads.Add(1)

	go func() {
		defer r.downloads.Done()
		defer r.downloadSem.Release(1)

		e.download(ctx, r, t, l)
	}()
}

func (e *Engine) download(ctx context.Context, r *run, t Task, l LinkCandidate) {
	ctx = ctxd.AddFields(ctx, "crawler.document_url", l.URL)

	defer func() {
		if rcv := recover(); rcv != nil {
			e.log.Error(ctx, "recovered from panic while downloading", "panic", rcv)
			r.recordError(l.URL, t.Depth, fmt.Errorf("%w: %v", ErrPanic, rcv))
		}
	}()

	hint := downloader.FileName(l.URL)

	saved, err := e.downloader.Download(ctx, l.URL, hint)
	if err != nil {
		e.log.Warn(ctx, "could not download document", "error", err)
		e.recorder.DownloadFailed()
		r.recordError(l.URL, t.Depth, err)

		return
	}

	category := e.categorizer.Categorize(ctx, classifier.Subject{
		Filename: hint,
		URL:      l.URL,
		Text:     l.AnchorText,
	})

	r.addDocument(Document{
		Filename:      saved.Filename,
		StoragePath:   saved.Path,
		SourceURL:     l.URL,
		OriginPageURL: t.URL,
		DepthFound:    t.Depth,
		Category:      string(category),
		Size:          saved.Size,
	})

	e.recorder.DocumentDownloaded(string(category))
	e.log.Info(ctx, "downloaded document", "crawler.category", string(category), "crawler.path", saved.Path)
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)

	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// keywordCategorizer adapts classifier.KeywordCategorizer to Categorizer.
type keywordCategorizer struct {
	*classifier.KeywordCategorizer
}

func (c keywordCategorizer) Categorize(_ context.Context, s classifier.Subject) classifier.Category {
	return c.KeywordCategorizer.Categorize(s)
}

// NewEngine creates a new Engine.
func NewEngine(extractor Extractor, docClassifier DocumentClassifier, dl Downloader, opts ...Option) *Engine {
	e := &Engine{
		extractor:   extractor,
		classifier:  docClassifier,
		scorer:      classifier.NewHubScorer(),
		downloader:  dl,
		categorizer: keywordCategorizer{classifier.NewKeywordCategorizer(nil, nil)},
		recorder:    noopRecorder{},
		denylist:    DefaultDenylist,
		log:         ctxd.NoOpLogger{},

		numWorkers:          defaultNumWorkers,
		maxDepth:            defaultMaxDepth,
		fanOut:              defaultFanOut,
		downloadConcurrency: defaultDownloadConcurrency,
		traversal:           BreadthFirst,
	}

	for _, opt := range opts {
		opt.applyEngineOption(e)
	}

	// Safeguard the number of workers.
	if e.numWorkers < 1 {
		e.numWorkers = defaultNumWorkers
	} else if e.numWorkers > maxNumWorkers {
		e.numWorkers = maxNumWorkers
	}

	if e.maxDepth < 0 {
		e.maxDepth = 0
	}

	if e.fanOut < 1 {
		e.fanOut = defaultFanOut
	}

	if e.downloadConcurrency < 1 {
		e.downloadConcurrency = defaultDownloadConcurrency
	}

	return e
}
