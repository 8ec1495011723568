package crawler

import "github.com/bool64/ctxd"

// Option is option to set up Engine.
type Option interface {
	applyEngineOption(e *Engine)
}

type engineOptionFunc func(e *Engine)

func (f engineOptionFunc) applyEngineOption(e *Engine) {
	f(e)
}

// WithLogger sets logger for Engine.
func WithLogger(l ctxd.Logger) Option {
	return engineOptionFunc(func(e *Engine) {
		e.log = l
	})
}

// WithNumWorkers sets the number of pages visited in parallel.
func WithNumWorkers(numWorkers int) Option {
	return engineOptionFunc(func(e *Engine) {
		e.numWorkers = numWorkers
	})
}

// WithMaxDepth sets the depth pages are visited down to. The seed is at depth 0.
func WithMaxDepth(depth int) Option {
	return engineOptionFunc(func(e *Engine) {
		e.maxDepth = depth
	})
}

// WithFanOut sets the number of links followed from a page.
func WithFanOut(n int) Option {
	return engineOptionFunc(func(e *Engine) {
		e.fanOut = n
	})
}

// WithDownloadConcurrency sets the number of documents downloaded in parallel.
func WithDownloadConcurrency(n int) Option {
	return engineOptionFunc(func(e *Engine) {
		e.downloadConcurrency = int64(n)
	})
}

// WithTraversal sets the visiting order.
func WithTraversal(t Traversal) Option {
	return engineOptionFunc(func(e *Engine) {
		e.traversal = t
	})
}

// WithHubScorer replaces the scorer ranking page links.
func WithHubScorer(s HubScorer) Option {
	return engineOptionFunc(func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	})
}

// WithCategorizer replaces the keyword categorizer.
func WithCategorizer(c Categorizer) Option {
	return engineOptionFunc(func(e *Engine) {
		if c != nil {
			e.categorizer = c
		}
	})
}

// WithRecorder sets the recorder observing the crawl.
func WithRecorder(r Recorder) Option {
	return engineOptionFunc(func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	})
}

// WithDenylist replaces the denylist.
func WithDenylist(d Denylist) Option {
	return engineOptionFunc(func(e *Engine) {
		e.denylist = d
	})
}
