package crawler_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatthm/docharvest/internal/classifier"
	"github.com/nhatthm/docharvest/internal/crawler"
	"github.com/nhatthm/docharvest/internal/downloader"
)

func newEngine(t *testing.T, s *site, opts ...crawler.Option) (*crawler.Engine, string) {
	t.Helper()

	dir := t.TempDir()

	e := crawler.NewEngine(
		crawler.NewLinkExtractor(s),
		classifier.NewDocumentClassifier(s),
		downloader.New(s, downloader.NewFileStorage(dir)),
		opts...,
	)

	return e, dir
}

func crawl(t *testing.T, e *crawler.Engine, seed string) crawler.Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return e.Crawl(ctx, seed)
}

func TestEngine_Crawl_EndToEnd(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://univ.example/exams",
			"https://univ.example/exams/qp1.pdf", "Question paper 1",
			"https://univ.example/exams/syllabus-hub", "Syllabus CBCS",
			"https://univ.example/exams/results", "Check your Result",
		).
		html("https://univ.example/exams/syllabus-hub").
		pdf("https://univ.example/exams/qp1.pdf", 2000)

	e, dir := newEngine(t, s, crawler.WithMaxDepth(1))

	res := crawl(t, e, "https://univ.example/exams")

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "https://univ.example/exams", res.StartURL)
	assert.Equal(t, []string{"https://univ.example/exams", "https://univ.example/exams/syllabus-hub"}, res.Visited)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, s.fetchCount("https://univ.example/exams/results"))

	expected := []crawler.Document{{
		Filename:      "qp1.pdf",
		StoragePath:   filepath.Join(dir, "qp1.pdf"),
		SourceURL:     "https://univ.example/exams/qp1.pdf",
		OriginPageURL: "https://univ.example/exams",
		DepthFound:    0,
		Category:      string(classifier.CategoryQuestionPapers),
		Size:          2009,
	}}

	assert.Equal(t, expected, res.Downloaded)
	assert.FileExists(t, filepath.Join(dir, "qp1.pdf"))
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}

func TestEngine_Crawl_VisitsEachPageOnce(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://site.test/notes",
			"https://site.test/papers", "Papers",
			"https://site.test/notes", "Notes",
		).
		html("https://site.test/papers",
			"https://site.test/notes", "Notes",
			"https://site.test/papers", "Papers",
		)

	e, _ := newEngine(t, s, crawler.WithMaxDepth(3))

	res := crawl(t, e, "https://site.test/notes")

	assert.Equal(t, []string{"https://site.test/notes", "https://site.test/papers"}, res.Visited)
	assert.Equal(t, 1, s.fetchCount("https://site.test/notes"))
	assert.Equal(t, 1, s.fetchCount("https://site.test/papers"))
}

func TestEngine_Crawl_DepthBound(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://site.test/notes-0", "https://site.test/notes-1", "next").
		html("https://site.test/notes-1", "https://site.test/notes-2", "next").
		html("https://site.test/notes-2", "https://site.test/notes-3", "next").
		html("https://site.test/notes-3")

	testCases := []struct {
		scenario string
		maxDepth int
		expected []string
	}{
		{
			scenario: "seed only",
			maxDepth: 0,
			expected: []string{"https://site.test/notes-0"},
		},
		{
			scenario: "two levels",
			maxDepth: 2,
			expected: []string{"https://site.test/notes-0", "https://site.test/notes-1", "https://site.test/notes-2"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			e, _ := newEngine(t, s, crawler.WithMaxDepth(tc.maxDepth))

			res := crawl(t, e, "https://site.test/notes-0")

			assert.Equal(t, tc.expected, res.Visited)
			assert.Equal(t, 0, s.fetchCount("https://site.test/notes-3"))
		})
	}
}

func TestEngine_Crawl_PrioritizesAndBoundsFanOut(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://site.test/home",
			"https://site.test/notes-a", "a",
			"https://site.test/contact", "Contact us",
			"https://site.test/notes-b", "b",
			"https://site.test/notes-c", "c",
			"https://site.test/notes-d", "d",
			"https://site.test/question-papers", "Question papers",
			"https://site.test/notes-e", "e",
			"https://site.test/exam-syllabus", "Syllabus",
		)

	for _, u := range []string{"notes-a", "notes-b", "notes-c", "notes-d", "notes-e", "question-papers", "exam-syllabus", "contact"} {
		s.html("https://site.test/" + u)
	}

	e, _ := newEngine(t, s,
		crawler.WithMaxDepth(1),
		crawler.WithNumWorkers(1),
		crawler.WithFanOut(4),
	)

	res := crawl(t, e, "https://site.test/home")

	expected := []string{
		"https://site.test/home",
		"https://site.test/question-papers",
		"https://site.test/exam-syllabus",
		"https://site.test/notes-a",
		"https://site.test/notes-b",
	}

	assert.Equal(t, expected, res.Visited)
	assert.Equal(t, 0, s.fetchCount("https://site.test/contact"))
}

func TestEngine_Crawl_Traversal(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://site.test/home",
			"https://site.test/question-papers", "Question papers",
			"https://site.test/notes", "Notes",
		).
		html("https://site.test/question-papers", "https://site.test/model-papers", "Model papers").
		html("https://site.test/notes").
		html("https://site.test/model-papers")

	testCases := []struct {
		scenario  string
		traversal crawler.Traversal
		expected  []string
	}{
		{
			scenario:  "breadth first",
			traversal: crawler.BreadthFirst,
			expected: []string{
				"https://site.test/home",
				"https://site.test/question-papers",
				"https://site.test/notes",
				"https://site.test/model-papers",
			},
		},
		{
			scenario:  "depth first",
			traversal: crawler.DepthFirst,
			expected: []string{
				"https://site.test/home",
				"https://site.test/question-papers",
				"https://site.test/model-papers",
				"https://site.test/notes",
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			e, _ := newEngine(t, s,
				crawler.WithMaxDepth(2),
				crawler.WithNumWorkers(1),
				crawler.WithTraversal(tc.traversal),
			)

			assert.Equal(t, tc.expected, crawl(t, e, "https://site.test/home").Visited)
		})
	}
}

func TestEngine_Crawl_ErrorsDoNotAbort(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://site.test/home",
			"https://site.test/question-papers", "Question papers",
			"https://site.test/broken-notes", "Notes",
			"https://site.test/tiny.pdf", "Tiny",
		).
		html("https://site.test/question-papers", "https://site.test/qp-2020.pdf", "2020").
		pdf("https://site.test/qp-2020.pdf", 5000).
		pdf("https://site.test/tiny.pdf", 10)

	e, _ := newEngine(t, s, crawler.WithMaxDepth(1))

	res := crawl(t, e, "https://site.test/home")

	assert.ElementsMatch(t, []string{
		"https://site.test/home",
		"https://site.test/question-papers",
		"https://site.test/broken-notes",
	}, res.Visited)

	require.Len(t, res.Downloaded, 1)
	assert.Equal(t, "qp-2020.pdf", res.Downloaded[0].Filename)
	assert.Equal(t, 1, res.Downloaded[0].DepthFound)
	assert.Equal(t, "https://site.test/question-papers", res.Downloaded[0].OriginPageURL)

	require.Len(t, res.Errors, 2)

	errs := map[string]crawler.CrawlError{}
	for _, e := range res.Errors {
		errs[e.URL] = e
	}

	assert.Equal(t, 1, errs["https://site.test/broken-notes"].Depth)
	assert.Contains(t, errs["https://site.test/broken-notes"].Message, "unexpected status code")
	assert.Equal(t, 0, errs["https://site.test/tiny.pdf"].Depth)
	assert.Contains(t, errs["https://site.test/tiny.pdf"].Message, downloader.ErrUndersized.Error())
}

func TestEngine_Crawl_DownloadsEachDocumentOnce(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://site.test/home",
			"https://site.test/question-papers", "Question papers",
			"https://site.test/model-papers", "Model papers",
			"https://site.test/shared.pdf", "Shared",
		).
		html("https://site.test/question-papers", "https://site.test/shared.pdf", "Shared").
		html("https://site.test/model-papers", "https://site.test/shared.pdf", "Shared").
		pdf("https://site.test/shared.pdf", 3000)

	e, dir := newEngine(t, s, crawler.WithMaxDepth(1), crawler.WithNumWorkers(3))

	res := crawl(t, e, "https://site.test/home")

	require.Len(t, res.Downloaded, 1)
	assert.Equal(t, 1, s.fetchCount("https://site.test/shared.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "shared_1.pdf"))
}

type extractorFunc func(ctx context.Context, pageURL string) ([]crawler.LinkCandidate, error)

func (f extractorFunc) Extract(ctx context.Context, pageURL string) ([]crawler.LinkCandidate, error) {
	return f(ctx, pageURL)
}

func TestEngine_Crawl_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	s := newSite()
	extractor := extractorFunc(func(_ context.Context, pageURL string) ([]crawler.LinkCandidate, error) {
		switch pageURL {
		case "https://site.test/home":
			return []crawler.LinkCandidate{
				{URL: "https://site.test/question-papers", AnchorText: "Question papers"},
				{URL: "https://site.test/notes", AnchorText: "Notes"},
			}, nil
		case "https://site.test/question-papers":
			panic("boom")
		default:
			return nil, nil
		}
	})

	e := crawler.NewEngine(extractor, classifier.NewDocumentClassifier(s), downloader.New(s, downloader.NewFileStorage(t.TempDir())),
		crawler.WithMaxDepth(1),
	)

	res := crawl(t, e, "https://site.test/home")

	assert.Len(t, res.Visited, 3)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, crawler.CrawlError{
		URL:     "https://site.test/question-papers",
		Depth:   1,
		Message: "panic while visiting page: boom",
	}, res.Errors[0])
}

func TestEngine_Crawl_Canceled(t *testing.T) {
	t.Parallel()

	s := newSite().html("https://site.test/home")
	e, _ := newEngine(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Crawl(ctx, "https://site.test/home")

	assert.Empty(t, res.Visited)
	assert.Equal(t, 0, s.fetchCount("https://site.test/home"))
}

func TestEngine_Crawl_CanceledMidway(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once

	s := newSite()
	extractor := extractorFunc(func(ctx context.Context, pageURL string) ([]crawler.LinkCandidate, error) {
		once.Do(cancel)

		return []crawler.LinkCandidate{{URL: pageURL + "/question-papers", AnchorText: "Question papers"}}, nil
	})

	e := crawler.NewEngine(extractor, classifier.NewDocumentClassifier(s), downloader.New(s, downloader.NewFileStorage(t.TempDir())),
		crawler.WithMaxDepth(10),
	)

	done := make(chan crawler.Result)

	go func() {
		done <- e.Crawl(ctx, "https://site.test/home")
	}()

	select {
	case res := <-done:
		assert.Equal(t, []string{"https://site.test/home"}, res.Visited)
	case <-time.After(5 * time.Second):
		t.Fatal("crawl did not stop after cancellation")
	}
}

type recorder struct {
	mu         sync.Mutex
	visited    map[int]int
	failed     int
	documents  map[string]int
	downloadKO int
}

func (r *recorder) PageVisited(depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visited[depth]++
}

func (r *recorder) PageFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failed++
}

func (r *recorder) DocumentDownloaded(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.documents[category]++
}

func (r *recorder) DownloadFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.downloadKO++
}

func TestEngine_Crawl_Recorder(t *testing.T) {
	t.Parallel()

	s := newSite().
		html("https://site.test/home",
			"https://site.test/syllabus.pdf", "Syllabus",
			"https://site.test/missing.pdf", "Missing",
			"https://site.test/broken-notes", "Notes",
		).
		pdf("https://site.test/syllabus.pdf", 4000)

	r := &recorder{visited: map[int]int{}, documents: map[string]int{}}
	e, _ := newEngine(t, s, crawler.WithMaxDepth(1), crawler.WithRecorder(r))

	crawl(t, e, "https://site.test/home")

	assert.Equal(t, map[int]int{0: 1, 1: 1}, r.visited)
	assert.Equal(t, 1, r.failed)
	assert.Equal(t, map[string]int{"syllabus": 1}, r.documents)
	assert.Equal(t, 1, r.downloadKO)
}
