package report_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatthm/docharvest/internal/crawler"
	"github.com/nhatthm/docharvest/internal/report"
)

func docs(categories ...string) []crawler.Document {
	out := make([]crawler.Document, 0, len(categories))

	for i, c := range categories {
		out = append(out, crawler.Document{Filename: string(rune('a'+i)) + ".pdf", Category: c})
	}

	return out
}

func TestTracker_Empty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr := report.NewTracker(dir)

	require.NoError(t, tr.SaveReport())

	data, err := os.ReadFile(filepath.Join(dir, report.FinalReportFile)) //nolint: gosec
	require.NoError(t, err)

	assert.JSONEq(t, `{"processed_urls":[],"total_documents":0,"failed_urls":[],"categories_summary":{}}`, string(data))
}

func TestTracker_SaveProgress(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	tr := report.NewTracker(dir)

	tr.RecordSuccess("https://college.edu/exams", docs("syllabus", "question_papers"))
	tr.RecordFailure("https://down.edu/", errors.New("fetch https://down.edu/: connection refused"), nil)

	require.NoError(t, tr.SaveProgress())

	data, err := os.ReadFile(filepath.Join(dir, report.ProgressFile)) //nolint: gosec
	require.NoError(t, err)

	assert.NotContains(t, string(data), "\n")

	expected := `{
		"processed_urls": [
			{"url": "https://college.edu/exams", "documents_downloaded": 2, "status": "success"},
			{"url": "https://down.edu/", "documents_downloaded": 0, "status": "failed", "error": "fetch https://down.edu/: connection refused"}
		],
		"total_documents": 2,
		"failed_urls": ["https://down.edu/"],
		"categories_summary": {"syllabus": 1, "question_papers": 1}
	}`

	assert.JSONEq(t, expected, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file left behind")
}

func TestTracker_CategoriesMatchDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr := report.NewTracker(dir)

	seeds := [][]crawler.Document{
		docs("syllabus", "syllabus", "educational_materials"),
		docs(),
		docs("question_papers", "syllabus"),
	}

	expected := map[string]int{}
	total := 0

	var wg sync.WaitGroup

	for i, d := range seeds {
		for _, doc := range d {
			expected[doc.Category]++
			total++
		}

		wg.Add(1)

		go func(i int, d []crawler.Document) {
			defer wg.Done()

			if i == 1 {
				tr.RecordFailure("https://college.edu/"+string(rune('a'+i)), nil, d)

				return
			}

			tr.RecordSuccess("https://college.edu/"+string(rune('a'+i)), d)
		}(i, d)
	}

	wg.Wait()

	require.NoError(t, tr.SaveReport())

	p, err := report.Load(filepath.Join(dir, report.FinalReportFile))
	require.NoError(t, err)

	assert.Equal(t, expected, p.CategoriesSummary)
	assert.Equal(t, total, p.TotalDocuments)
	assert.Len(t, p.ProcessedURLs, 3)
	assert.Equal(t, []string{"https://college.edu/b"}, p.FailedURLs)
}

func TestTracker_FailureKeepsPartialDocuments(t *testing.T) {
	t.Parallel()

	tr := report.NewTracker(t.TempDir())

	tr.RecordFailure("https://college.edu/", errors.New("operation canceled"), docs("syllabus"))

	p := tr.Snapshot()

	assert.Equal(t, 1, p.TotalDocuments)
	assert.Equal(t, map[string]int{"syllabus": 1}, p.CategoriesSummary)
	assert.Equal(t, "operation canceled", p.ProcessedURLs[0].Error)
	assert.Equal(t, 1, p.ProcessedURLs[0].DocumentsDownloaded)
}

func TestTracker_WriteSummary(t *testing.T) {
	t.Parallel()

	tr := report.NewTracker(t.TempDir())

	tr.RecordSuccess("https://college.edu/", docs("syllabus", "question_papers", "syllabus"))
	tr.RecordFailure("https://down.edu/", errors.New("boom"), nil)

	var buf bytes.Buffer

	require.NoError(t, tr.WriteSummary(&buf))

	expected := strings.Join([]string{
		"URLs processed: 2",
		"Successful URLs: 1",
		"Failed URLs: 1",
		"Documents downloaded: 3",
		"  question_papers: 1",
		"  syllabus: 2",
		"",
	}, "\n")

	assert.Equal(t, expected, buf.String())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := report.Load(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "could not read report")

	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err = report.Load(path)
	assert.ErrorContains(t, err, "could not decode report")
}
