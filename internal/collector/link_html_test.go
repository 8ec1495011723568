package collector_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatthm/docharvest/internal/collector"
)

const sampleHTML = "../../resources/fixtures/sample.html"

func TestHTMLLinkCollector_GetLinks_Error(t *testing.T) {
	t.Parallel()

	c := collector.NewHTMLLinkCollector()

	actual, err := c.GetLinks(newErrorReader(errors.New("random error")))

	assert.EqualError(t, err, "could not collect links from html doc: random error")
	assert.Nil(t, actual)
}

func TestHTMLLinkCollector_GetLinks_Success(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario string
		opts     []collector.HTMLOption
		expected []collector.Link
	}{
		{
			scenario: "without script links",
			expected: []collector.Link{
				{URL: "/static/site.css"},
				{URL: "/static/app.js"},
				{URL: "/", Text: "Home"},
				{URL: "/exams/question-papers", Text: "Previous Year Question Papers"},
				{URL: "results.html", Text: "Exam Results"},
				{URL: "#top"},
				{URL: "/files/btech-syllabus-2023.pdf", Text: "B.Tech Syllabus 2023"},
				{URL: "https://cdn.example.org/papers/mca-model-paper.pdf", Text: "MCA Model Paper"},
				{URL: "download.php?id=42", Text: "Download notes"},
				{URL: "/images/logo.png", Text: "College logo"},
				{URL: "/maps/campus", Text: "Campus map"},
				{URL: "/search"},
				{URL: "/media/intro.mp4"},
			},
		},
		{
			scenario: "with script links",
			opts:     []collector.HTMLOption{collector.WithScriptLinks()},
			expected: []collector.Link{
				{URL: "/static/site.css"},
				{URL: "/static/app.js"},
				{URL: "/", Text: "Home"},
				{URL: "/exams/question-papers", Text: "Previous Year Question Papers"},
				{URL: "results.html", Text: "Exam Results"},
				{URL: "#top"},
				{URL: "/files/btech-syllabus-2023.pdf", Text: "B.Tech Syllabus 2023"},
				{URL: "https://cdn.example.org/papers/mca-model-paper.pdf", Text: "MCA Model Paper"},
				{URL: "download.php?id=42", Text: "Download notes"},
				{URL: "/images/logo.png", Text: "College logo"},
				{URL: "/maps/campus", Text: "Campus map"},
				{URL: "/search"},
				{URL: "/media/intro.mp4"},
				{URL: "https://example.org/archive/2022-papers.pdf"},
				{URL: "/exams/archive"},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			f, err := os.Open(filepath.Clean(sampleHTML))
			require.NoError(t, err, "could not open html fixture")

			defer f.Close() // nolint: errcheck,gosec

			actual, err := collector.NewHTMLLinkCollector(tc.opts...).GetLinks(f)
			require.NoError(t, err, "could not get links")

			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestHTMLLinkCollector_GetLinks_ExternalScriptIsNotScanned(t *testing.T) {
	t.Parallel()

	doc := `<script src="/a.js">var u = "https://example.org/hidden.pdf";</script>`

	actual, err := collector.NewHTMLLinkCollector(collector.WithScriptLinks()).GetLinks(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []collector.Link{{URL: "/a.js"}}, actual)
}

func TestHTMLLinkCollector_GetLinks_UnclosedAnchor(t *testing.T) {
	t.Parallel()

	doc := `<a href="/one">First<a href="/two">Second`

	actual, err := collector.NewHTMLLinkCollector().GetLinks(strings.NewReader(doc))
	require.NoError(t, err)

	expected := []collector.Link{
		{URL: "/one", Text: "First"},
		{URL: "/two", Text: "Second"},
	}

	assert.Equal(t, expected, actual)
}
