package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bool64/ctxd"
)

// Category is the label of a downloaded document.
type Category string

const (
	// CategorySyllabus labels course structures.
	CategorySyllabus Category = "syllabus"
	// CategoryQuestionPapers labels question and model papers.
	CategoryQuestionPapers Category = "question_papers"
	// CategoryEducationalMaterials labels everything else.
	CategoryEducationalMaterials Category = "educational_materials"
)

const defaultCategorizeTimeout = 30 * time.Second

// Categories lists every category.
var Categories = []Category{CategorySyllabus, CategoryQuestionPapers, CategoryEducationalMaterials}

// ParseCategory parses a category name, ignoring case and surrounding spaces.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}

	return "", false
}

// Subject is what a categorizer looks at.
type Subject struct {
	Filename string
	URL      string
	// Text is the text of the link the document was found through.
	Text string
}

// ExternalCategorizer categorizes a document with an outside service.
type ExternalCategorizer interface {
	Categorize(ctx context.Context, s Subject) (Category, error)
}

// KeywordCategorizer categorizes documents by keywords found in their file name, url and text.
type KeywordCategorizer struct {
	syllabus       Keywords
	questionPapers Keywords
}

// Categorize returns syllabus, question_papers or educational_materials, checked in that order.
func (c *KeywordCategorizer) Categorize(s Subject) Category {
	combined := combine(s.Filename, s.URL, s.Text)

	switch {
	case c.syllabus.MatchAny(combined):
		return CategorySyllabus
	case c.questionPapers.MatchAny(combined):
		return CategoryQuestionPapers
	default:
		return CategoryEducationalMaterials
	}
}

// NewKeywordCategorizer creates a new KeywordCategorizer. Empty keyword sets fall back to the defaults.
func NewKeywordCategorizer(syllabus, questionPapers Keywords) *KeywordCategorizer {
	if len(syllabus) == 0 {
		syllabus = DefaultSyllabusTerms
	}

	if len(questionPapers) == 0 {
		questionPapers = DefaultQuestionPaperTerms
	}

	return &KeywordCategorizer{syllabus: syllabus, questionPapers: questionPapers}
}

// TwoStageCategorizer asks an external categorizer first and falls back to keywords when it fails or is not set.
type TwoStageCategorizer struct {
	external ExternalCategorizer
	keywords *KeywordCategorizer
	timeout  time.Duration
	log      ctxd.Logger
}

// Categorize always returns a valid category.
func (c *TwoStageCategorizer) Categorize(ctx context.Context, s Subject) Category {
	if c.external == nil {
		return c.keywords.Categorize(s)
	}

	ctx = ctxd.AddFields(ctx, "classifier.filename", s.Filename)

	extCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	category, err := c.external.Categorize(extCtx, s)
	if err == nil {
		if parsed, ok := ParseCategory(string(category)); ok {
			return parsed
		}

		err = ErrInvalidCategory
	}

	c.log.Warn(ctx, "using keyword categorization", "error", fmt.Errorf("%w: %w", ErrClassificationFallback, err))

	return c.keywords.Categorize(s)
}

// NewTwoStageCategorizer creates a new TwoStageCategorizer. A nil external categorizer means keywords only.
func NewTwoStageCategorizer(external ExternalCategorizer, keywords *KeywordCategorizer, opts ...TwoStageOption) *TwoStageCategorizer {
	if keywords == nil {
		keywords = NewKeywordCategorizer(nil, nil)
	}

	c := &TwoStageCategorizer{
		external: external,
		keywords: keywords,
		timeout:  defaultCategorizeTimeout,
		log:      ctxd.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TwoStageOption is option to set up TwoStageCategorizer.
type TwoStageOption func(c *TwoStageCategorizer)

// WithCategorizerLogger sets logger for TwoStageCategorizer.
func WithCategorizerLogger(l ctxd.Logger) TwoStageOption {
	return func(c *TwoStageCategorizer) {
		c.log = l
	}
}

// WithCategorizeTimeout bounds a call to the external categorizer.
func WithCategorizeTimeout(d time.Duration) TwoStageOption {
	return func(c *TwoStageCategorizer) {
		if d > 0 {
			c.timeout = d
		}
	}
}
