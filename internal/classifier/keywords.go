package classifier

import "strings"

// Keywords is a set of lower-case terms matched as substrings.
type Keywords []string

var (
	// DefaultRelevanceKeywords mark links that are likely to lead to documents.
	DefaultRelevanceKeywords = Keywords{
		"question", "paper", "exam", "syllabus", "qp", "model", "previous", "past", "year",
		"download", "file", "document", "pdf", "result", "marks", "solution", "assignment",
		"notes", "academic", "btech", "mtech", "mba", "mca", "pharmacy",
	}

	// DefaultResultTerms mark pages publishing results rather than documents.
	DefaultResultTerms = Keywords{"result", "grade", "marks", "score", "rank", "status"}

	// DefaultAcademicTerms mark pages listing academic documents.
	DefaultAcademicTerms = Keywords{"question", "paper", "syllabus", "model", "qp"}

	// DefaultSyllabusTerms route a document to the syllabus category.
	DefaultSyllabusTerms = Keywords{"syllabus", "cbcs", "structure"}

	// DefaultQuestionPaperTerms route a document to the question papers category.
	DefaultQuestionPaperTerms = Keywords{"question", "paper", "model", "qp"}
)

// NewKeywords lower-cases and trims the terms, dropping the empty ones.
func NewKeywords(terms ...string) Keywords {
	k := make(Keywords, 0, len(terms))

	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			k = append(k, t)
		}
	}

	return k
}

// MatchAny tells whether s contains at least one of the keywords. s must be lower-cased.
func (k Keywords) MatchAny(s string) bool {
	for _, kw := range k {
		if strings.Contains(s, kw) {
			return true
		}
	}

	return false
}

// CountDistinct counts the keywords contained in s. s must be lower-cased.
func (k Keywords) CountDistinct(s string) int {
	n := 0

	for _, kw := range k {
		if strings.Contains(s, kw) {
			n++
		}
	}

	return n
}

func combine(parts ...string) string {
	return strings.ToLower(strings.Join(parts, " "))
}
