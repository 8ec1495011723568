package classifier

// Tier is the priority of a candidate page. Higher tiers are visited first.
type Tier int

const (
	// TierReject marks pages that are never visited.
	TierReject Tier = 0
	// TierCandidate marks pages with a weak relevance signal.
	TierCandidate Tier = 5
	// TierPriority marks pages that look like document listings.
	TierPriority Tier = 10
)

const defaultHubThreshold = 2

// HubScorer ranks pages by how likely they are to list documents.
type HubScorer struct {
	relevance Keywords
	results   Keywords
	academic  Keywords
	threshold int
}

// Score returns the tier of a page given its url and link text.
//
// Pages about results without academic terms are rejected. Pages with at least the threshold of distinct relevance
// keywords are priority, pages with fewer but at least one are candidates, others are rejected.
func (s *HubScorer) Score(rawURL, text string) Tier {
	combined := combine(rawURL, text)

	if s.IsResultPage(rawURL, text) {
		return TierReject
	}

	switch n := s.relevance.CountDistinct(combined); {
	case n >= s.threshold:
		return TierPriority
	case n >= 1:
		return TierCandidate
	default:
		return TierReject
	}
}

// IsResultPage tells whether a page publishes results rather than documents.
func (s *HubScorer) IsResultPage(rawURL, text string) bool {
	combined := combine(rawURL, text)

	return s.results.MatchAny(combined) && !s.academic.MatchAny(combined)
}

// NewHubScorer creates a new HubScorer.
func NewHubScorer(opts ...HubOption) *HubScorer {
	s := &HubScorer{
		relevance: DefaultRelevanceKeywords,
		results:   DefaultResultTerms,
		academic:  DefaultAcademicTerms,
		threshold: defaultHubThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.threshold < 1 {
		s.threshold = 1
	}

	return s
}

// HubOption is option to set up HubScorer.
type HubOption func(s *HubScorer)

// WithHubThreshold sets the number of distinct relevance keywords making a page a priority.
func WithHubThreshold(n int) HubOption {
	return func(s *HubScorer) {
		s.threshold = n
	}
}

// WithRelevanceKeywords replaces the relevance keywords.
func WithRelevanceKeywords(k Keywords) HubOption {
	return func(s *HubScorer) {
		if len(k) > 0 {
			s.relevance = k
		}
	}
}

// WithResultTerms replaces the terms marking result pages.
func WithResultTerms(k Keywords) HubOption {
	return func(s *HubScorer) {
		if len(k) > 0 {
			s.results = k
		}
	}
}

// WithAcademicTerms replaces the terms rescuing result pages.
func WithAcademicTerms(k Keywords) HubOption {
	return func(s *HubScorer) {
		if len(k) > 0 {
			s.academic = k
		}
	}
}
