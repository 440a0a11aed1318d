package pattern

// Set is an ordered collection of patterns with stable registration
// indices. Selection rule across a buffer snapshot (spec.md §3, load-bearing
// for tests): discard patterns that do not match; among survivors pick the
// smallest Start; break ties by smallest registration index.
type Set struct {
	patterns []Pattern
}

// NewSet builds a Set from an ordered list of patterns; registration index
// is the slice position.
func NewSet(patterns ...Pattern) *Set {
	return &Set{patterns: append([]Pattern(nil), patterns...)}
}

// Add appends a pattern, returning its registration index.
func (s *Set) Add(p Pattern) int {
	s.patterns = append(s.patterns, p)
	return len(s.patterns) - 1
}

// Len returns the number of registered patterns.
func (s *Set) Len() int { return len(s.patterns) }

// At returns the pattern at registration index i.
func (s *Set) At(i int) Pattern { return s.patterns[i] }

// HasKind reports whether any pattern in the set has the given kind.
func (s *Set) HasKind(k Kind) bool {
	for _, p := range s.patterns {
		if p.Kind == k {
			return true
		}
	}
	return false
}

// IndexOfKind returns the registration index of the first pattern with the
// given kind, or -1.
func (s *Set) IndexOfKind(k Kind) int {
	for i, p := range s.patterns {
		if p.Kind == k {
			return i
		}
	}
	return -1
}

// Result is the outcome of resolving a Set against a buffer snapshot:
// the winning pattern's registration index plus its Match.
type Result struct {
	Index int
	Match Match
}

// EvaluateContent evaluates every ordinary (non-EOF, non-Timeout) pattern
// in the set against data/text and returns the winner per the selection
// rule, or false if none match. EOF and Timeout patterns are never
// returned here; the session engine resolves those as competing outcomes
// once reads are exhausted (spec.md §4.3, §4.8 step 3).
func (s *Set) EvaluateContent(data []byte, text string) (Result, bool) {
	best := Result{Index: -1}
	found := false
	for i, p := range s.patterns {
		if p.Kind == EOF || p.Kind == Timeout {
			continue
		}
		m, ok := p.Evaluate(data, text)
		if !ok {
			continue
		}
		// Iterating in registration order means the first pattern to claim
		// a given Start already has the lowest index for that Start, so
		// only a strictly smaller Start displaces it.
		if !found || m.Start < best.Match.Start {
			best = Result{Index: i, Match: m}
			found = true
		}
	}
	return best, found
}
