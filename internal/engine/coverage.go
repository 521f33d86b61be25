package engine

// CoverageTracker records the distinct state signatures a search reaches,
// in first-seen order.
//
// Coverage is reporting, not control flow: by default a state seen before
// is still checked and expanded (see WithPruneRevisited).
//
// Not safe for concurrent use; each Explore call owns one.
type CoverageTracker struct {
	seen  map[string]bool
	order []string
}

// NewCoverageTracker creates an empty tracker.
func NewCoverageTracker() *CoverageTracker {
	return &CoverageTracker{seen: make(map[string]bool)}
}

// Record marks sig as seen and reports whether this was its first sighting.
func (c *CoverageTracker) Record(sig string) bool {
	if c.seen[sig] {
		return false
	}
	c.seen[sig] = true
	c.order = append(c.order, sig)
	return true
}

// Len returns the number of distinct signatures.
func (c *CoverageTracker) Len() int {
	return len(c.order)
}

// Signatures returns a copy of the signatures in first-seen order.
func (c *CoverageTracker) Signatures() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
