package simhash

// DefaultThreshold is the largest distance still reported as a near duplicate.
const DefaultThreshold = 3

// Index remembers the fingerprints of documents seen during one run.
// It is not safe for concurrent use.
type Index struct {
	threshold int
	docs      []indexed
}

type indexed struct {
	id string
	fp uint64
}

// NewIndex creates an empty Index. A negative threshold uses DefaultThreshold.
func NewIndex(threshold int) *Index {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Index{threshold: threshold}
}

// Match returns the first recorded document within the threshold of fp.
// A zero fingerprint (empty document) never matches.
func (ix *Index) Match(fp uint64) (id string, dist int, ok bool) {
	if fp == 0 {
		return "", 0, false
	}
	for _, d := range ix.docs {
		if Similar(d.fp, fp, ix.threshold) {
			return d.id, Distance(d.fp, fp), true
		}
	}
	return "", 0, false
}

// Add records fp under id and returns the earlier near duplicate, if any.
func (ix *Index) Add(id string, fp uint64) (match string, dist int, ok bool) {
	match, dist, ok = ix.Match(fp)
	if fp != 0 {
		ix.docs = append(ix.docs, indexed{id: id, fp: fp})
	}
	return match, dist, ok
}

// Len returns the number of recorded documents.
func (ix *Index) Len() int { return len(ix.docs) }
