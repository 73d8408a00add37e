// Package revision lists the commits a hunt searches.
//
// A Sequence is the ordered, duplicate-free window of revisions one bisection
// round runs over. Sequences are immutable: widening the lookback window lists
// a new Sequence rather than growing an old one.
package revision

// Sequence is an oldest-first list of revision hashes without duplicates.
type Sequence struct {
	ids   []string
	index map[string]int
}

// NewSequence builds a Sequence from oldest-first ids. Empty ids and repeats
// are dropped; the first occurrence wins.
func NewSequence(ids []string) Sequence {
	s := Sequence{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = len(s.ids)
		s.ids = append(s.ids, id)
	}
	return s
}

// Len returns the number of revisions.
func (s Sequence) Len() int {
	return len(s.ids)
}

// Empty reports whether the sequence holds no revisions.
func (s Sequence) Empty() bool {
	return len(s.ids) == 0
}

// At returns the revision at position i. It panics when i is out of range,
// like a slice index.
func (s Sequence) At(i int) string {
	return s.ids[i]
}

// IndexOf returns the position of id, or -1.
func (s Sequence) IndexOf(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Oldest returns the first revision, or "" for an empty sequence.
func (s Sequence) Oldest() string {
	if s.Empty() {
		return ""
	}
	return s.ids[0]
}

// Newest returns the last revision, or "" for an empty sequence.
func (s Sequence) Newest() string {
	if s.Empty() {
		return ""
	}
	return s.ids[len(s.ids)-1]
}

// IDs returns a copy of the revisions, oldest first.
func (s Sequence) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
