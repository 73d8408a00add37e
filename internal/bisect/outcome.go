package bisect

import (
	"github.com/Iron-Ham/whiterabbit/internal/probe"
)

// Kind classifies how a search ended.
type Kind string

const (
	// BoundaryFound means both a present and an absent revision were seen;
	// FirstBad is where the marker disappeared.
	BoundaryFound Kind = "boundary_found"
	// AllGood means every probed revision showed the marker.
	AllGood Kind = "all_good"
	// AllBad means no probed revision showed the marker.
	AllBad Kind = "all_bad"
	// NoData means there were no revisions to search.
	NoData Kind = "no_data"
	// Inconclusive means the search could not produce a trustworthy answer.
	Inconclusive Kind = "inconclusive"
)

// Outcome is the result of one search.
type Outcome struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	LastGood   string `json:"last_good,omitempty" yaml:"last_good,omitempty"`
	FirstBad   string `json:"first_bad,omitempty" yaml:"first_bad,omitempty"`
	Iterations int    `json:"iterations" yaml:"iterations"`
	// Probes counts oracle calls; cache hits are not probes.
	Probes  int      `json:"probes" yaml:"probes"`
	Steps   []Step   `json:"steps,omitempty" yaml:"steps,omitempty"`
	Message string   `json:"message" yaml:"message"`
	Notes   []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Step is one iteration of the search.
type Step struct {
	Iteration int           `json:"iteration" yaml:"iteration"`
	Left      int           `json:"left" yaml:"left"`
	Right     int           `json:"right" yaml:"right"`
	Index     int           `json:"index" yaml:"index"`
	Cached    bool          `json:"cached" yaml:"cached"`
	Verdict   probe.Verdict `json:"verdict" yaml:"verdict"`
}

// Success reports whether the search produced a usable answer.
func (o Outcome) Success() bool {
	switch o.Kind {
	case BoundaryFound, AllGood, AllBad:
		return true
	default:
		return false
	}
}

// AddNote appends a trailing note.
func (o *Outcome) AddNote(note string) {
	o.Notes = append(o.Notes, note)
}
