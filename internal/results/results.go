// Package results records the named pass/fail results of a run and
// summarizes them. The process exit code is derived from the summary.
package results

import (
	"fmt"
	"sync"
	"time"
)

// Result is one named check.
type Result struct {
	Name      string         `json:"name" yaml:"name"`
	Success   bool           `json:"success" yaml:"success"`
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
}

// Summary aggregates the results of a run.
type Summary struct {
	TotalTests  int      `json:"total_tests" yaml:"total_tests"`
	Passed      int      `json:"passed" yaml:"passed"`
	Failed      int      `json:"failed" yaml:"failed"`
	SuccessRate string   `json:"success_rate" yaml:"success_rate"`
	Duration    string   `json:"duration" yaml:"duration"`
	Results     []Result `json:"results" yaml:"results"`
}

// OK reports whether no result failed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Recorder collects results in the order they were added.
type Recorder struct {
	mu      sync.Mutex
	results []Result
	start   time.Time
	now     func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder; the run duration is measured from here.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	return r
}

// Add records a result.
func (r *Recorder) Add(name string, success bool, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, Result{
		Name:      name,
		Success:   success,
		Details:   details,
		Timestamp: r.now(),
	})
}

// Results returns a copy of the recorded results.
func (r *Recorder) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Summary aggregates the results recorded so far.
func (r *Recorder) Summary() Summary {
	results := r.Results()
	s := Summary{
		TotalTests: len(results),
		Results:    results,
	}
	for _, res := range results {
		if res.Success {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	rate := 0.0
	if s.TotalTests > 0 {
		rate = float64(s.Passed) / float64(s.TotalTests) * 100
	}
	s.SuccessRate = fmt.Sprintf("%.1f%%", rate)
	s.Duration = fmt.Sprintf("%.2fs", r.now().Sub(r.start).Seconds())
	return s
}

// ExitCode is 0 when no result failed and 1 otherwise.
func (r *Recorder) ExitCode() int {
	return ExitCode(r.Summary())
}

// ExitCode is 0 when no result in s failed and 1 otherwise.
func ExitCode(s Summary) int {
	if s.OK() {
		return 0
	}
	return 1
}
