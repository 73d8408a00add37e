// Package bisect finds where a marker disappeared from an ordered history.
//
// Search runs a plain binary search over an oldest-first revision sequence,
// assuming the marker is present up to some revision and absent after it.
// Verdicts are memoized per revision for the lifetime of one Search, so the
// oracle runs at most once per distinct revision.
package bisect

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
	"github.com/Iron-Ham/whiterabbit/internal/probe"
	"github.com/Iron-Ham/whiterabbit/internal/revision"
)

// DefaultSmallWindow is the revision count below which a wider window is
// suggested.
const DefaultSmallWindow = 10

// Oracle decides whether the marker is present at a revision.
type Oracle interface {
	Probe(ctx context.Context, rev string) probe.Verdict
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, rev string) probe.Verdict

// Probe implements Oracle.
func (f OracleFunc) Probe(ctx context.Context, rev string) probe.Verdict {
	return f(ctx, rev)
}

// Observer is told about search progress.
type Observer interface {
	SearchStarted(seq revision.Sequence)
	StepStarted(iteration int, rev string, left, right int)
	StepFinished(step Step)
}

// Bisector runs searches.
type Bisector struct {
	observer    Observer
	logger      *logging.Logger
	smallWindow int
}

// Option configures a Bisector.
type Option func(*Bisector)

// WithObserver reports progress to o.
func WithObserver(o Observer) Option {
	return func(b *Bisector) { b.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Bisector) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithSmallWindow overrides DefaultSmallWindow. Zero disables the note.
func WithSmallWindow(n int) Option {
	return func(b *Bisector) { b.smallWindow = n }
}

// New creates a Bisector.
func New(opts ...Option) *Bisector {
	b := &Bisector{
		logger:      logging.NopLogger(),
		smallWindow: DefaultSmallWindow,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Search looks for the last revision with the marker and the first without
// it. The window is always walked until it is exhausted; the search never
// stops at the first verdict. Cancellation between iterations ends the
// search as Inconclusive.
func (b *Bisector) Search(ctx context.Context, seq revision.Sequence, oracle Oracle) Outcome {
	if seq.Empty() {
		b.logger.Warn("search skipped", "reason", "no revisions")
		return Outcome{Kind: NoData, Message: "no revisions"}
	}
	if b.observer != nil {
		b.observer.SearchStarted(seq)
	}
	b.logger.Info("search started",
		"revisions", seq.Len(),
		"oldest", errors.ShortHash(seq.Oldest()),
		"newest", errors.ShortHash(seq.Newest()),
	)

	var out Outcome
	cache := make(map[string]probe.Verdict, seq.Len())
	var unverified []string

	left, right := 0, seq.Len()-1
	for left <= right {
		if err := ctx.Err(); err != nil {
			out.Kind = Inconclusive
			out.Message = "search canceled"
			b.logger.Warn("search canceled", "iterations", out.Iterations)
			return b.finish(out, seq, unverified)
		}

		mid := (left + right) / 2
		rev := seq.At(mid)
		out.Iterations++
		if b.observer != nil {
			b.observer.StepStarted(out.Iterations, rev, left, right)
		}

		verdict, cached := cache[rev]
		if !cached {
			verdict = oracle.Probe(ctx, rev)
			cache[rev] = verdict
			out.Probes++
			if !verdict.Verified {
				unverified = append(unverified, rev)
			}
		}

		step := Step{
			Iteration: out.Iterations,
			Left:      left,
			Right:     right,
			Index:     mid,
			Cached:    cached,
			Verdict:   verdict,
		}
		out.Steps = append(out.Steps, step)
		if b.observer != nil {
			b.observer.StepFinished(step)
		}
		b.logger.WithRevision(rev).Debug("search step",
			"iteration", out.Iterations,
			"left", left,
			"right", right,
			"present", verdict.Present,
			"cached", cached,
		)

		if verdict.Present {
			out.LastGood = rev
			left = mid + 1
		} else {
			out.FirstBad = rev
			right = mid - 1
		}
	}

	switch {
	case out.LastGood != "" && out.FirstBad != "":
		out.Kind = BoundaryFound
		out.Message = fmt.Sprintf("boundary found: marker present at %s, missing from %s",
			errors.ShortHash(out.LastGood), errors.ShortHash(out.FirstBad))
	case out.LastGood != "":
		out.Kind = AllGood
		out.Message = fmt.Sprintf("marker present in all %d revisions", seq.Len())
	default:
		out.Kind = AllBad
		out.Message = fmt.Sprintf("marker missing in all %d revisions", seq.Len())
	}

	b.logger.Info("search finished",
		"kind", string(out.Kind),
		"iterations", out.Iterations,
		"probes", out.Probes,
	)
	return b.finish(out, seq, unverified)
}

func (b *Bisector) finish(out Outcome, seq revision.Sequence, unverified []string) Outcome {
	if b.smallWindow > 0 && seq.Len() < b.smallWindow {
		out.AddNote(fmt.Sprintf("only %d revisions in window; widen the lookback for a more reliable result", seq.Len()))
	}
	if len(unverified) > 0 {
		short := make([]string, len(unverified))
		for i, rev := range unverified {
			short[i] = errors.ShortHash(rev)
		}
		out.AddNote("could not verify (treated as marker absent): " + strings.Join(short, ", "))
	}
	return out
}
