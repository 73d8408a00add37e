package hunt

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/whiterabbit/internal/bisect"
	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
	"github.com/Iron-Ham/whiterabbit/internal/revision"
)

// DefaultMaxLookback caps lookback expansion.
const DefaultMaxLookback = 90 * 24 * time.Hour

const day = 24 * time.Hour

// Lister lists the revisions within a lookback window.
type Lister interface {
	List(ctx context.Context, ref string, lookback time.Duration) revision.Sequence
}

// Searcher runs one bisection over a sequence.
type Searcher interface {
	Search(ctx context.Context, seq revision.Sequence, oracle bisect.Oracle) bisect.Outcome
}

// Round is one list+search cycle of an expansion.
type Round struct {
	Lookback  time.Duration `json:"lookback" yaml:"lookback"`
	Revisions int           `json:"revisions" yaml:"revisions"`
	Kind      bisect.Kind   `json:"kind" yaml:"kind"`
}

// Expansion is the result of Expander.Run.
type Expansion struct {
	Outcome         bisect.Outcome `json:"outcome" yaml:"outcome"`
	Rounds          []Round        `json:"rounds" yaml:"rounds"`
	InitialLookback time.Duration  `json:"initial_lookback" yaml:"initial_lookback"`
	FinalLookback   time.Duration  `json:"final_lookback" yaml:"final_lookback"`
	Expanded        bool           `json:"expanded" yaml:"expanded"`
	// Revisions is the size of the last window listed.
	Revisions int `json:"revisions" yaml:"revisions"`
}

// Expander widens the lookback window until a search has something to say.
type Expander struct {
	lister   Lister
	searcher Searcher
	oracle   bisect.Oracle
	logger   *logging.Logger
	onRound  func(Round)
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithExpanderLogger sets the logger.
func WithExpanderLogger(logger *logging.Logger) ExpanderOption {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRoundHook is called after every round.
func WithRoundHook(fn func(Round)) ExpanderOption {
	return func(e *Expander) { e.onRound = fn }
}

// NewExpander creates an Expander.
func NewExpander(lister Lister, searcher Searcher, oracle bisect.Oracle, opts ...ExpanderOption) *Expander {
	e := &Expander{
		lister:   lister,
		searcher: searcher,
		oracle:   oracle,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run lists the history of ref and searches it, doubling the lookback after
// an empty window or an all-bad search while autoExpand is set and the
// lookback is below maxLookback, which the lookback never exceeds. Every
// round lists from ref, never from wherever the last probe left HEAD.
func (e *Expander) Run(ctx context.Context, ref string, initial, maxLookback time.Duration, autoExpand bool) Expansion {
	if maxLookback <= 0 {
		maxLookback = DefaultMaxLookback
	}
	lookback := min(max(initial, 0), maxLookback)
	exp := Expansion{InitialLookback: lookback}

	for {
		exp.FinalLookback = lookback
		if err := ctx.Err(); err != nil {
			exp.Outcome = bisect.Outcome{Kind: bisect.Inconclusive, Message: "hunt canceled"}
			return exp
		}

		seq := e.lister.List(ctx, ref, lookback)
		exp.Revisions = seq.Len()

		if seq.Empty() {
			e.record(&exp, Round{Lookback: lookback, Kind: bisect.NoData})
			if autoExpand && lookback < maxLookback {
				lookback = e.grow(lookback, maxLookback, "no revisions")
				exp.Expanded = true
				continue
			}
			if !autoExpand {
				exp.Outcome = bisect.Outcome{
					Kind:    bisect.NoData,
					Message: errors.NewNoDataError(lookback).Error(),
				}
			} else {
				exp.Outcome = bisect.Outcome{
					Kind: bisect.Inconclusive,
					Message: fmt.Sprintf("no revisions within the maximum lookback of %s; investigate manually",
						errors.FormatDays(maxLookback)),
				}
			}
			return exp
		}

		out := e.searcher.Search(ctx, seq, e.oracle)
		e.record(&exp, Round{Lookback: lookback, Revisions: seq.Len(), Kind: out.Kind})

		if out.Kind == bisect.AllBad && out.LastGood == "" && autoExpand {
			if lookback < maxLookback {
				lookback = e.grow(lookback, maxLookback, "marker missing in every revision")
				exp.Expanded = true
				continue
			}
			out.Kind = bisect.Inconclusive
			out.Message = fmt.Sprintf("marker missing in all %d revisions within the maximum lookback of %s; investigate manually",
				seq.Len(), errors.FormatDays(maxLookback))
		}
		exp.Outcome = out
		return exp
	}
}

func (e *Expander) record(exp *Expansion, r Round) {
	exp.Rounds = append(exp.Rounds, r)
	if e.onRound != nil {
		e.onRound(r)
	}
}

// grow doubles lookback up to maxLookback. A zero lookback grows to one day.
func (e *Expander) grow(lookback, maxLookback time.Duration, reason string) time.Duration {
	next := min(2*lookback, maxLookback)
	if lookback <= 0 {
		next = min(day, maxLookback)
	}
	e.logger.Info("expanding lookback",
		"reason", reason,
		"from", errors.FormatDays(lookback),
		"to", errors.FormatDays(next),
	)
	return next
}
