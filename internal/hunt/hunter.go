// Package hunt runs a complete regression hunt.
//
// A Hunter captures the repository's starting reference, runs the expanding
// search, optionally re-probes the boundary it found, and restores the
// reference. Restore happens exactly once per run, on a context that is not
// canceled with the hunt, and also when the search panics.
package hunt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/whiterabbit/internal/bisect"
	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/guard"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
	"github.com/Iron-Ham/whiterabbit/internal/results"
)

// Result names recorded by a hunt.
const (
	ResultGitStateCheck   = "git_state_check"
	ResultCommitRetrieval = "commit_retrieval"
	ResultBinarySearch    = "white_rabbit_binary_search"
	ResultRestore         = "restore"
)

// NotReproducible is the outcome message when boundary confirmation flips a verdict.
const NotReproducible = "boundary not reproducible: history is flaky or non-monotonic"

// Request parameterizes one hunt.
type Request struct {
	Lookback    time.Duration
	MaxLookback time.Duration
	AutoExpand  bool
	// Confirm re-probes the boundary pair after a BoundaryFound.
	Confirm bool
}

// Report is everything a hunt found out.
type Report struct {
	HuntID    string              `json:"hunt_id" yaml:"hunt_id"`
	Reference guard.Reference     `json:"reference" yaml:"reference"`
	Outcome   bisect.Outcome      `json:"outcome" yaml:"outcome"`
	Expansion Expansion           `json:"expansion" yaml:"expansion"`
	LastGood  *git.Commit         `json:"last_good_commit,omitempty" yaml:"last_good_commit,omitempty"`
	FirstBad  *git.Commit         `json:"first_bad_commit,omitempty" yaml:"first_bad_commit,omitempty"`
	Restore   guard.RestoreResult `json:"restore" yaml:"restore"`
	Summary   results.Summary     `json:"summary" yaml:"summary"`
	Started   time.Time           `json:"started" yaml:"started"`
	Finished  time.Time           `json:"finished" yaml:"finished"`
}

// ExitCode is 0 when no recorded result failed.
func (r Report) ExitCode() int {
	return results.ExitCode(r.Summary)
}

// Runner is the part of Expander a Hunter uses.
type Runner interface {
	Run(ctx context.Context, ref string, initial, maxLookback time.Duration, autoExpand bool) Expansion
}

// Hunter runs hunts against one repository.
type Hunter struct {
	backend git.Backend
	guard   *guard.Guard
	runner  Runner
	confirm bisect.Oracle
	logger  *logging.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Hunter.
type Option func(*Hunter)

// WithConfirmOracle sets the oracle used to re-probe the boundary.
func WithConfirmOracle(o bisect.Oracle) Option {
	return func(h *Hunter) { h.confirm = o }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(h *Hunter) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Hunter) { h.now = now }
}

// WithIDGenerator replaces the hunt ID source.
func WithIDGenerator(fn func() string) Option {
	return func(h *Hunter) { h.newID = fn }
}

// NewHunter creates a Hunter.
func NewHunter(backend git.Backend, g *guard.Guard, runner Runner, opts ...Option) *Hunter {
	h := &Hunter{
		backend: backend,
		guard:   g,
		runner:  runner,
		logger:  logging.NopLogger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes one hunt. It never returns an error; every failure is a
// recorded result and the outcome says what is known.
func (h *Hunter) Run(ctx context.Context, req Request) (report Report) {
	report.HuntID = h.newID()
	report.Started = h.now()
	log := h.logger.WithHunt(report.HuntID)
	rec := results.NewRecorder(results.WithClock(h.now))

	log.WithPhase("capture").Info("hunt started",
		"lookback", errors.FormatDays(req.Lookback),
		"max_lookback", errors.FormatDays(req.MaxLookback),
		"auto_expand", req.AutoExpand,
	)

	ref, err := h.guard.Capture(ctx)
	if err != nil {
		log.Failure("could not capture repository state", err)
		details := map[string]any{"error": err.Error()}
		report.Outcome = bisect.Outcome{
			Kind:    bisect.Inconclusive,
			Message: "could not capture repository state: " + err.Error(),
		}
		if ref.Name != "" {
			// Capture moved HEAD before failing.
			details["detached_revision"] = ref.DetachedRevision
			report.Reference = ref
		}
		rec.Add(ResultGitStateCheck, false, details)
		if ref.Name != "" {
			h.restore(ctx, log, ref, rec, &report)
		}
		report.Summary = rec.Summary()
		report.Finished = h.now()
		return report
	}
	report.Reference = ref
	state := map[string]any{
		"reference":    ref.Name,
		"kind":         string(ref.Kind),
		"revision":     ref.Revision,
		"was_detached": ref.WasDetached,
	}
	if ref.WasDetached {
		state["detached_revision"] = ref.DetachedRevision
	}
	rec.Add(ResultGitStateCheck, true, state)

	defer func() {
		if r := recover(); r != nil {
			log.Error("hunt aborted", "panic", fmt.Sprint(r))
			report.Outcome = bisect.Outcome{
				Kind:    bisect.Inconclusive,
				Message: fmt.Sprintf("hunt aborted: %v", r),
			}
			rec.Add(ResultBinarySearch, false, map[string]any{"error": fmt.Sprint(r)})
		}

		h.restore(ctx, log, ref, rec, &report)
		report.Summary = rec.Summary()
		report.Finished = h.now()
		log.WithPhase("restore").Info("hunt finished",
			"kind", string(report.Outcome.Kind),
			"restored", report.Restore.Success,
		)
	}()

	exp := h.runner.Run(ctx, ref.Name, req.Lookback, req.MaxLookback, req.AutoExpand)
	report.Expansion = exp
	rec.Add(ResultCommitRetrieval, exp.Revisions > 0, map[string]any{
		"commit_count":  exp.Revisions,
		"days_searched": int(exp.FinalLookback / day),
	})

	out := exp.Outcome
	if req.Confirm && out.Kind == bisect.BoundaryFound && h.confirm != nil {
		out = h.confirmBoundary(ctx, log.WithPhase("confirm"), out)
	}
	report.Outcome = out
	report.LastGood = h.describe(ctx, out.LastGood)
	report.FirstBad = h.describe(ctx, out.FirstBad)

	search := map[string]any{
		"kind":                    string(out.Kind),
		"message":                 out.Message,
		"iterations":              out.Iterations,
		"probes":                  out.Probes,
		"original_days_requested": int(req.Lookback / day),
		"actual_days_searched":    int(exp.FinalLookback / day),
		"auto_expanded":           exp.Expanded,
	}
	if out.LastGood != "" {
		search["last_good"] = out.LastGood
	}
	if out.FirstBad != "" {
		search["first_bad"] = out.FirstBad
	}
	rec.Add(ResultBinarySearch, out.Success(), search)
	return report
}

// restore returns the repository to ref on a context that outlives the hunt's.
func (h *Hunter) restore(ctx context.Context, log *logging.Logger, ref guard.Reference, rec *results.Recorder, report *Report) {
	res := h.guard.Restore(context.WithoutCancel(ctx), ref)
	report.Restore = res
	rec.Add(ResultRestore, res.Success, map[string]any{
		"reference": ref.String(),
		"message":   res.Message,
	})
	if res.Warning != nil {
		report.Outcome.AddNote(res.Message)
	}
	log.WithPhase("restore").Debug("restore attempted", "reference", ref.String(), "success", res.Success)
}

// confirmBoundary re-probes both sides of a boundary without the search's
// cache. Any flipped verdict makes the outcome Inconclusive.
func (h *Hunter) confirmBoundary(ctx context.Context, log *logging.Logger, out bisect.Outcome) bisect.Outcome {
	good := h.confirm.Probe(ctx, out.LastGood)
	bad := h.confirm.Probe(ctx, out.FirstBad)

	if good.Present && !bad.Present {
		log.Info("boundary confirmed")
		out.AddNote("boundary confirmed by re-probing both revisions")
		return out
	}

	log.Warn("boundary not reproducible",
		"last_good_present", good.Present,
		"first_bad_present", bad.Present,
	)
	out.Kind = bisect.Inconclusive
	out.Message = NotReproducible
	if !good.Present {
		out.AddNote(fmt.Sprintf("%s no longer shows the marker: %s", errors.ShortHash(out.LastGood), good.Message))
	}
	if bad.Present {
		out.AddNote(fmt.Sprintf("%s now shows the marker: %s", errors.ShortHash(out.FirstBad), bad.Message))
	}
	return out
}

func (h *Hunter) describe(ctx context.Context, rev string) *git.Commit {
	if rev == "" {
		return nil
	}
	c, err := h.backend.Describe(ctx, rev)
	if err != nil {
		h.logger.Debug("could not describe revision", "revision", rev, "error", err.Error())
		return nil
	}
	return &c
}
