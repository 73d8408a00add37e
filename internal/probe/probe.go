// Package probe decides whether the marker is present at one revision.
//
// A probe is a fixed sequence of steps against the working tree and the
// supervised target process:
//
//  1. record the current revision for diagnostics, and the end of the log
//     when reloading
//  2. checkout the revision
//  3. verify HEAD is exactly that revision
//  4. touch the target's entry file so its supervisor restarts it
//  5. wait the settling interval
//  6. scan the target's log for the marker, ignoring case
//
// The log is append-only. With a reload, only output written after step 1 is
// scanned, so a marker logged by an earlier revision is never counted.
//
// Checkout and verification failures are not errors to the caller. They
// produce a Verdict with Present=false and Verified=false so that a search
// keeps going and a human can tell "verified absent" from "could not verify".
package probe

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
)

// Step names the probe step that decided a verdict.
type Step string

const (
	StepCheckout Step = "checkout"
	StepVerify   Step = "verify"
	StepReload   Step = "reload"
	StepSettle   Step = "settle"
	StepInspect  Step = "inspect"
)

// Verdict is the outcome of probing one revision.
type Verdict struct {
	Revision string `json:"revision" yaml:"revision"`
	Present  bool   `json:"present" yaml:"present"`
	// Verified is false when the verdict means "could not verify" rather
	// than "verified absent".
	Verified    bool              `json:"verified" yaml:"verified"`
	Step        Step              `json:"step" yaml:"step"`
	Message     string            `json:"message" yaml:"message"`
	Diagnostics map[string]string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Elapsed     time.Duration     `json:"elapsed" yaml:"elapsed"`
}

// Probe runs the probe protocol against one working tree.
type Probe struct {
	backend     git.Backend
	inspector   Inspector
	reload      ReloadSignal
	settler     Settler
	interval    time.Duration
	forceReload bool
	watchPath   string
	logger      *logging.Logger
}

// Option configures a Probe.
type Option func(*Probe)

// WithReloadSignal sets how the target is told to reload.
func WithReloadSignal(s ReloadSignal) Option {
	return func(p *Probe) { p.reload = s }
}

// WithSettler replaces the settling wait.
func WithSettler(s Settler) Option {
	return func(p *Probe) { p.settler = s }
}

// WithSettlingInterval overrides DefaultSettlingInterval.
func WithSettlingInterval(d time.Duration) Option {
	return func(p *Probe) { p.interval = d }
}

// WithForceReload sets the reload default used by Probe.
func WithForceReload(force bool) Option {
	return func(p *Probe) { p.forceReload = force }
}

// WithActivityWatch counts writes to the log at path while settling.
func WithActivityWatch(path string) Option {
	return func(p *Probe) { p.watchPath = path }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Probe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Probe. Without options it reloads on every probe, waits
// DefaultSettlingInterval on a SleepSettler and never watches log activity.
func New(backend git.Backend, inspector Inspector, opts ...Option) *Probe {
	p := &Probe{
		backend:     backend,
		inspector:   inspector,
		reload:      SignalFunc(func(context.Context) error { return nil }),
		settler:     &SleepSettler{},
		interval:    DefaultSettlingInterval,
		forceReload: true,
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe checks rev with the configured reload default.
func (p *Probe) Probe(ctx context.Context, rev string) Verdict {
	return p.Check(ctx, rev, p.forceReload)
}

// Check runs the probe protocol for rev. It never returns an error: every
// failure is folded into the verdict and its diagnostics.
func (p *Probe) Check(ctx context.Context, rev string, forceReload bool) Verdict {
	start := time.Now()
	log := p.logger.WithRevision(rev)
	v := Verdict{Revision: rev, Diagnostics: map[string]string{}}

	finish := func(step Step, msg string) Verdict {
		v.Step = step
		v.Message = msg
		v.Elapsed = time.Since(start)
		log.Info("probe finished",
			"step", string(step),
			"present", v.Present,
			"verified", v.Verified,
			"elapsed_ms", v.Elapsed.Milliseconds(),
		)
		return v
	}

	if prev, err := p.backend.CurrentRevision(ctx); err == nil {
		v.Diagnostics["previous_revision"] = prev
	} else {
		v.Diagnostics["previous_revision_error"] = err.Error()
	}

	var from int64
	if forceReload {
		off, err := p.inspector.Offset()
		if err != nil {
			v.Diagnostics["offset_error"] = err.Error()
			log.Debug("log offset unavailable, scanning whole log", "error", err.Error())
		}
		from = off
	}

	if err := p.backend.Checkout(ctx, rev); err != nil {
		maps.Copy(v.Diagnostics, errors.Details(err))
		log.Failure("checkout failed", err)
		return finish(StepCheckout, "could not verify: checkout failed")
	}

	actual, err := p.backend.CurrentRevision(ctx)
	if err != nil || actual != rev {
		verr := errors.NewVerificationError(rev, actual)
		if err != nil {
			verr = verr.WithCause(err)
		}
		maps.Copy(v.Diagnostics, errors.Details(verr))
		log.Failure("checkout verification failed", verr)
		return finish(StepVerify, "could not verify: "+verr.Error())
	}

	var watcher *ActivityWatcher
	if forceReload {
		if p.watchPath != "" {
			if watcher, err = WatchActivity(p.watchPath); err != nil {
				v.Diagnostics["watch_error"] = err.Error()
				log.Debug("log activity watch unavailable", "error", err.Error())
			}
		}
		if err := p.reload.Trigger(ctx); err != nil {
			v.Diagnostics["reload_error"] = err.Error()
			log.Warn("reload signal failed", "error", err.Error())
		}
	}

	if err := p.settler.Settle(ctx, p.interval); err != nil {
		if watcher != nil {
			watcher.Stop()
		}
		v.Diagnostics["settle_error"] = err.Error()
		return finish(StepSettle, "could not verify: settling interrupted")
	}

	if watcher != nil {
		writes := watcher.Stop()
		v.Diagnostics["log_writes"] = strconv.Itoa(writes)
		if writes == 0 {
			v.Diagnostics["log_activity"] = "none"
			log.Warn("no log activity after reload")
		}
	}

	finding, err := p.inspector.Inspect(ctx, from)
	v.Diagnostics["lines_scanned"] = strconv.Itoa(finding.LinesScanned)
	if finding.From > 0 {
		v.Diagnostics["scan_offset"] = strconv.FormatInt(finding.From, 10)
	}
	if finding.Rewound {
		v.Diagnostics["log_rewound"] = "true"
		log.Warn("log shrank since checkout, scanned from the start")
	}
	if err != nil {
		v.Diagnostics["inspect_error"] = err.Error()
		return finish(StepInspect, "could not verify: log unreadable")
	}

	v.Verified = true
	v.Present = finding.Present
	if finding.Present {
		v.Diagnostics["marker_line"] = finding.Line
		v.Diagnostics["marker_line_number"] = strconv.Itoa(finding.LineNumber)
		return finish(StepInspect, fmt.Sprintf("marker present at line %d", finding.LineNumber))
	}
	return finish(StepInspect, "marker absent")
}
