package hunt

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/guard"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
	"github.com/Iron-Ham/whiterabbit/internal/probe"
)

// Exploration is the result of jumping back through history by hand.
type Exploration struct {
	Reference   guard.Reference `json:"reference" yaml:"reference"`
	Offset      int             `json:"offset" yaml:"offset"`
	Commit      git.Commit      `json:"commit" yaml:"commit"`
	Reloaded    bool            `json:"reloaded" yaml:"reloaded"`
	ReloadError string          `json:"reload_error,omitempty" yaml:"reload_error,omitempty"`
}

// Explorer checks out the revision N commits behind the current tip and
// reloads the target, leaving the repository there until it is restored.
type Explorer struct {
	backend git.Backend
	guard   *guard.Guard
	reload  probe.ReloadSignal
	logger  *logging.Logger
}

// NewExplorer creates an Explorer. reload may be nil.
func NewExplorer(backend git.Backend, g *guard.Guard, reload probe.ReloadSignal, logger *logging.Logger) *Explorer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Explorer{backend: backend, guard: g, reload: reload, logger: logger}
}

// Explore checks out the revision offset commits behind the tip of the
// current branch. A detached repository is normalized to the default
// branch first, so offsets always count from a branch tip.
func (e *Explorer) Explore(ctx context.Context, offset int) (Exploration, error) {
	if offset < 0 {
		return Exploration{}, errors.NewValidationError("offset must be non-negative").
			WithField("offset").
			WithValue(offset)
	}

	ref, err := e.guard.Capture(ctx)
	if err != nil {
		if ref.Name != "" {
			res := e.guard.Restore(context.WithoutCancel(ctx), ref)
			e.logger.Warn("capture failed after moving HEAD",
				"detached_revision", ref.DetachedRevision,
				"restored", res.Success,
			)
		}
		return Exploration{Reference: ref}, err
	}
	x := Exploration{Reference: ref, Offset: offset}

	target := ref.Name + "~" + strconv.Itoa(offset)
	rev, err := e.backend.ResolveRef(ctx, target)
	if err != nil {
		return x, errors.Wrapf(err, "%s has fewer than %d ancestors", ref.String(), offset)
	}
	if err := e.backend.Checkout(ctx, rev); err != nil {
		return x, err
	}

	commit, err := e.backend.Describe(ctx, rev)
	if err != nil {
		commit = git.Commit{Hash: rev}
	}
	x.Commit = commit

	if e.reload != nil {
		if err := e.reload.Trigger(ctx); err != nil {
			x.ReloadError = err.Error()
		} else {
			x.Reloaded = true
		}
	}

	e.logger.Info("explored revision",
		"offset", offset,
		"revision", rev,
		"reloaded", x.Reloaded,
	)
	return x, nil
}

// String summarizes the exploration for terminal output.
func (x Exploration) String() string {
	return fmt.Sprintf("%s~%d is %s %q", x.Reference.Name, x.Offset, x.Commit.Short(), x.Commit.Subject)
}
