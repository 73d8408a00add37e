// Package guard returns the inspected repository to where a run found it.
//
// Capture records the starting reference before anything is checked out.
// A detached HEAD is an abnormal start for a hunt: unless detached starts are
// allowed, Capture moves the repository to its default branch first and
// records the correction. Restore makes a single checkout back to the
// captured reference; its failure is a warning, never an error.
package guard

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
)

// Kind is the kind of reference a run returns to.
type Kind string

const (
	KindBranch         Kind = "branch"
	KindDetachedCommit Kind = "detached_commit"
)

// Reference is where a run started and where it returns to.
type Reference struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Name is the branch name, or the full hash for a detached commit.
	Name string `json:"name" yaml:"name"`
	// Revision is the hash Name pointed at when captured.
	Revision string `json:"revision" yaml:"revision"`
	// WasDetached is set when Capture moved a detached HEAD to the default branch.
	WasDetached bool `json:"was_detached" yaml:"was_detached"`
	// DetachedRevision is the hash HEAD sat on before that correction.
	DetachedRevision string `json:"detached_revision,omitempty" yaml:"detached_revision,omitempty"`
}

// String returns a short human description.
func (r Reference) String() string {
	if r.Kind == KindBranch {
		return "branch " + r.Name
	}
	return "commit " + errors.ShortHash(r.Name)
}

// RestoreResult describes the end-of-run checkout.
type RestoreResult struct {
	Success bool                   `json:"success" yaml:"success"`
	Message string                 `json:"message" yaml:"message"`
	Warning *errors.RestoreWarning `json:"-" yaml:"-"`
}

// Guard captures and restores repository references.
type Guard struct {
	backend       git.Backend
	logger        *logging.Logger
	allowDetached bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithAllowDetached keeps a detached HEAD as the reference to restore.
func WithAllowDetached(allow bool) Option {
	return func(g *Guard) { g.allowDetached = allow }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Guard over backend.
func New(backend git.Backend, opts ...Option) *Guard {
	g := &Guard{backend: backend, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Capture records the current reference, normalizing a detached HEAD to the
// default branch unless detached starts are allowed.
//
// When the switch to the default branch was made but could not be verified,
// Capture returns the error together with a reference to the detached
// commit HEAD started on. Callers restore that reference; a zero Reference
// means nothing was moved.
func (g *Guard) Capture(ctx context.Context) (Reference, error) {
	rev, err := g.backend.CurrentRevision(ctx)
	if err != nil {
		return Reference{}, errors.Wrap(err, "failed to read starting revision")
	}
	branch, err := g.backend.CurrentBranch(ctx)
	if err != nil {
		return Reference{}, errors.Wrap(err, "failed to read starting branch")
	}

	if branch != "" {
		ref := Reference{Kind: KindBranch, Name: branch, Revision: rev}
		g.logger.Info("captured reference", "kind", string(ref.Kind), "name", ref.Name, "revision", rev)
		return ref, nil
	}

	if g.allowDetached {
		ref := Reference{Kind: KindDetachedCommit, Name: rev, Revision: rev}
		g.logger.Info("captured detached reference", "revision", rev)
		return ref, nil
	}

	def, err := g.backend.DefaultBranch(ctx)
	if err != nil {
		return Reference{}, errors.Join(errors.ErrDetachedHead, err)
	}
	g.logger.Warn("repository is detached, switching to default branch",
		"detached_revision", rev, "branch", def)

	if err := g.backend.Checkout(ctx, def); err != nil {
		return Reference{}, errors.Join(errors.ErrDetachedHead, err)
	}

	// HEAD has moved; from here on failures hand back the starting commit.
	start := Reference{
		Kind:             KindDetachedCommit,
		Name:             rev,
		Revision:         rev,
		WasDetached:      true,
		DetachedRevision: rev,
	}
	now, err := g.backend.CurrentBranch(ctx)
	if err != nil {
		return start, errors.Join(errors.ErrDetachedHead, err)
	}
	if now != def {
		return start, errors.Join(errors.ErrDetachedHead,
			fmt.Errorf("switched to %s but current branch is %q", def, now))
	}
	head, err := g.backend.CurrentRevision(ctx)
	if err != nil {
		return start, errors.Join(errors.ErrDetachedHead, err)
	}

	return Reference{
		Kind:             KindBranch,
		Name:             def,
		Revision:         head,
		WasDetached:      true,
		DetachedRevision: rev,
	}, nil
}

// Restore checks out ref once and verifies the result. Failures come back
// as a RestoreWarning in the result.
func (g *Guard) Restore(ctx context.Context, ref Reference) RestoreResult {
	fail := func(cause error) RestoreResult {
		warning := errors.NewRestoreWarning(ref.Name, cause)
		g.logger.Failure("restore failed", warning, "ref", ref.Name)
		return RestoreResult{
			Message: warning.Error(),
			Warning: warning,
		}
	}

	if ref.Name == "" {
		return fail(fmt.Errorf("no reference captured"))
	}
	if err := g.backend.Checkout(ctx, ref.Name); err != nil {
		return fail(err)
	}

	switch ref.Kind {
	case KindBranch:
		branch, err := g.backend.CurrentBranch(ctx)
		if err != nil {
			return fail(err)
		}
		if branch != ref.Name {
			return fail(fmt.Errorf("expected branch %s, on %q", ref.Name, branch))
		}
	default:
		rev, err := g.backend.CurrentRevision(ctx)
		if err != nil {
			return fail(err)
		}
		if rev != ref.Name {
			return fail(errors.NewVerificationError(ref.Name, rev))
		}
	}

	g.logger.Info("restored reference", "kind", string(ref.Kind), "name", ref.Name)
	return RestoreResult{Success: true, Message: "restored " + ref.String()}
}
