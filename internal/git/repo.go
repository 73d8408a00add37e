package git

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
)

// DefaultCheckoutRetry is how long Checkout keeps retrying while another git
// process holds the index lock.
const DefaultCheckoutRetry = 10 * time.Second

// -----------------------------------------------------------------------------
// Repo - implements Backend with the git CLI
// -----------------------------------------------------------------------------

// Repo implements Backend using git CLI commands against one working tree.
// It is the single owner of that working tree and is not safe for concurrent use.
type Repo struct {
	dir           string
	executor      CommandExecutor
	logger        *logging.Logger
	defaultBranch string
	newBackoff    func() backoff.BackOff
}

// Option configures a Repo.
type Option func(*Repo)

// WithExecutor replaces the command executor. Primarily useful for testing.
func WithExecutor(executor CommandExecutor) Option {
	return func(r *Repo) { r.executor = executor }
}

// WithLogger sets the logger for git command tracing.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Repo) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDefaultBranch pins the branch DefaultBranch returns.
func WithDefaultBranch(branch string) Option {
	return func(r *Repo) { r.defaultBranch = branch }
}

// WithCheckoutRetry sets the index.lock retry budget. Zero disables retries.
func WithCheckoutRetry(d time.Duration) Option {
	return func(r *Repo) {
		r.newBackoff = func() backoff.BackOff {
			if d <= 0 {
				return &backoff.StopBackOff{}
			}
			return &backoff.ExponentialBackOff{
				InitialInterval:     200 * time.Millisecond,
				RandomizationFactor: 0.5,
				Multiplier:          2,
				MaxInterval:         2 * time.Second,
				MaxElapsedTime:      d,
				Clock:               backoff.SystemClock,
			}
		}
	}
}

// WithCheckoutBackoff supplies the retry policy directly. Tests use it with
// backoff.ZeroBackOff to avoid sleeping.
func WithCheckoutBackoff(newBackoff func() backoff.BackOff) Option {
	return func(r *Repo) { r.newBackoff = newBackoff }
}

// NewRepo creates a Repo for the working tree at dir.
func NewRepo(dir string, opts ...Option) *Repo {
	r := &Repo{
		dir:      dir,
		executor: NewCLICommandExecutor(),
		logger:   logging.NopLogger(),
	}
	WithCheckoutRetry(DefaultCheckoutRetry)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the working tree path.
func (r *Repo) Dir() string {
	return r.dir
}

// run executes one git command and traces it at debug level.
func (r *Repo) run(ctx context.Context, args ...string) (Result, error) {
	res, err := r.executor.Run(ctx, r.dir, "git", args...)
	r.logger.Debug("git command",
		"args", strings.Join(args, " "),
		"exit_code", res.ExitCode,
		"stderr", strings.TrimSpace(res.Stderr),
	)
	return res, err
}

// wrap builds the GitError for a failed command. A held index lock adds
// ErrIndexLocked and marks the error retryable at warning severity; a
// command killed by cancellation is informational.
func (r *Repo) wrap(message string, res Result, err error, args []string, sentinels ...error) *errors.GitError {
	retryable := false
	severity := errors.SeverityError
	switch {
	case isIndexLocked(res):
		sentinels = append(sentinels, errors.ErrIndexLocked)
		retryable = true
		severity = errors.SeverityWarning
	case errors.Is(err, errors.ErrCanceled):
		severity = errors.SeverityInfo
	}
	cause := err
	if len(sentinels) > 0 {
		cause = errors.Join(append(sentinels, err)...)
	}
	return errors.NewGitError(message, cause).
		WithRepository(r.dir).
		WithCommand("git", args...).
		WithOutput(res.Stdout, res.Stderr).
		WithExitCode(res.ExitCode).
		WithRetryable(retryable).
		WithSeverity(severity)
}

// CurrentRevision returns the full hash HEAD points at.
func (r *Repo) CurrentRevision(ctx context.Context) (string, error) {
	args := []string{"rev-parse", "HEAD"}
	res, err := r.run(ctx, args...)
	if err != nil {
		if strings.Contains(res.Stderr, "not a git repository") {
			return "", r.wrap("failed to read current revision", res, err, args, errors.ErrNotGitRepository)
		}
		return "", r.wrap("failed to read current revision", res, err, args)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// CurrentBranch returns the checked-out branch, or "" when HEAD is detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	args := []string{"branch", "--show-current"}
	res, err := r.run(ctx, args...)
	if err != nil {
		return "", r.wrap("failed to read current branch", res, err, args)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Checkout moves the working tree to ref. A held index.lock is retried with
// exponential backoff; every other failure is returned immediately.
func (r *Repo) Checkout(ctx context.Context, ref string) error {
	args := []string{"checkout", ref}
	message := "failed to checkout " + errors.ShortHash(ref)
	var lastErr error
	attempts := 0

	op := func() error {
		attempts++
		res, err := r.run(ctx, args...)
		if err == nil {
			return nil
		}
		gitErr := r.wrap(message, res, err, args, errors.ErrCheckoutFailed).WithRef(ref)
		lastErr = gitErr
		if gitErr.IsRetryable() && ctx.Err() == nil {
			return gitErr
		}
		return backoff.Permanent(gitErr)
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("checkout blocked by index lock, retrying",
			"ref", ref, "attempt", attempts, "wait", wait.String())
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(r.newBackoff(), ctx), notify); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return errors.NewGitError(message, errors.Join(errors.ErrCheckoutFailed, err)).
			WithRepository(r.dir).
			WithRef(ref)
	}
	return nil
}

// Log lists revisions reachable from ref with commit dates on or after the
// calendar day of since, oldest first. Day granularity means a since of "now"
// still covers everything committed today. Listing from a named ref keeps the
// window independent of wherever a probe left HEAD.
func (r *Repo) Log(ctx context.Context, ref string, since time.Time) ([]string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	args := []string{"log", "--since=" + since.Format("2006-01-02"), "--format=%H", "--reverse", ref, "--"}
	res, err := r.run(ctx, args...)
	if err != nil {
		return nil, r.wrap("failed to list revisions", res, err, args).WithRef(ref)
	}
	return splitLines(res.Stdout), nil
}

// ResolveRef resolves ref to a full commit hash.
func (r *Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	args := []string{"rev-parse", "--verify", "--quiet", ref + "^{commit}"}
	res, err := r.run(ctx, args...)
	if err != nil {
		return "", r.wrap("failed to resolve "+ref, res, err, args).WithRef(ref)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Describe returns hash, author, commit time and subject of rev.
func (r *Repo) Describe(ctx context.Context, rev string) (Commit, error) {
	args := []string{"log", "-1", "--format=%H%x00%an%x00%ct%x00%s", rev}
	res, err := r.run(ctx, args...)
	if err != nil {
		return Commit{}, r.wrap("failed to describe "+errors.ShortHash(rev), res, err, args).WithRef(rev)
	}

	parts := strings.SplitN(strings.TrimRight(res.Stdout, "\n"), "\x00", 4)
	if len(parts) != 4 {
		return Commit{}, errors.NewGitError("unexpected git log output", nil).
			WithRepository(r.dir).
			WithRef(rev).
			WithOutput(res.Stdout, res.Stderr)
	}

	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Commit{}, errors.NewGitError("failed to parse commit time", err).
			WithRepository(r.dir).
			WithRef(rev)
	}

	return Commit{
		Hash:    parts[0],
		Author:  parts[1],
		Time:    time.Unix(unix, 0),
		Subject: parts[3],
	}, nil
}

// DefaultBranch returns the configured default branch, else main when it
// exists, else master.
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	if r.defaultBranch != "" {
		return r.defaultBranch, nil
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := r.run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.NewGitError("no default branch: neither main nor master exists", nil).
		WithRepository(r.dir)
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Compile-time check that Repo implements Backend.
var _ Backend = (*Repo)(nil)
