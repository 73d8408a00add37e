// Package errors provides centralized error definitions and error handling utilities
// for whiterabbit. It defines the failure taxonomy of a regression hunt, error
// constructors with context wrapping, and classification helpers.
//
// # Error Types
//
// Domain errors describe what went wrong while driving the inspected repository:
//   - GitError: a git command failed or printed something unexpected
//   - VerificationError: the working tree is not on the revision that was requested
//   - NoDataError: no revisions exist in the requested lookback window
//   - RestoreWarning: the end-of-run checkout back to the original reference failed
//
// ValidationError covers invalid command line or configuration input.
//
// None of these are fatal to a hunt. A probe that hits a GitError or a
// VerificationError records "marker absent, not verified" and the search moves on.
// A RestoreWarning is attached to the report as a trailing note.
//
// # Usage
//
//	err := errors.NewGitError("checkout failed", errors.ErrCheckoutFailed).
//		WithRef("a1b2c3d").
//		WithCommand("git", "checkout", "a1b2c3d").
//		WithOutput(stdout, stderr).
//		WithExitCode(1)
//
//	if errors.Is(err, errors.ErrCheckoutFailed) { ... }
//
//	var gitErr *errors.GitError
//	if errors.As(err, &gitErr) { ... }
//
//	diagnostics := errors.Details(err) // map[string]string for verdicts and reports
package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Repository sentinel errors
var (
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrDetachedHead indicates that HEAD does not point at a branch.
	ErrDetachedHead = New("repository is in detached HEAD state")
	// ErrCheckoutFailed indicates that git rejected a checkout.
	ErrCheckoutFailed = New("checkout failed")
	// ErrVerificationFailed indicates that the working tree is not where it was asked to be.
	ErrVerificationFailed = New("checkout verification failed")
	// ErrIndexLocked indicates that another git process holds the index lock.
	ErrIndexLocked = New("git index is locked")
	// ErrRestoreFailed indicates that the original reference could not be restored.
	ErrRestoreFailed = New("restore failed")
)

// Hunt sentinel errors
var (
	// ErrNoRevisions indicates that a lookback window contains no revisions.
	ErrNoRevisions = New("no revisions")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// HuntError is the base interface for all whiterabbit errors.
type HuntError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// Detailer is implemented by errors that can describe themselves as a flat
// key/value mapping. Verdict diagnostics and reports are built from it.
type Detailer interface {
	Details() map[string]string
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain Errors
// -----------------------------------------------------------------------------

// GitError represents a failed or misbehaving git invocation. Stdout and
// stderr are kept verbatim so they can be surfaced in diagnostics.
//
// Example:
//
//	err := errors.NewGitError("failed to list revisions", cause).
//		WithRepository("/src/app").
//		WithCommand("git", "log", "--since=2025-07-01").
//		WithOutput("", "fatal: bad revision")
type GitError struct {
	baseError
	Repository string
	Ref        string
	Command    string
	ExitCode   int
	Stdout     string
	Stderr     string
}

// NewGitError creates a new GitError.
func NewGitError(message string, cause error) *GitError {
	return &GitError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
		ExitCode: -1,
	}
}

// WithRepository adds a repository path to the error context.
func (e *GitError) WithRepository(path string) *GitError {
	e.Repository = path
	return e
}

// WithRef adds the revision or branch the command was working on.
func (e *GitError) WithRef(ref string) *GitError {
	e.Ref = ref
	return e
}

// WithCommand records the command line that failed.
func (e *GitError) WithCommand(name string, args ...string) *GitError {
	e.Command = strings.TrimSpace(name + " " + strings.Join(args, " "))
	return e
}

// WithOutput records the raw stdout and stderr of the failed command.
func (e *GitError) WithOutput(stdout, stderr string) *GitError {
	e.Stdout = strings.TrimSpace(stdout)
	e.Stderr = strings.TrimSpace(stderr)
	return e
}

// WithExitCode records the exit status of the failed command.
func (e *GitError) WithExitCode(code int) *GitError {
	e.ExitCode = code
	return e
}

// WithSeverity sets the error severity.
func (e *GitError) WithSeverity(s Severity) *GitError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *GitError) WithRetryable(r bool) *GitError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	var parts []string
	if e.Ref != "" {
		parts = append(parts, fmt.Sprintf("ref=%s", e.Ref))
	}
	if e.Repository != "" {
		parts = append(parts, fmt.Sprintf("repo=%s", e.Repository))
	}
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}

	prefix := "git error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("git error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s\ngit stderr: %s", msg, e.Stderr)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *GitError) Is(target error) bool {
	if _, ok := target.(*GitError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// Details returns the error context as a flat mapping.
func (e *GitError) Details() map[string]string {
	d := map[string]string{"error": e.message}
	if e.cause != nil {
		d["cause"] = e.cause.Error()
	}
	if e.Ref != "" {
		d["ref"] = e.Ref
	}
	if e.Command != "" {
		d["command"] = e.Command
	}
	if e.ExitCode >= 0 {
		d["exit_code"] = strconv.Itoa(e.ExitCode)
	}
	if e.Stdout != "" {
		d["stdout"] = e.Stdout
	}
	if e.Stderr != "" {
		d["stderr"] = e.Stderr
	}
	return d
}

// VerificationError reports that the working tree does not sit on the
// revision a checkout asked for.
type VerificationError struct {
	baseError
	Expected string
	Actual   string
}

// NewVerificationError creates a new VerificationError.
func NewVerificationError(expected, actual string) *VerificationError {
	return &VerificationError{
		baseError: baseError{
			message:  "working tree does not match requested revision",
			cause:    ErrVerificationFailed,
			severity: SeverityError,
		},
		Expected: expected,
		Actual:   actual,
	}
}

// WithCause replaces the cause, for example when the verifying rev-parse itself failed.
func (e *VerificationError) WithCause(cause error) *VerificationError {
	e.cause = Join(ErrVerificationFailed, cause)
	return e
}

// Error returns the formatted error message.
func (e *VerificationError) Error() string {
	actual := e.Actual
	if actual == "" {
		actual = "unknown"
	}
	return fmt.Sprintf("verification error: expected %s, got %s", ShortHash(e.Expected), ShortHash(actual))
}

// Is checks if this error matches the target.
func (e *VerificationError) Is(target error) bool {
	if _, ok := target.(*VerificationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// Details returns the error context as a flat mapping.
func (e *VerificationError) Details() map[string]string {
	d := map[string]string{
		"error":    e.message,
		"expected": e.Expected,
		"actual":   e.Actual,
	}
	if joinedCause(e.cause) {
		d["cause"] = e.cause.Error()
	}
	return d
}

// joinedCause reports whether cause carries more than the verification sentinel.
func joinedCause(cause error) bool {
	j, ok := cause.(interface{ Unwrap() []error })
	return ok && len(j.Unwrap()) > 1
}

// NoDataError reports an empty lookback window.
type NoDataError struct {
	baseError
	Lookback time.Duration
}

// NewNoDataError creates a new NoDataError for the given window.
func NewNoDataError(lookback time.Duration) *NoDataError {
	return &NoDataError{
		baseError: baseError{
			message:  "no revisions in lookback window",
			cause:    ErrNoRevisions,
			severity: SeverityWarning,
		},
		Lookback: lookback,
	}
}

// Error returns the formatted error message.
func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data: no revisions in the last %s", FormatDays(e.Lookback))
}

// Is checks if this error matches the target.
func (e *NoDataError) Is(target error) bool {
	if _, ok := target.(*NoDataError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// Details returns the error context as a flat mapping.
func (e *NoDataError) Details() map[string]string {
	return map[string]string{
		"error":    e.message,
		"lookback": FormatDays(e.Lookback),
	}
}

// RestoreWarning reports that the end-of-run checkout back to the captured
// reference failed. It is never fatal and never changes a search outcome.
type RestoreWarning struct {
	baseError
	Ref string
}

// NewRestoreWarning creates a new RestoreWarning.
func NewRestoreWarning(ref string, cause error) *RestoreWarning {
	return &RestoreWarning{
		baseError: baseError{
			message:  "could not restore original reference",
			cause:    Join(ErrRestoreFailed, cause),
			severity: SeverityWarning,
		},
		Ref: ref,
	}
}

// Error returns the formatted error message.
func (e *RestoreWarning) Error() string {
	msg := fmt.Sprintf("restore warning [ref=%s]: %s", e.Ref, e.message)
	if inner := errors.Unwrap(e); inner != nil {
		if j, ok := inner.(interface{ Unwrap() []error }); ok {
			for _, c := range j.Unwrap() {
				if c != ErrRestoreFailed && c != nil {
					msg = fmt.Sprintf("%s: %v", msg, c)
				}
			}
		}
	}
	return msg
}

// Is checks if this error matches the target.
func (e *RestoreWarning) Is(target error) bool {
	if _, ok := target.(*RestoreWarning); ok {
		return true
	}
	return e.baseError.Is(target)
}

// Details returns the error context as a flat mapping, merged with the
// details of the underlying git failure when there is one.
func (e *RestoreWarning) Details() map[string]string {
	d := map[string]string{}
	var gitErr *GitError
	if As(e.cause, &gitErr) {
		for k, v := range gitErr.Details() {
			d[k] = v
		}
	}
	d["warning"] = e.message
	d["ref"] = e.Ref
	return d
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("lookback must not be negative")
//	err = err.WithField("days").WithValue(-3)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. A held git index lock is the typical case.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var huntErr HuntError
	if As(err, &huntErr) {
		return huntErr.IsRetryable()
	}

	return Is(err, ErrIndexLocked)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement HuntError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var huntErr HuntError
	if As(err, &huntErr) {
		return huntErr.Severity()
	}

	return SeverityError
}

// Details flattens err into a string mapping suitable for verdict diagnostics.
// Errors implementing Detailer contribute their own fields; anything else is
// reported under the "error" key.
func Details(err error) map[string]string {
	if err == nil {
		return map[string]string{}
	}
	var d Detailer
	if As(err, &d) {
		return d.Details()
	}
	return map[string]string{"error": err.Error()}
}

// -----------------------------------------------------------------------------
// Convenience Constructors and Formatting
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ShortHash abbreviates a revision hash to seven characters for messages.
func ShortHash(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// FormatDays renders a lookback window as a day count, e.g. "14 days".
func FormatDays(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
