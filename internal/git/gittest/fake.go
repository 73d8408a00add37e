// Package gittest provides an in-memory git.Backend for tests.
package gittest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
)

// Backend is an in-memory repository with linear history. Branches point at
// commit hashes; HEAD is either a branch name or a bare hash.
type Backend struct {
	Commits  []git.Commit      // oldest first
	Branches map[string]string // branch name to hash
	Default  string            // returned by DefaultBranch; "" means main

	head     string
	detached bool

	// CheckoutErr fails the checkout of the given refs.
	CheckoutErr map[string]error
	// StuckRefs are checked out "successfully" without moving HEAD.
	StuckRefs map[string]bool
	// RevisionErr makes CurrentRevision fail.
	RevisionErr error
	// BranchErr makes CurrentBranch fail.
	BranchErr error
	// LogErr makes Log fail.
	LogErr error
	// OnCheckout runs after every successful checkout with the new HEAD hash.
	OnCheckout func(hash string)

	// Checkouts records every checkout request in order.
	Checkouts []string
	// LogCalls records the since argument of every Log call.
	LogCalls []time.Time
	// LogRefs records the ref argument of every Log call.
	LogRefs []string
}

// NewBackend creates a Backend with one commit per hash, committed a day
// apart and ending at end. Branch main points at the newest commit and is
// checked out.
func NewBackend(end time.Time, hashes ...string) *Backend {
	b := &Backend{Branches: map[string]string{}}
	for i, h := range hashes {
		b.Commits = append(b.Commits, git.Commit{
			Hash:    h,
			Author:  "Whiterabbit Test",
			Time:    end.AddDate(0, 0, i-len(hashes)+1),
			Subject: fmt.Sprintf("change %d", i),
		})
	}
	if len(hashes) > 0 {
		b.Branches["main"] = hashes[len(hashes)-1]
	}
	b.head = "main"
	return b
}

// Detach moves HEAD to a bare hash.
func (b *Backend) Detach(hash string) {
	b.head = hash
	b.detached = true
}

// Head returns the hash HEAD points at.
func (b *Backend) Head() string {
	if b.detached {
		return b.head
	}
	return b.Branches[b.head]
}

// Branch returns the checked-out branch, or "" when detached.
func (b *Backend) Branch() string {
	if b.detached {
		return ""
	}
	return b.head
}

// CurrentRevision implements git.Backend.
func (b *Backend) CurrentRevision(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Join(errors.ErrCanceled, err)
	}
	if b.RevisionErr != nil {
		return "", b.RevisionErr
	}
	return b.Head(), nil
}

// CurrentBranch implements git.Backend.
func (b *Backend) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Join(errors.ErrCanceled, err)
	}
	if b.BranchErr != nil {
		return "", b.BranchErr
	}
	return b.Branch(), nil
}

// Checkout implements git.Backend.
func (b *Backend) Checkout(ctx context.Context, ref string) error {
	b.Checkouts = append(b.Checkouts, ref)
	if err := ctx.Err(); err != nil {
		return errors.Join(errors.ErrCanceled, err)
	}
	if err, ok := b.CheckoutErr[ref]; ok {
		return errors.NewGitError("failed to checkout "+errors.ShortHash(ref), errors.Join(errors.ErrCheckoutFailed, err)).
			WithRef(ref).
			WithCommand("git", "checkout", ref).
			WithOutput("", err.Error()).
			WithExitCode(1)
	}
	if b.StuckRefs[ref] {
		return nil
	}

	switch {
	case b.Branches[ref] != "":
		b.head = ref
		b.detached = false
	case b.index(ref) >= 0:
		b.head = ref
		b.detached = true
	default:
		return errors.NewGitError("failed to checkout "+errors.ShortHash(ref), errors.ErrCheckoutFailed).
			WithRef(ref).
			WithOutput("", fmt.Sprintf("error: pathspec '%s' did not match any file(s) known to git", ref)).
			WithExitCode(1)
	}

	if b.OnCheckout != nil {
		b.OnCheckout(b.Head())
	}
	return nil
}

// Log implements git.Backend with day granularity: commits up to and
// including ref (HEAD when empty) dated on or after midnight of since's
// calendar day, oldest first. History is linear, so the commits reachable
// from ref are those at or before it.
func (b *Backend) Log(ctx context.Context, ref string, since time.Time) ([]string, error) {
	b.LogCalls = append(b.LogCalls, since)
	b.LogRefs = append(b.LogRefs, ref)
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(errors.ErrCanceled, err)
	}
	if b.LogErr != nil {
		return nil, b.LogErr
	}
	tip := b.Head()
	if ref != "" {
		resolved, err := b.ResolveRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		tip = resolved
	}
	last := b.index(tip)

	y, m, d := since.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, since.Location())

	var out []string
	for _, c := range b.Commits[:last+1] {
		if !c.Time.Before(day) {
			out = append(out, c.Hash)
		}
	}
	return out, nil
}

// ResolveRef implements git.Backend for hashes, branch names and "<branch>~N".
func (b *Backend) ResolveRef(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Join(errors.ErrCanceled, err)
	}
	back := 0
	if name, n, ok := strings.Cut(ref, "~"); ok {
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return "", errors.NewGitError("failed to resolve "+ref, err).WithRef(ref)
		}
		ref, back = name, parsed
	}
	hash := ref
	if h, ok := b.Branches[ref]; ok {
		hash = h
	}
	i := b.index(hash)
	if i < 0 || i-back < 0 {
		return "", errors.NewGitError("failed to resolve "+ref, nil).WithRef(ref).WithExitCode(1)
	}
	return b.Commits[i-back].Hash, nil
}

// Describe implements git.Backend.
func (b *Backend) Describe(ctx context.Context, rev string) (git.Commit, error) {
	if err := ctx.Err(); err != nil {
		return git.Commit{}, errors.Join(errors.ErrCanceled, err)
	}
	i := b.index(rev)
	if i < 0 {
		return git.Commit{}, errors.NewGitError("failed to describe "+errors.ShortHash(rev), nil).WithRef(rev)
	}
	return b.Commits[i], nil
}

// DefaultBranch implements git.Backend.
func (b *Backend) DefaultBranch(context.Context) (string, error) {
	if b.Default != "" {
		return b.Default, nil
	}
	return "main", nil
}

func (b *Backend) index(hash string) int {
	return slices.IndexFunc(b.Commits, func(c git.Commit) bool { return c.Hash == hash })
}

var _ git.Backend = (*Backend)(nil)
