package git

import (
	"context"
	"time"
)

// Backend is the set of version control operations a hunt needs. Repo is the
// git CLI implementation; tests substitute scripted fakes.
type Backend interface {
	// CurrentRevision returns the full hash HEAD points at.
	CurrentRevision(ctx context.Context) (string, error)

	// CurrentBranch returns the checked-out branch name, or "" when HEAD is detached.
	CurrentBranch(ctx context.Context) (string, error)

	// Checkout moves the working tree to ref (a branch name or revision).
	Checkout(ctx context.Context, ref string) error

	// Log lists revisions reachable from ref with commit dates on or after
	// the calendar day of since, oldest first. An empty ref means HEAD.
	Log(ctx context.Context, ref string, since time.Time) ([]string, error)

	// ResolveRef resolves ref to a full commit hash.
	ResolveRef(ctx context.Context, ref string) (string, error)

	// Describe returns the metadata of a single commit.
	Describe(ctx context.Context, rev string) (Commit, error)

	// DefaultBranch returns the branch a detached repository is normalized to.
	DefaultBranch(ctx context.Context) (string, error)
}

// Commit is the metadata shown next to a revision in reports.
type Commit struct {
	Hash    string    `json:"hash" yaml:"hash"`
	Author  string    `json:"author" yaml:"author"`
	Time    time.Time `json:"time" yaml:"time"`
	Subject string    `json:"subject" yaml:"subject"`
}

// Short returns the abbreviated hash.
func (c Commit) Short() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}
