// Package testutil provides testing utilities for whiterabbit tests.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// SetupTestRepo creates a temporary git repository on branch main with one
// commit. The repository is removed when the test completes.
func SetupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	if _, err := runGit(dir, nil, "init"); err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}
	if _, err := runGit(dir, nil, "config", "user.email", "test@whiterabbit.dev"); err != nil {
		t.Fatalf("failed to configure git email: %v", err)
	}
	if _, err := runGit(dir, nil, "config", "user.name", "Whiterabbit Test"); err != nil {
		t.Fatalf("failed to configure git name: %v", err)
	}

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Test Repository\n"), 0644); err != nil {
		t.Fatalf("failed to create README: %v", err)
	}
	if _, err := runGit(dir, nil, "add", "."); err != nil {
		t.Fatalf("failed to stage files: %v", err)
	}
	if _, err := runGit(dir, nil, "commit", "-m", "Initial commit"); err != nil {
		t.Fatalf("failed to create initial commit: %v", err)
	}

	// Some systems default to master
	if _, err := runGit(dir, nil, "branch", "-M", "main"); err != nil {
		t.Fatalf("failed to rename branch to main: %v", err)
	}

	return dir
}

// CommitFile creates or updates a file and commits it.
func CommitFile(t *testing.T, repoDir, path, content, message string) string {
	t.Helper()
	return commit(t, repoDir, path, content, message, nil)
}

// CommitFileAt is CommitFile with both author and committer date set to when.
// It returns the new commit hash.
func CommitFileAt(t *testing.T, repoDir, path, content, message string, when time.Time) string {
	t.Helper()
	stamp := when.Format(time.RFC3339)
	return commit(t, repoDir, path, content, message, []string{
		"GIT_AUTHOR_DATE=" + stamp,
		"GIT_COMMITTER_DATE=" + stamp,
	})
}

func commit(t *testing.T, repoDir, path, content, message string, env []string) string {
	t.Helper()

	fullPath := filepath.Join(repoDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	if _, err := runGit(repoDir, nil, "add", path); err != nil {
		t.Fatalf("failed to stage file %s: %v", path, err)
	}
	if _, err := runGit(repoDir, env, "commit", "-m", message); err != nil {
		t.Fatalf("failed to commit file %s: %v", path, err)
	}
	return Head(t, repoDir)
}

// History commits n revisions of path, one per day ending at end. Revisions
// from badFrom on do not contain marker; earlier ones do. It returns the
// hashes oldest first.
func History(t *testing.T, repoDir, path, marker string, n, badFrom int, end time.Time) []string {
	t.Helper()

	hashes := make([]string, 0, n)
	for i := range n {
		content := fmt.Sprintf("revision %d\n", i)
		if i < badFrom {
			content += marker + "\n"
		}
		when := end.AddDate(0, 0, i-n+1)
		hashes = append(hashes, CommitFileAt(t, repoDir, path, content, fmt.Sprintf("change %d", i), when))
	}
	return hashes
}

// Git runs a git command in repoDir and returns its trimmed stdout.
func Git(t *testing.T, repoDir string, args ...string) string {
	t.Helper()

	out, err := runGit(repoDir, nil, args...)
	if err != nil {
		t.Fatalf("git %s: %v", strings.Join(args, " "), err)
	}
	return out
}

// Head returns the full hash HEAD points at.
func Head(t *testing.T, repoDir string) string {
	t.Helper()
	return Git(t, repoDir, "rev-parse", "HEAD")
}

// GetCurrentBranch returns the current branch name, or "" when detached.
func GetCurrentBranch(t *testing.T, repoDir string) string {
	t.Helper()
	return Git(t, repoDir, "branch", "--show-current")
}

// CreateBranch creates a new branch in the repository.
func CreateBranch(t *testing.T, repoDir, branch string) {
	t.Helper()
	Git(t, repoDir, "branch", branch)
}

// CheckoutBranch switches to a branch or revision.
func CheckoutBranch(t *testing.T, repoDir, ref string) {
	t.Helper()
	Git(t, repoDir, "checkout", "--quiet", ref)
}

// DetachHead detaches HEAD at ref.
func DetachHead(t *testing.T, repoDir, ref string) {
	t.Helper()
	Git(t, repoDir, "checkout", "--quiet", "--detach", ref)
}

// HasUncommittedChanges returns true if the repository has uncommitted changes.
func HasUncommittedChanges(t *testing.T, repoDir string) bool {
	t.Helper()
	return Git(t, repoDir, "status", "--porcelain") != ""
}

// SkipIfNoGit skips the test if git is not installed.
func SkipIfNoGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping test")
	}
}

// runGit runs a git command with a fixed identity plus any extra environment.
func runGit(dir string, env []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Whiterabbit Test",
		"GIT_AUTHOR_EMAIL=test@whiterabbit.dev",
		"GIT_COMMITTER_NAME=Whiterabbit Test",
		"GIT_COMMITTER_EMAIL=test@whiterabbit.dev",
	)
	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &gitError{args: args, output: stderr.String(), err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

type gitError struct {
	args   []string
	output string
	err    error
}

func (e *gitError) Error() string {
	return "git " + strings.Join(e.args, " ") + ": " + e.err.Error() + "\n" + e.output
}

func (e *gitError) Unwrap() error {
	return e.err
}
