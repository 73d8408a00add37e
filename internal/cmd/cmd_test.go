//go:build integration

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/whiterabbit/internal/bisect"
	"github.com/Iron-Ham/whiterabbit/internal/hunt"
	"github.com/Iron-Ham/whiterabbit/internal/report"
	"github.com/Iron-Ham/whiterabbit/internal/testutil"
)

const marker = "Welcome to Consoleland"

// executeCommand runs a cobra command with args and returns captured stdout and stderr
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// writeConfig writes a config file for repoDir and returns its path.
// targetExtra is appended to the target section.
func writeConfig(t *testing.T, repoDir, targetExtra string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`repo:
  path: %s
target:
  entry_file: server.py
  log_file: logs/server.log
  marker: %s
  settle_seconds: 0
%slogging:
  dir: %s
  level: debug
output:
  format: text
  progress: plain
`, repoDir, marker, targetExtra, t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "whiterabbit" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "whiterabbit")
	}

	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range []string{"hunt", "restore", "explore", "check", "logs"} {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestHuntCommand_FindsBoundary(t *testing.T) {
	testutil.SkipIfNoGit(t)
	repoDir := testutil.SetupTestRepo(t)
	hashes := testutil.History(t, repoDir, "logs/server.log", marker, 10, 6, time.Now())
	cfg := writeConfig(t, repoDir, "")

	stdout, stderr, err := executeCommand(rootCmd,
		"hunt", "--config", cfg, "--days", "30", "--no-reload", "--format", "json")
	require.NoError(t, err, stderr)

	var rep hunt.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, bisect.BoundaryFound, rep.Outcome.Kind)
	assert.Equal(t, hashes[5], rep.Outcome.LastGood)
	assert.Equal(t, hashes[6], rep.Outcome.FirstBad)
	require.NotNil(t, rep.FirstBad)
	assert.Equal(t, "change 6", rep.FirstBad.Subject)
	assert.True(t, rep.Restore.Success)
	assert.Contains(t, stderr, "probing")

	assert.Equal(t, "main", testutil.GetCurrentBranch(t, repoDir))
	assert.Equal(t, hashes[9], testutil.Head(t, repoDir))
}

func TestHuntCommand_NotARepositoryExitsOne(t *testing.T) {
	testutil.SkipIfNoGit(t)
	cfg := writeConfig(t, t.TempDir(), "")

	stdout, _, err := executeCommand(rootCmd,
		"hunt", "--config", cfg, "--days", "1", "--no-reload", "--format", "text")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "git_state_check")
	assert.Contains(t, stdout, "could not capture repository state")
}

func TestRestoreCommand_DetachedHead(t *testing.T) {
	testutil.SkipIfNoGit(t)
	repoDir := testutil.SetupTestRepo(t)
	hashes := testutil.History(t, repoDir, "logs/server.log", marker, 3, 3, time.Now())
	testutil.DetachHead(t, repoDir, hashes[0])
	cfg := writeConfig(t, repoDir, "")

	stdout, stderr, err := executeCommand(rootCmd, "restore", "--config", cfg, "--format", "text")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "restored branch main")
	assert.Equal(t, "main", testutil.GetCurrentBranch(t, repoDir))
}

func TestExploreCommand(t *testing.T) {
	testutil.SkipIfNoGit(t)
	repoDir := testutil.SetupTestRepo(t)
	hashes := testutil.History(t, repoDir, "logs/server.log", marker, 5, 5, time.Now())
	cfg := writeConfig(t, repoDir, "")

	stdout, stderr, err := executeCommand(rootCmd, "explore", "2", "--config", cfg, "--format", "json")
	require.NoError(t, err, stderr)

	var x hunt.Exploration
	require.NoError(t, json.Unmarshal([]byte(stdout), &x))
	assert.Equal(t, hashes[2], x.Commit.Hash)
	assert.True(t, x.Reloaded)
	assert.Equal(t, hashes[2], testutil.Head(t, repoDir))
	assert.FileExists(t, filepath.Join(repoDir, "server.py"))

	_, _, err = executeCommand(rootCmd, "restore", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "main", testutil.GetCurrentBranch(t, repoDir))
}

func TestCheckCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/profiles" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := writeConfig(t, t.TempDir(), fmt.Sprintf("  environments:\n    dev: %s\n", srv.URL))

	stdout, _, err := executeCommand(rootCmd, "check", "dev", "--config", cfg, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var rep report.CheckReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, "DEV", rep.Environment)
	require.Len(t, rep.Checks, 2)
	assert.True(t, rep.Checks[0].Success)
	assert.False(t, rep.Checks[1].Success)
	assert.Equal(t, 1, rep.Summary.Failed)
}

func TestCheckCommand_UnknownEnvironment(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "")

	_, _, err := executeCommand(rootCmd, "check", "staging", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "known environments: DEV, PROD")
}

func TestLogsCommand(t *testing.T) {
	testutil.SkipIfNoGit(t)
	repoDir := testutil.SetupTestRepo(t)
	testutil.History(t, repoDir, "logs/server.log", marker, 3, 1, time.Now())
	cfg := writeConfig(t, repoDir, "")

	_, stderr, err := executeCommand(rootCmd,
		"hunt", "--config", cfg, "--days", "30", "--no-reload", "--format", "text")
	require.NoError(t, err, stderr)

	stdout, _, err := executeCommand(rootCmd, "logs", "--config", cfg, "--format", "text", "--grep", "hunt finished", "-n", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "hunt finished")
}
