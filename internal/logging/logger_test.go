package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
)

// decodeLines parses every JSON line written to buf.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line %q", line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger_WritesHuntLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewLogger(dir, "debug")
	require.NoError(t, err)

	logger.Info("hunt started", "days", 3)
	require.NoError(t, logger.Close())

	assert.Equal(t, filepath.Join(dir, FileName), logger.Path())
	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hunt started"`)
	assert.Contains(t, string(data), `"days":3`)
}

func TestNewLogger_EmptyDirUsesStderr(t *testing.T) {
	logger, err := NewLogger("", LevelInfo)
	require.NoError(t, err)
	assert.Empty(t, logger.Path())
	assert.NoError(t, logger.Close())
}

func TestLogger_LevelThreshold(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{LevelDebug, []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{LevelWarn, []string{"WARN", "ERROR"}},
		{LevelError, []string{"ERROR"}},
		{"verbose", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWriterLogger(&buf, tt.level)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			var got []string
			for _, entry := range decodeLines(t, &buf) {
				got = append(got, entry["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_ContextKeys(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger(&buf, LevelDebug)

	huntLog := root.WithHunt("3f0c").WithPhase("search")
	huntLog.WithRevision("abc1234").Info("probe finished", "present", false)
	huntLog.Info("window narrowed")
	root.Info("untagged")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)

	assert.Equal(t, "3f0c", entries[0][KeyHunt])
	assert.Equal(t, "search", entries[0][KeyPhase])
	assert.Equal(t, "abc1234", entries[0][KeyRevision])
	assert.Equal(t, false, entries[0]["present"])

	assert.Equal(t, "3f0c", entries[1][KeyHunt])
	assert.NotContains(t, entries[1], KeyRevision, "revision must not leak to the parent")

	assert.NotContains(t, entries[2], KeyHunt)
	assert.NotContains(t, entries[2], KeyPhase)
}

func TestLogger_WithNoArgsReturnsSameLogger(t *testing.T) {
	logger := NopLogger()
	assert.Same(t, logger, logger.With())
}

func TestLogger_EntriesRoundTripThroughParser(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, LevelDebug).
		WithHunt("h-1").
		WithPhase("restore").
		Warn("restore failed", "ref", "main")

	entries, err := ParseEntries(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, LevelWarn, e.Level)
	assert.Equal(t, "restore failed", e.Message)
	assert.Equal(t, "h-1", e.HuntID)
	assert.Equal(t, "restore", e.Phase)
	assert.Equal(t, "main", e.Attrs["ref"])
	assert.False(t, e.Time.IsZero())
}

func TestLogger_CloseSharedWithChildren(t *testing.T) {
	logger, err := NewLogger(t.TempDir(), LevelInfo)
	require.NoError(t, err)

	child := logger.WithHunt("h-2")
	require.NoError(t, child.Close())
	assert.NoError(t, logger.Close(), "second close is a no-op")
}

func TestLogger_FailureLevelFollowsSeverity(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		level     string
		severity  string
		retryable bool
	}{
		{
			name:     "git failure",
			err:      errors.NewGitError("failed to checkout abc1234", errors.ErrCheckoutFailed),
			level:    LevelError,
			severity: "error",
		},
		{
			name:      "held index lock",
			err:       errors.NewGitError("failed to checkout abc1234", errors.ErrIndexLocked).WithRetryable(true).WithSeverity(errors.SeverityWarning),
			level:     LevelWarn,
			severity:  "warning",
			retryable: true,
		},
		{
			name:     "canceled command",
			err:      errors.Wrap(errors.NewGitError("failed to list revisions", errors.ErrCanceled).WithSeverity(errors.SeverityInfo), "hunt"),
			level:    LevelInfo,
			severity: "info",
		},
		{
			name:     "restore warning",
			err:      errors.NewRestoreWarning("main", errors.New("dirty tree")),
			level:    LevelWarn,
			severity: "warning",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			level:    LevelError,
			severity: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewWriterLogger(&buf, LevelDebug).Failure("step failed", tt.err, "ref", "main")

			entries := decodeLines(t, &buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.Equal(t, tt.severity, entries[0]["severity"])
			assert.Equal(t, tt.err.Error(), entries[0]["error"])
			assert.Equal(t, "main", entries[0]["ref"])
			if tt.retryable {
				assert.Equal(t, true, entries[0]["retryable"])
			} else {
				assert.NotContains(t, entries[0], "retryable")
			}
		})
	}
}

func TestLogger_FailureWithoutError(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, LevelDebug).Failure("nothing went wrong", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, LevelInfo, entries[0]["level"])
	assert.NotContains(t, entries[0], "error")
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.WithRevision("deadbeef").Error("ignored")
	assert.Empty(t, logger.Path())
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   LevelDebug,
		" Warn ":  LevelWarn,
		"ERROR":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestValidLevels(t *testing.T) {
	assert.Equal(t, []string{LevelDebug, LevelInfo, LevelWarn, LevelError}, ValidLevels())
}

func TestLogger_ConcurrentProbes(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	require.NoError(t, err)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			revLog := logger.WithRevision(strings.Repeat("a", w+1))
			for i := range perWorker {
				revLog.Info("probe", "step", i)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	entries, err := ReadEntries(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Len(t, entries, workers*perWorker)
	for _, e := range entries {
		assert.Empty(t, e.Raw, "interleaved write produced a non-JSON line")
		assert.NotEmpty(t, e.Revision)
	}
}
