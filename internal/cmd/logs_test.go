package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/whiterabbit/internal/logging"
)

func TestBuildLogFilter(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	f, err := buildLogFilter("warn", "1h", "checkout|lock", "h1", now)
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, f.Level)
	assert.Equal(t, now.Add(-time.Hour), f.Since)
	assert.Equal(t, "h1", f.HuntID)
	require.NotNil(t, f.Pattern)
	assert.True(t, f.Pattern.MatchString("index lock held"))

	empty, err := buildLogFilter("", "", "", "", now)
	require.NoError(t, err)
	assert.Empty(t, empty.Level)
	assert.True(t, empty.Since.IsZero())
	assert.Nil(t, empty.Pattern)

	_, err = buildLogFilter("", "yesterday", "", "", now)
	assert.ErrorContains(t, err, "invalid duration format")

	_, err = buildLogFilter("", "", "(", "", now)
	assert.ErrorContains(t, err, "invalid grep pattern")
}

func TestFormatLogEntry(t *testing.T) {
	e := logging.Entry{
		Time:     time.Date(2026, 3, 14, 9, 30, 15, 250_000_000, time.UTC),
		Level:    "WARN",
		Message:  "checkout blocked by index lock, retrying",
		Revision: "abc1234",
		Phase:    "search",
		Attrs:    map[string]any{"attempt": 2, "ref": "abc1234"},
	}

	got := formatLogEntry(e)
	assert.Contains(t, got, "[09:30:15.250]")
	assert.Contains(t, got, "[WARN]")
	assert.Contains(t, got, "checkout blocked by index lock, retrying")
	assert.Contains(t, got, "phase=search")
	assert.Less(t, strings.Index(got, "attempt=2"), strings.Index(got, "ref=abc1234"))

	assert.Equal(t, "not json", formatLogEntry(logging.Entry{Raw: "not json"}))
}

func TestDisplayLogs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, displayLogs(&buf, []logging.Entry{
		{Level: "INFO", Message: "hunt started"},
		{Raw: "garbage"},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "hunt started")
	assert.Equal(t, "garbage", lines[1])
}
