package revision

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git/gittest"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
)

var now = time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)

func TestLister_List(t *testing.T) {
	// r0 is 4 days old, r4 is from today
	backend := gittest.NewBackend(now, "r0", "r1", "r2", "r3", "r4")
	lister := NewLister(backend, WithClock(func() time.Time { return now }))

	tests := []struct {
		name     string
		lookback time.Duration
		want     []string
	}{
		{name: "today", lookback: 0, want: []string{"r4"}},
		{name: "one day", lookback: 24 * time.Hour, want: []string{"r3", "r4"}},
		{name: "everything", lookback: 30 * 24 * time.Hour, want: []string{"r0", "r1", "r2", "r3", "r4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := lister.List(context.Background(), "", tt.lookback)
			assert.Equal(t, tt.want, seq.IDs())
		})
	}

	require.NotEmpty(t, backend.LogCalls)
	assert.Equal(t, now.Add(-24*time.Hour), backend.LogCalls[1])
}

func TestLister_List_BackendErrorIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	backend := gittest.NewBackend(now, "r0")
	backend.LogErr = errors.NewGitError("failed to list revisions", errors.New("exit status 128"))

	lister := NewLister(backend,
		WithClock(func() time.Time { return now }),
		WithLogger(logging.NewWriterLogger(&buf, "DEBUG")),
	)

	seq := lister.List(context.Background(), "", 7*24*time.Hour)
	assert.True(t, seq.Empty())
	assert.Contains(t, buf.String(), "failed to list revisions")
	assert.Contains(t, buf.String(), `"lookback":"7 days"`)
}

func TestLister_List_EmptyWindowIsLogged(t *testing.T) {
	var buf bytes.Buffer
	backend := gittest.NewBackend(now.AddDate(0, 0, -10), "old")

	lister := NewLister(backend,
		WithClock(func() time.Time { return now }),
		WithLogger(logging.NewWriterLogger(&buf, "DEBUG")),
	)

	seq := lister.List(context.Background(), "", 24*time.Hour)
	assert.True(t, seq.Empty())
	assert.Contains(t, buf.String(), "no revisions in window")
}

func TestLister_List_FromReferenceIgnoresHead(t *testing.T) {
	backend := gittest.NewBackend(now, "r0", "r1", "r2", "r3", "r4")
	backend.Detach("r1")
	lister := NewLister(backend, WithClock(func() time.Time { return now }))

	assert.Equal(t, []string{"r0", "r1"}, lister.List(context.Background(), "", 30*24*time.Hour).IDs())
	assert.Equal(t, []string{"r0", "r1", "r2", "r3", "r4"}, lister.List(context.Background(), "main", 30*24*time.Hour).IDs())
}
