package probe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityWatcher_CountsWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "server.log")
	require.NoError(t, os.WriteFile(logPath, nil, 0644))

	w, err := WatchActivity(logPath)
	require.NoError(t, err)
	defer w.Stop()

	// writes to a sibling file are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.log"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(logPath, []byte("started\n"), 0644))

	assert.Eventually(t, func() bool { return w.Writes() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestActivityWatcher_StopIsIdempotent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "server.log")

	w, err := WatchActivity(logPath)
	require.NoError(t, err)

	assert.Equal(t, 0, w.Stop())
	assert.Equal(t, 0, w.Stop())
}

func TestWatchActivity_MissingDirectory(t *testing.T) {
	_, err := WatchActivity(filepath.Join(t.TempDir(), "nope", "server.log"))
	assert.Error(t, err)
}
