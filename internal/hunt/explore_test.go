package hunt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wrerrors "github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git/gittest"
	"github.com/Iron-Ham/whiterabbit/internal/guard"
	"github.com/Iron-Ham/whiterabbit/internal/probe"
)

func TestExplorer_Explore(t *testing.T) {
	b := gittest.NewBackend(time.Now(), "r1", "r2", "r3", "r4")
	reloads := 0
	reload := probe.SignalFunc(func(context.Context) error {
		reloads++
		return nil
	})
	x := NewExplorer(b, guard.New(b), reload, nil)

	got, err := x.Explore(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, "r2", got.Commit.Hash)
	assert.Equal(t, "change 1", got.Commit.Subject)
	assert.Equal(t, "r2", b.Head())
	assert.Equal(t, "", b.Branch(), "explore leaves the repository on the revision")
	assert.True(t, got.Reloaded)
	assert.Equal(t, 1, reloads)
	assert.Equal(t, `main~2 is r2 "change 1"`, got.String())
}

func TestExplorer_FromDetachedCountsFromDefaultBranch(t *testing.T) {
	b := gittest.NewBackend(time.Now(), "r1", "r2", "r3", "r4")
	b.Detach("r1")
	x := NewExplorer(b, guard.New(b), nil, nil)

	got, err := x.Explore(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, got.Reference.WasDetached)
	assert.Equal(t, "r3", got.Commit.Hash)
	assert.False(t, got.Reloaded)
}

func TestExplorer_Errors(t *testing.T) {
	t.Run("negative offset", func(t *testing.T) {
		b := gittest.NewBackend(time.Now(), "r1")
		_, err := NewExplorer(b, guard.New(b), nil, nil).Explore(context.Background(), -1)
		assert.ErrorIs(t, err, wrerrors.ErrInvalidInput)
		assert.Empty(t, b.Checkouts)
	})

	t.Run("not enough history", func(t *testing.T) {
		b := gittest.NewBackend(time.Now(), "r1", "r2")
		_, err := NewExplorer(b, guard.New(b), nil, nil).Explore(context.Background(), 5)
		assert.ErrorContains(t, err, "fewer than 5 ancestors")
		assert.Equal(t, "r2", b.Head())
	})

	t.Run("unverified switch goes back to the detached start", func(t *testing.T) {
		b := gittest.NewBackend(time.Now(), "r1", "r2", "r3")
		b.Detach("r1")
		b.OnCheckout = func(string) { b.BranchErr = errors.New("index file corrupt") }

		got, err := NewExplorer(b, guard.New(b), nil, nil).Explore(context.Background(), 1)

		assert.ErrorIs(t, err, wrerrors.ErrDetachedHead)
		assert.Equal(t, "r1", got.Reference.DetachedRevision)
		assert.Equal(t, "r1", b.Head())
	})

	t.Run("reload failure is reported", func(t *testing.T) {
		b := gittest.NewBackend(time.Now(), "r1", "r2")
		reload := probe.SignalFunc(func(context.Context) error { return errors.New("read-only file system") })

		got, err := NewExplorer(b, guard.New(b), reload, nil).Explore(context.Background(), 0)

		require.NoError(t, err)
		assert.False(t, got.Reloaded)
		assert.Equal(t, "read-only file system", got.ReloadError)
	})
}
