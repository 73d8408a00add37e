package gittest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_LogFollowsRef(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(time.Now(), "r0", "r1", "r2", "r3")
	since := time.Now().AddDate(0, 0, -30)

	all, err := b.Log(ctx, "", since)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1", "r2", "r3"}, all)

	require.NoError(t, b.Checkout(ctx, "r1"))

	fromHead, err := b.Log(ctx, "", since)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1"}, fromHead, "a detached HEAD only reaches its ancestors")

	fromMain, err := b.Log(ctx, "main", since)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1", "r2", "r3"}, fromMain)

	assert.Equal(t, []string{"", "", "main"}, b.LogRefs)

	_, err = b.Log(ctx, "nope", since)
	assert.Error(t, err)
}
