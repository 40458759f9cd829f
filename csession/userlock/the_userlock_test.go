package userlock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tredeske/cloudbox/cerr"
)

func TestAcquireReleaseLifecycle(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("alice", "sess-1"))
	assert.True(t, r.Held("alice"))

	r.Release("alice", "sess-1")
	assert.False(t, r.Held("alice"))
}

func TestSecondAcquireForSameUsernameFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("alice", "sess-1"))

	err := r.Acquire("alice", "sess-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrPolicy))
	assert.True(t, r.Held("alice"))
}

func TestAcquireIsIdempotentForSameSession(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("alice", "sess-1"))
	require.NoError(t, r.Acquire("alice", "sess-1"))
}

func TestReleaseIgnoresStaleSession(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("alice", "sess-1"))
	require.Error(t, r.Acquire("alice", "sess-2"))

	// sess-2 never actually held the lock; its Release must not clobber sess-1's.
	r.Release("alice", "sess-2")
	assert.True(t, r.Held("alice"))

	r.Release("alice", "sess-1")
	assert.False(t, r.Held("alice"))
}

func TestDifferentUsernamesDoNotContend(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("alice", "sess-1"))
	require.NoError(t, r.Acquire("bob", "sess-2"))
	assert.True(t, r.Held("alice"))
	assert.True(t, r.Held("bob"))
}
