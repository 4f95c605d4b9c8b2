package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPendingStoreLifecycle(t *testing.T) {
	hashes := newMemoryHashStore()
	store, err := NewRedisPendingStore(hashes, 2*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	session := uuid.New()
	first, second := uuid.New(), uuid.New()

	owner, ok, err := store.Reserve(ctx, session, "150", first)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, owner)
	assert.Equal(t, 2*time.Hour, hashes.expires[hashes.PendingKey(session.String())])

	owner, ok, err = store.Reserve(ctx, session, "150", first)
	require.NoError(t, err)
	assert.True(t, ok, "the holder may reserve its tag again")
	assert.Equal(t, first, owner)

	owner, ok, err = store.Reserve(ctx, session, "150", second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, first, owner)

	_, ok, err = store.Reserve(ctx, uuid.New(), "150", second)
	require.NoError(t, err)
	assert.True(t, ok, "reservations are per session")

	tags, err := store.Tags(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{"150": first}, tags)

	require.NoError(t, store.Release(ctx, session, "150"))
	_, ok, err = store.Reserve(ctx, session, "150", second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Drop(ctx, session))
	tags, err = store.Tags(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, tags)

	require.NoError(t, store.Release(ctx, session))
}

func TestRedisPendingStoreSkipsCorruptOwners(t *testing.T) {
	hashes := newMemoryHashStore()
	store, err := NewRedisPendingStore(hashes, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	session := uuid.New()

	_, err = hashes.HSetNX(ctx, hashes.PendingKey(session.String()), "9", "not-a-uuid")
	require.NoError(t, err)

	tags, err := store.Tags(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, _, err = store.Reserve(ctx, session, "9", uuid.New())
	assert.Error(t, err)
}

func TestNewRedisPendingStoreValidates(t *testing.T) {
	_, err := NewRedisPendingStore(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewRedisPendingStore(newMemoryHashStore(), 0)
	assert.Error(t, err)
}
