package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSqliteStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteStore(t *testing.T) {
	ctx := context.Background()
	store := setupSqliteStore(t)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte(`[{"id":"1"}]`), time.Minute))
	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"id":"1"}]`), val)
}

func TestSqliteStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := setupSqliteStore(t)

	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 900*time.Second))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	current = current.Add(901 * time.Second)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry dropped on read")

	// expired row is actually removed, not just hidden
	var count int
	require.NoError(t, store.db.Get(&count, "SELECT count(*) FROM cache_entries"))
	assert.Zero(t, count)
}

func TestSqliteStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := setupSqliteStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), val)
}
