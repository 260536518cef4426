package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(vals ...float32) []float32 { return vals }

func TestMemoryStore_UpsertQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Upsert(ctx, "ns", []Record{
		{ID: "a", Vector: vec(1, 0), Metadata: Metadata{Text: "alpha"}},
		{ID: "b", Vector: vec(0, 1), Metadata: Metadata{Text: "beta"}},
	})
	require.NoError(t, err)

	matches, err := store.Query(ctx, "ns", vec(1, 0.1), 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "alpha", matches[0].Metadata.Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	top1, err := store.Query(ctx, "ns", vec(1, 0), 1)
	require.NoError(t, err)
	assert.Len(t, top1, 1)
}

func TestMemoryStore_UpsertIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "ns", []Record{{ID: "a", Vector: vec(1, 0), Metadata: Metadata{Text: "old"}}}))
	require.NoError(t, store.Upsert(ctx, "ns", []Record{{ID: "a", Vector: vec(1, 0), Metadata: Metadata{Text: "new"}}}))

	count, err := store.Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches, err := store.Query(ctx, "ns", vec(1, 0), 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Metadata.Text)
}

func TestMemoryStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "one", []Record{{ID: "a", Vector: vec(1, 0)}}))

	matches, err := store.Query(ctx, "two", vec(1, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	count, err := store.Stats(ctx, "two")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "ns", []Record{{ID: "a", Vector: vec(1, 0)}}))
	require.NoError(t, store.DeleteAll(ctx, "ns"))
	require.NoError(t, store.DeleteAll(ctx, "missing"), "deleting an absent namespace is not an error")

	count, err := store.Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.ErrorIs(t, store.DeleteAll(ctx, ""), ErrEmptyNamespace)
}

func TestMemoryStore_VisibilityDelay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithVisibilityDelay(2))

	require.NoError(t, store.Upsert(ctx, "ns", []Record{{ID: "a", Vector: vec(1, 0)}}))

	count, err := store.Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Zero(t, count, "write should not be visible after one read")

	count, err = store.Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stats, queries := store.Calls()
	assert.Equal(t, 2, stats)
	assert.Zero(t, queries)
}

func TestMemoryStore_MinScore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMinScore(0.9))

	require.NoError(t, store.Upsert(ctx, "ns", []Record{
		{ID: "near", Vector: vec(1, 0)},
		{ID: "far", Vector: vec(0, 1)},
	}))

	matches, err := store.Query(ctx, "ns", vec(1, 0), 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].ID)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "héll", TruncateText("héllo", 4))
	assert.Equal(t, "abc", TruncateText("abc", 10))
	assert.Equal(t, "", TruncateText("abc", 0))
}
