package namespace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/storage"
	"github.com/bull/docchat-server/internal/uploads"
)

type failingStore struct {
	storage.VectorStore
	deleted []string
}

func (f *failingStore) DeleteAll(_ context.Context, ns string) error {
	f.deleted = append(f.deleted, ns)
	return errors.New("store down")
}

func TestManager_ClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	dir := uploads.NewDir(t.TempDir())

	require.NoError(t, store.Upsert(ctx, Doc("u", "s"), []storage.Record{{ID: "d", Vector: []float32{1}}}))
	require.NoError(t, store.Upsert(ctx, Chat("u", "s"), []storage.Record{{ID: "c", Vector: []float32{1}}}))
	require.NoError(t, store.Upsert(ctx, Doc("u", "other"), []storage.Record{{ID: "d", Vector: []float32{1}}}))
	_, err := dir.Save("u", "s", "cv.txt", []byte("text"))
	require.NoError(t, err)

	m := NewManager(store, dir, nil)
	require.NoError(t, m.Clear(ctx, "u", "s"))

	assert.Equal(t, []string{Doc("u", "other")}, store.Namespaces())
	_, err = os.Stat(filepath.Join(dir.Base, "u", "s"))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_ClearEmptySessionSucceeds(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), uploads.NewDir(t.TempDir()), nil)
	assert.NoError(t, m.Clear(context.Background(), "nobody", "nothing"))
}

func TestManager_ClearAttemptsEveryStep(t *testing.T) {
	store := &failingStore{}
	m := NewManager(store, nil, nil)

	err := m.Clear(context.Background(), "u", "s")
	require.Error(t, err)
	assert.Equal(t, []string{Doc("u", "s"), Chat("u", "s")}, store.deleted)
}

func TestManager_ClearWithoutStore(t *testing.T) {
	m := NewManager(nil, nil, nil)
	assert.ErrorIs(t, m.Clear(context.Background(), "u", "s"), storage.ErrNotConfigured)
}

func TestManager_ClearUser(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	dir := uploads.NewDir(t.TempDir())

	for _, sid := range []string{"s1", "s2"} {
		require.NoError(t, store.Upsert(ctx, Doc("u", sid), []storage.Record{{ID: "d", Vector: []float32{1}}}))
		_, err := dir.Save("u", sid, "a.txt", []byte("a"))
		require.NoError(t, err)
	}

	m := NewManager(store, dir, nil)
	require.NoError(t, m.ClearUser(ctx, "u", []string{"s1", "s2"}))

	assert.Empty(t, store.Namespaces())
	_, err := os.Stat(filepath.Join(dir.Base, "u"))
	assert.True(t, os.IsNotExist(err))
}
