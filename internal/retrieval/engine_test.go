package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/storage"
)

var testVocab = []string{"golang", "information", "python", "docker"}

func keywordVector(text string) []float32 {
	v := make([]float32, len(testVocab)+1)
	v[len(testVocab)] = 0.01
	lower := strings.ToLower(text)
	for i, w := range testVocab {
		if strings.Contains(lower, w) {
			v[i] = 1
		}
	}
	return v
}

type keywordEmbedder struct {
	calls  int
	failOn map[string]bool
	err    error
}

func (k *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	k.calls++
	if k.err != nil || k.failOn[text] {
		return nil, errors.New("embedding unavailable")
	}
	return keywordVector(text), nil
}

type statsErrorStore struct {
	*storage.MemoryStore
}

func (s statsErrorStore) Stats(context.Context, string) (int, error) {
	return 0, errors.New("stats unavailable")
}

type listingStore struct {
	*storage.MemoryStore
	listed int
}

func (l *listingStore) List(_ context.Context, namespace string, limit int) ([]storage.Match, error) {
	l.listed++
	return []storage.Match{{ID: "listed", Metadata: storage.Metadata{Text: "from list"}}}, nil
}

func noWait() PollPolicy { return PollPolicy{Attempts: 3} }

func seed(t *testing.T, store storage.VectorStore, ns string, texts ...string) {
	t.Helper()
	records := make([]storage.Record, len(texts))
	for i, text := range texts {
		records[i] = storage.Record{
			ID:       text,
			Vector:   keywordVector(text),
			Metadata: storage.Metadata{Type: storage.RecordTypeDocument, Text: text, ChunkIndex: i},
		}
	}
	require.NoError(t, store.Upsert(context.Background(), ns, records))
}

func TestRetrieve_EmptyNamespace(t *testing.T) {
	store := storage.NewMemoryStore()
	embedder := &keywordEmbedder{}
	engine := NewEngine(store, embedder, noWait(), nil)

	matches, err := engine.Retrieve(context.Background(), "golang", "empty", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	stats, queries := store.Calls()
	assert.Equal(t, 3, stats, "should poll stats for every attempt")
	assert.Zero(t, queries)
	assert.Zero(t, embedder.calls, "empty namespace must not spend an embedding call")
}

func TestRetrieve_WaitsForLaggingWrites(t *testing.T) {
	store := storage.NewMemoryStore(storage.WithVisibilityDelay(2))
	seed(t, store, "ns", "golang services", "python scripts")

	engine := NewEngine(store, &keywordEmbedder{}, noWait(), nil)
	matches, err := engine.Retrieve(context.Background(), "golang", "ns", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "golang services", matches[0].Metadata.Text)
}

func TestRetrieve_ProbesWhenThresholdFiltersEverything(t *testing.T) {
	store := storage.NewMemoryStore(storage.WithMinScore(0.9))
	seed(t, store, "ns", "information sheet")

	engine := NewEngine(store, &keywordEmbedder{}, noWait(), nil)
	matches, err := engine.Retrieve(context.Background(), "golang", "ns", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "information sheet", matches[0].Metadata.Text)
}

func TestRetrieve_NothingAfterAllProbes(t *testing.T) {
	store := storage.NewMemoryStore(storage.WithMinScore(0.99))
	seed(t, store, "ns", "docker compose")

	engine := NewEngine(store, &keywordEmbedder{}, noWait(), nil)
	matches, err := engine.Retrieve(context.Background(), "golang", "ns", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieve_StatsUnavailableStillQueries(t *testing.T) {
	mem := storage.NewMemoryStore()
	seed(t, mem, "ns", "golang services")

	engine := NewEngine(statsErrorStore{mem}, &keywordEmbedder{}, noWait(), nil)
	matches, err := engine.Retrieve(context.Background(), "golang", "ns", 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, "ns", "golang services")

	engine := NewEngine(store, &keywordEmbedder{err: errors.New("down")}, noWait(), nil)
	_, err := engine.Retrieve(context.Background(), "golang", "ns", 5)
	assert.Error(t, err)
}

func TestRetrieve_NotConfigured(t *testing.T) {
	engine := NewEngine(nil, nil, noWait(), nil)
	_, err := engine.Retrieve(context.Background(), "q", "ns", 5)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
	assert.False(t, engine.Configured())
}

func TestProbe_FailuresAreIndependent(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, "ns", "python scripts")

	embedder := &keywordEmbedder{failOn: map[string]bool{"broken": true}}
	engine := NewEngine(store, embedder, noWait(), nil)

	matches := engine.Probe(context.Background(), "ns", []Stage{
		{{Query: "broken", K: 5}, {Query: "python", K: 5}},
	})
	require.Len(t, matches, 1)
	assert.Equal(t, "python scripts", matches[0].Metadata.Text)
}

func TestProbe_StopsAtFirstProductiveStage(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, "ns", "python scripts")

	embedder := &keywordEmbedder{}
	engine := NewEngine(store, embedder, noWait(), nil)

	matches := engine.Probe(context.Background(), "ns", []Stage{
		{{Query: "python", K: 5}},
		{{Query: "docker", K: 5}},
	})
	assert.Len(t, matches, 1)
	assert.Equal(t, 1, embedder.calls)
}

func TestAll_PrefersLister(t *testing.T) {
	store := &listingStore{MemoryStore: storage.NewMemoryStore()}
	seed(t, store, "ns", "python scripts")

	embedder := &keywordEmbedder{}
	engine := NewEngine(store, embedder, noWait(), nil)

	matches, err := engine.All(context.Background(), "ns", 100)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "listed", matches[0].ID)
	assert.Equal(t, 1, store.listed)
	assert.Zero(t, embedder.calls)
}

func TestAll_ProbesWithoutLister(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, "ns", "python scripts", "docker compose", "golang services")

	engine := NewEngine(store, &keywordEmbedder{}, noWait(), nil)
	matches, err := engine.All(context.Background(), "ns", 100)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestDocumentStages(t *testing.T) {
	stages := DocumentStages(7)
	require.Len(t, stages, len(ProbeTerms)+1)
	assert.Equal(t, GenericProbe, stages[0][0].Query)
	assert.Equal(t, 7, stages[0][0].K)
	assert.Equal(t, "document", stages[len(stages)-1][0].Query)
}
