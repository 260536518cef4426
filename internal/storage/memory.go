package storage

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore. It can simulate eventual
// consistency: with a visibility delay of n, an upserted batch becomes visible
// only after n reads (Stats, Query) of its namespace.
type MemoryStore struct {
	mu       sync.Mutex
	spaces   map[string]map[string]Record
	pending  map[string][]pendingBatch
	delay    int
	minScore float64

	statsCalls int
	queryCalls int
}

type pendingBatch struct {
	readsLeft int
	records   []Record
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithVisibilityDelay hides each upsert until the namespace has been read n times.
func WithVisibilityDelay(n int) MemoryOption {
	return func(m *MemoryStore) { m.delay = n }
}

// WithMinScore drops query hits scoring below score.
func WithMinScore(score float64) MemoryOption {
	return func(m *MemoryStore) { m.minScore = score }
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		spaces:  make(map[string]map[string]Record),
		pending: make(map[string][]pendingBatch),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Upsert(_ context.Context, namespace string, records []Record) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if len(records) == 0 {
		return nil
	}

	copied := make([]Record, len(records))
	for i, r := range records {
		v := make([]float32, len(r.Vector))
		copy(v, r.Vector)
		r.Vector = v
		copied[i] = r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delay > 0 {
		m.pending[namespace] = append(m.pending[namespace], pendingBatch{readsLeft: m.delay, records: copied})
		return nil
	}
	m.apply(namespace, copied)
	return nil
}

func (m *MemoryStore) apply(namespace string, records []Record) {
	space, ok := m.spaces[namespace]
	if !ok {
		space = make(map[string]Record)
		m.spaces[namespace] = space
	}
	for _, r := range records {
		space[r.ID] = r
	}
}

// tick counts one read against the namespace and publishes due batches.
func (m *MemoryStore) tick(namespace string) {
	batches := m.pending[namespace]
	if len(batches) == 0 {
		return
	}
	remaining := batches[:0]
	for _, b := range batches {
		b.readsLeft--
		if b.readsLeft <= 0 {
			m.apply(namespace, b.records)
			continue
		}
		remaining = append(remaining, b)
	}
	if len(remaining) == 0 {
		delete(m.pending, namespace)
		return
	}
	m.pending[namespace] = remaining
}

func (m *MemoryStore) Query(_ context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	m.tick(namespace)

	if topK <= 0 {
		return nil, nil
	}

	var matches []Match
	for _, r := range m.spaces[namespace] {
		score := cosineSimilarity(vector, r.Vector)
		if m.minScore > 0 && score < m.minScore {
			continue
		}
		matches = append(matches, Match{ID: r.ID, Score: score, Metadata: r.Metadata})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryStore) Stats(_ context.Context, namespace string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsCalls++
	m.tick(namespace)
	return len(m.spaces[namespace]), nil
}

func (m *MemoryStore) DeleteAll(_ context.Context, namespace string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spaces, namespace)
	delete(m.pending, namespace)
	return nil
}

// Calls reports how many Stats and Query calls the store has served.
func (m *MemoryStore) Calls() (stats, queries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsCalls, m.queryCalls
}

// Namespaces lists namespaces holding at least one visible record.
func (m *MemoryStore) Namespaces() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.spaces))
	for ns, space := range m.spaces {
		if len(space) > 0 {
			names = append(names, ns)
		}
	}
	sort.Strings(names)
	return names
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
