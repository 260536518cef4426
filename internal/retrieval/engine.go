// Package retrieval runs similarity searches against an eventually
// consistent vector store.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/bull/docchat-server/internal/storage"
)

// GenericProbe is the first query used when a namespace has to be read
// without a meaningful question.
const GenericProbe = "content text information"

// ProbeTerms are tried one by one after GenericProbe finds nothing.
var ProbeTerms = []string{"information", "content", "text", "data", "document"}

var errNoVectors = errors.New("namespace has no visible vectors")

// Embedder turns query text into a vector in the document embedding space.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Probe is a single similarity query used to enumerate a namespace.
type Probe struct {
	Query string
	K     int
}

// Stage is a group of probes whose results are combined. Stages run in
// order until one returns anything.
type Stage []Probe

// DocumentStages returns GenericProbe followed by one stage per ProbeTerms entry.
func DocumentStages(k int) []Stage {
	stages := []Stage{{{Query: GenericProbe, K: k}}}
	for _, term := range ProbeTerms {
		stages = append(stages, Stage{{Query: term, K: k}})
	}
	return stages
}

// Engine executes queries with stats polling and probe fallbacks.
type Engine struct {
	store    storage.VectorStore
	embedder Embedder
	policy   PollPolicy
	logger   *slog.Logger
}

// NewEngine creates an Engine. A nil logger uses slog.Default().
func NewEngine(store storage.VectorStore, embedder Embedder, policy PollPolicy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		policy:   policy,
		logger:   logger,
	}
}

// Configured reports whether both the store and the embedder are present.
func (e *Engine) Configured() bool {
	return e != nil && e.store != nil && e.embedder != nil
}

// Store returns the underlying vector store.
func (e *Engine) Store() storage.VectorStore {
	return e.store
}

// Visible polls namespace stats until it reports vectors or the policy is
// exhausted. known is false when every stats call failed.
func (e *Engine) Visible(ctx context.Context, namespace string) (count int, known bool) {
	attempt := 0
	operation := func() error {
		attempt++
		n, err := e.store.Stats(ctx, namespace)
		if err != nil {
			e.logger.Warn("could not get namespace stats",
				"namespace", namespace,
				"attempt", attempt,
				"error", err)
			return err
		}
		known = true
		count = n
		e.logger.Debug("namespace stats", "namespace", namespace, "attempt", attempt, "vectors", n)
		if n == 0 {
			return errNoVectors
		}
		return nil
	}

	_ = backoff.Retry(operation, e.policy.backOff(ctx))
	return count, known
}

// Retrieve returns up to k matches for query, best first. An empty namespace
// yields no matches and no error; only a failure to embed the question is
// returned as an error.
func (e *Engine) Retrieve(ctx context.Context, query, namespace string, k int) ([]storage.Match, error) {
	if !e.Configured() {
		return nil, storage.ErrNotConfigured
	}

	if count, known := e.Visible(ctx, namespace); known && count == 0 {
		e.logger.Info("no vectors in namespace", "namespace", namespace)
		return nil, nil
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := e.store.Query(ctx, namespace, vector, k)
	if err != nil {
		e.logger.Warn("query failed", "namespace", namespace, "error", err)
	}
	if len(matches) > 0 {
		e.logger.Info("retrieved chunks", "namespace", namespace, "count", len(matches))
		return matches, nil
	}

	e.logger.Info("targeted query found nothing, probing", "namespace", namespace)
	return e.Probe(ctx, namespace, DocumentStages(k)), nil
}

// All reads up to k records of a namespace. Stores implementing
// storage.Lister are listed directly; others are enumerated with probes.
func (e *Engine) All(ctx context.Context, namespace string, k int) ([]storage.Match, error) {
	if !e.Configured() {
		return nil, storage.ErrNotConfigured
	}

	if count, known := e.Visible(ctx, namespace); known && count == 0 {
		e.logger.Warn("no vectors found after polling", "namespace", namespace, "attempts", e.policy.Attempts)
		return nil, nil
	}

	if lister, ok := e.store.(storage.Lister); ok {
		matches, err := lister.List(ctx, namespace, k)
		if err == nil {
			e.logger.Info("listed namespace", "namespace", namespace, "count", len(matches))
			return matches, nil
		}
		e.logger.Warn("list failed, falling back to probes", "namespace", namespace, "error", err)
	}

	matches := e.Probe(ctx, namespace, DocumentStages(k))
	e.logger.Info("retrieved documents", "namespace", namespace, "count", len(matches))
	return matches, nil
}

// Probe runs stages in order and returns the combined results of the first
// stage that finds anything. A failing probe is logged and skipped.
func (e *Engine) Probe(ctx context.Context, namespace string, stages []Stage) []storage.Match {
	for _, stage := range stages {
		var found []storage.Match
		for _, p := range stage {
			found = append(found, e.search(ctx, namespace, p)...)
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

func (e *Engine) search(ctx context.Context, namespace string, p Probe) []storage.Match {
	if p.K <= 0 {
		return nil
	}

	vector, err := e.embedder.EmbedQuery(ctx, p.Query)
	if err != nil {
		e.logger.Warn("probe embedding failed", "probe", p.Query, "error", err)
		return nil
	}

	matches, err := e.store.Query(ctx, namespace, vector, p.K)
	if err != nil {
		e.logger.Warn("probe query failed", "probe", p.Query, "error", err)
		return nil
	}

	e.logger.Debug("probe results", "probe", p.Query, "count", len(matches))
	return matches
}
