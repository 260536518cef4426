// Package indexer chunks, embeds and stores uploaded documents in a
// document namespace.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bull/docchat-server/internal/storage"
)

var ErrNoText = errors.New("no text found in uploaded documents")

// Embedder generates one vector per text, in input order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// TextSplitter cuts a document into chunks. It never fails.
type TextSplitter interface {
	SplitText(text string) []string
}

// VisibilityChecker reports how many vectors a namespace currently exposes.
type VisibilityChecker interface {
	Visible(ctx context.Context, namespace string) (count int, known bool)
}

// Document is one uploaded file's extracted text.
type Document struct {
	Name    string
	Content string
}

// Chunk is one piece of an upload batch. Index is zero-based across the
// whole batch.
type Chunk struct {
	Index  int
	Text   string
	Source string
}

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Namespace      string
	TotalDocs      int
	TotalChunks    int
	VisibleVectors int
	Duration       time.Duration
}

// Pipeline turns documents into vectors in a namespace.
type Pipeline struct {
	plain    TextSplitter
	markdown TextSplitter
	embedder Embedder
	store    storage.VectorStore
	verifier VisibilityChecker
	logger   *slog.Logger
}

// NewPipeline creates a new indexing pipeline. markdown splits .md files and
// may be nil, in which case plain handles every document. verifier may be
// nil to skip the post-upload visibility check.
func NewPipeline(
	plain TextSplitter,
	markdown TextSplitter,
	embedder Embedder,
	store storage.VectorStore,
	verifier VisibilityChecker,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if markdown == nil {
		markdown = plain
	}
	return &Pipeline{
		plain:    plain,
		markdown: markdown,
		embedder: embedder,
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// Configured reports whether the pipeline can store vectors.
func (p *Pipeline) Configured() bool {
	return p != nil && p.store != nil && p.embedder != nil
}

// IndexDocuments chunks every document and uploads the batch to namespace.
func (p *Pipeline) IndexDocuments(ctx context.Context, namespace string, docs []Document) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{Namespace: namespace, TotalDocs: len(docs)}

	chunks := p.Chunk(docs)
	if len(chunks) == 0 {
		return nil, ErrNoText
	}
	p.logger.Info("Chunked documents", "namespace", namespace, "docs", len(docs), "chunks", len(chunks))

	visible, err := p.Upload(ctx, namespace, chunks)
	if err != nil {
		return nil, err
	}

	result.TotalChunks = len(chunks)
	result.VisibleVectors = visible
	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"namespace", namespace,
		"docs", result.TotalDocs,
		"chunks", result.TotalChunks,
		"visible", result.VisibleVectors,
		"duration", result.Duration,
	)
	return result, nil
}

// Chunk splits docs into one batch. Markdown files are split by heading
// first; blank documents are skipped.
func (p *Pipeline) Chunk(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			p.logger.Warn("Skipping empty document", "name", doc.Name)
			continue
		}

		splitter := p.plain
		if isMarkdown(doc.Name) {
			splitter = p.markdown
		}
		for _, text := range splitter.SplitText(doc.Content) {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: text, Source: doc.Name})
		}
	}
	return chunks
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// ChunkID is the vector id of a document chunk. Uploading again to the same
// namespace overwrites chunks with the same index.
func ChunkID(namespace string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", namespace, index)
}

// Upload embeds chunks and upserts them into namespace, then polls until
// they are visible. It returns the visible vector count, or -1 when it
// could not be determined.
func (p *Pipeline) Upload(ctx context.Context, namespace string, chunks []Chunk) (int, error) {
	if !p.Configured() {
		return 0, storage.ErrNotConfigured
	}
	if len(chunks) == 0 {
		return 0, ErrNoText
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	records := make([]storage.Record, len(chunks))
	for i, c := range chunks {
		records[i] = storage.Record{
			ID:     ChunkID(namespace, c.Index),
			Vector: embeddings[i],
			Metadata: storage.Metadata{
				Type:       storage.RecordTypeDocument,
				Text:       storage.TruncateText(c.Text, storage.MaxDocumentTextLen),
				ChunkIndex: c.Index,
				Source:     c.Source,
			},
		}
	}

	if err := p.store.Upsert(ctx, namespace, records); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	p.logger.Info("Stored chunks", "namespace", namespace, "count", len(records))

	if p.verifier == nil {
		return -1, nil
	}
	count, known := p.verifier.Visible(ctx, namespace)
	switch {
	case !known:
		p.logger.Warn("Could not verify upload", "namespace", namespace)
		return -1, nil
	case count == 0:
		p.logger.Warn("Uploaded vectors not visible yet", "namespace", namespace)
	default:
		p.logger.Info("Verified upload", "namespace", namespace, "vectors", count)
	}
	return count, nil
}
