// Package history writes chat turns into a chat namespace and reads them
// back as ordered question/answer pairs.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docchat-server/internal/retrieval"
	"github.com/bull/docchat-server/internal/storage"
)

// TimestampLayout is fixed width so that lexicographic order of stored
// timestamps matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Recorder appends chat messages to chat namespaces. Message ids are random,
// so concurrent writers never overwrite each other.
type Recorder struct {
	store    storage.VectorStore
	embedder retrieval.Embedder
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecorder creates a Recorder. A nil logger uses slog.Default().
func NewRecorder(store storage.VectorStore, embedder retrieval.Embedder, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:    store,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// Turn identifies who asked and where the exchange is stored.
type Turn struct {
	UserID    string
	SessionID string
	Namespace string
	Question  string
	Answer    string
}

// RecordTurn stores the question and then the answer as two independent
// messages. The answer carries the question's id in RelatedQuestionID and a
// timestamp strictly later than the question's.
func (r *Recorder) RecordTurn(ctx context.Context, t Turn) error {
	if r.store == nil || r.embedder == nil {
		return storage.ErrNotConfigured
	}

	asked := r.now().UTC()
	answered := r.now().UTC()
	if !answered.After(asked) {
		answered = asked.Add(time.Microsecond)
	}

	question := storage.Metadata{
		Type:      storage.RecordTypeUserMessage,
		Text:      t.Question,
		Role:      storage.RoleUser,
		MessageID: uuid.NewString(),
		Timestamp: asked.Format(TimestampLayout),
		UserID:    t.UserID,
		SessionID: t.SessionID,
	}
	if err := r.write(ctx, t.Namespace, question); err != nil {
		return fmt.Errorf("record question: %w", err)
	}

	answer := storage.Metadata{
		Type:              storage.RecordTypeAssistantMessage,
		Text:              t.Answer,
		Role:              storage.RoleAssistant,
		MessageID:         uuid.NewString(),
		RelatedQuestionID: question.MessageID,
		Timestamp:         answered.Format(TimestampLayout),
		UserID:            t.UserID,
		SessionID:         t.SessionID,
	}
	if err := r.write(ctx, t.Namespace, answer); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}

	r.logger.Info("recorded chat turn",
		"namespace", t.Namespace,
		"question_id", question.MessageID,
		"answer_id", answer.MessageID)
	return nil
}

func (r *Recorder) write(ctx context.Context, namespace string, meta storage.Metadata) error {
	vector, err := r.embedder.EmbedQuery(ctx, meta.Text)
	if err != nil {
		return fmt.Errorf("embed %s message: %w", meta.Role, err)
	}
	return r.store.Upsert(ctx, namespace, []storage.Record{{
		ID:       meta.MessageID,
		Vector:   vector,
		Metadata: meta,
	}})
}
