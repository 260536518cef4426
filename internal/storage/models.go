package storage

import "context"

// Record types stored in the "type" payload field.
const (
	RecordTypeDocument         = "document"
	RecordTypeUserMessage      = "user_message"
	RecordTypeAssistantMessage = "assistant_message"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxDocumentTextLen bounds the chunk text copied into document metadata.
const MaxDocumentTextLen = 1000

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536

// DefaultCollectionName is the single Qdrant collection shared by all namespaces.
const DefaultCollectionName = "docchat"

// Metadata is the payload stored next to every vector. Document chunks carry
// Text, ChunkIndex and Source; chat messages carry the full message in Text plus
// Role, MessageID, RelatedQuestionID and Timestamp.
type Metadata struct {
	Type              string
	Text              string
	ChunkIndex        int
	Source            string
	Role              string
	MessageID         string
	RelatedQuestionID string
	Timestamp         string // ISO-8601, fixed width so lexicographic order is chronological
	UserID            string
	SessionID         string
}

// Record is one vector to upsert into a namespace.
type Record struct {
	ID       string // stable for document chunks, random for chat messages
	Vector   []float32
	Metadata Metadata
}

// Match is a query hit. Score is a ranking signal only.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// VectorStore is a namespace-partitioned vector index with weak consistency:
// an Upsert is not guaranteed to be visible to an immediately following
// Stats or Query call.
type VectorStore interface {
	// Upsert is idempotent by record id; the last write wins.
	Upsert(ctx context.Context, namespace string, records []Record) error
	// Query returns at most topK matches, best first.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
	// Stats returns the number of vectors currently visible in the namespace.
	Stats(ctx context.Context, namespace string) (int, error)
	// DeleteAll removes every vector in the namespace. Deleting an absent
	// namespace is not an error.
	DeleteAll(ctx context.Context, namespace string) error
}

// Lister is implemented by stores that can enumerate a namespace without a
// similarity query. Callers prefer it over probe queries when available.
type Lister interface {
	List(ctx context.Context, namespace string, limit int) ([]Match, error)
}

// TruncateText cuts s to at most n runes.
func TruncateText(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
