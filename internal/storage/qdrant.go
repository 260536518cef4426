package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const vectorName = "content"

// Payload field names. Namespace isolation is a keyword filter on
// payloadNamespace inside one collection.
const (
	payloadNamespace         = "namespace"
	payloadVectorID          = "vector_id"
	payloadType              = "type"
	payloadText              = "text"
	payloadChunkIndex        = "chunk_index"
	payloadSource            = "source"
	payloadRole              = "role"
	payloadMessageID         = "message_id"
	payloadRelatedQuestionID = "related_question_id"
	payloadTimestamp         = "timestamp"
	payloadUserID            = "user_id"
	payloadSessionID         = "session_id"
)

var pointIDSpace = uuid.MustParse("6f1d3c0e-5a7b-4f2e-9a51-2d8c4b7e0f13")

// QdrantConfig holds connection settings for QdrantStorage.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	// ScoreThreshold drops query hits scoring below it. Zero disables it.
	ScoreThreshold float32
}

// QdrantStorage implements VectorStore and Lister on top of a single Qdrant collection.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	threshold  float32
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	s := &QdrantStorage{
		client:     client,
		collection: collection,
		threshold:  cfg.ScoreThreshold,
	}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return s, nil
}

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newRetryBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the collection with a named 1536-dimension cosine
// vector and keyword payload indexes. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}
	return nil
}

// createPayloadIndexes indexes every field used in filters.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		payloadNamespace,
		payloadType,
		payloadRole,
		payloadUserID,
		payloadSessionID,
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadNamespace, namespace),
		},
	}
}

// pointID maps a record id to a Qdrant UUID. The namespace is part of the
// name so equal record ids in different namespaces never collide.
func pointID(namespace, id string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(pointIDSpace, []byte(namespace+"\x00"+id)).String())
}

func toPayload(namespace, id string, m Metadata) map[string]any {
	return map[string]any{
		payloadNamespace:         namespace,
		payloadVectorID:          id,
		payloadType:              m.Type,
		payloadText:              m.Text,
		payloadChunkIndex:        m.ChunkIndex,
		payloadSource:            m.Source,
		payloadRole:              m.Role,
		payloadMessageID:         m.MessageID,
		payloadRelatedQuestionID: m.RelatedQuestionID,
		payloadTimestamp:         m.Timestamp,
		payloadUserID:            m.UserID,
		payloadSessionID:         m.SessionID,
	}
}

func fromPayload(payload map[string]*qdrant.Value) (string, Metadata) {
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	var chunkIndex int
	if v, ok := payload[payloadChunkIndex]; ok {
		chunkIndex = int(v.GetIntegerValue())
	}
	return str(payloadVectorID), Metadata{
		Type:              str(payloadType),
		Text:              str(payloadText),
		ChunkIndex:        chunkIndex,
		Source:            str(payloadSource),
		Role:              str(payloadRole),
		MessageID:         str(payloadMessageID),
		RelatedQuestionID: str(payloadRelatedQuestionID),
		Timestamp:         str(payloadTimestamp),
		UserID:            str(payloadUserID),
		SessionID:         str(payloadSessionID),
	}
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(newRetryBackOff(), ctx))
}

// Upsert stores records in batches of 100.
func (s *QdrantStorage) Upsert(ctx context.Context, namespace string, records []Record) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if len(records) == 0 {
		return nil
	}

	for i, r := range records {
		if len(r.Vector) != VectorDimension {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(r.Vector), VectorDimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		batch := records[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, r := range batch {
			points[j] = &qdrant.PointStruct{
				Id: pointID(namespace, r.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(r.Vector...),
				}),
				Payload: qdrant.NewValueMap(toPayload(namespace, r.ID, r.Metadata)),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// Query performs vector similarity search inside a namespace.
func (s *QdrantStorage) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	using := vectorName
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter:         namespaceFilter(namespace),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if s.threshold > 0 {
		req.ScoreThreshold = qdrant.PtrOf(s.threshold)
	}

	results, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to query namespace %s: %w", namespace, err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		id, meta := fromPayload(result.Payload)
		matches = append(matches, Match{
			ID:       id,
			Score:    float64(result.Score),
			Metadata: meta,
		})
	}
	return matches, nil
}

// Stats counts the points in a namespace.
func (s *QdrantStorage) Stats(ctx context.Context, namespace string) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         namespaceFilter(namespace),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count namespace %s: %w", namespace, err)
	}
	return int(count), nil
}

// DeleteAll removes every point carrying the namespace tag.
func (s *QdrantStorage) DeleteAll(ctx context.Context, namespace string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	return nil
}

// List scrolls through a namespace and returns up to limit records with Score 0.
func (s *QdrantStorage) List(ctx context.Context, namespace string, limit int) ([]Match, error) {
	var matches []Match
	var offset *qdrant.PointId

	batchSize := uint32(100)
	for limit <= 0 || len(matches) < limit {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         namespaceFilter(namespace),
			Limit:          qdrant.PtrOf(batchSize + 1),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll namespace %s: %w", namespace, err)
		}

		// The extra point, if any, is the inclusive offset of the next page.
		next := uint32(len(results)) > batchSize
		if next {
			offset = results[batchSize].Id
			results = results[:batchSize]
		}
		for _, result := range results {
			id, meta := fromPayload(result.Payload)
			matches = append(matches, Match{ID: id, Metadata: meta})
		}
		if !next {
			break
		}
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
