package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// payloadIDField stashes a chunk's original string ID in the point
// payload, since Qdrant only accepts UUID or integer point IDs.
// Grounded on internal/persistence/databases/qdrant_vector.go's
// PAYLOAD_ID_FIELD/uuid.NewSHA1 scheme.
const payloadIDField = "_chunk_id"

type qdrantChunkRepository struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// NewQdrantChunkRepository dials dsn (a "host:port" or
// "https://host:port?api_key=..." form, gRPC port 6334 by default),
// ensures the target collection exists with the given dimension/metric,
// and returns a ports.ChunkRepository. KeywordSearch is unsupported:
// Qdrant has no native full-text index, so it returns a
// model.ErrExternal error rather than a degraded approximation.
func NewQdrantChunkRepository(dsn, collection string, dimensions int, metric string) (ports.ChunkRepository, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if !strings.Contains(dsn, "://") {
		dsn = "http://" + dsn
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	q := &qdrantChunkRepository{client: client, collection: collection, dimension: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}
	if err := q.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return q, nil
}

func (q *qdrantChunkRepository) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	default:
		distance = qdrant.Distance_Cosine
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimensions > 0")
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: distance,
		}),
	})
}

func pointIDFor(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *qdrantChunkRepository) Upsert(ctx context.Context, c model.Chunk) error {
	payload := map[string]any{
		payloadIDField: c.ID,
		"document_id":  c.DocumentID,
		"text":         c.Text,
		"idx":          c.Index,
		"start_char":   c.StartChar,
		"end_char":     c.EndChar,
		"parent_id":    c.ParentID,
	}
	for k, v := range c.Metadata {
		payload["md_"+k] = v
	}
	vec := append([]float32(nil), c.Embedding...)
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointIDFor(c.ID)),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func (q *qdrantChunkRepository) GetByID(ctx context.Context, id string) (model.Chunk, bool, error) {
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointIDFor(id))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return model.Chunk{}, false, err
	}
	if len(points) == 0 {
		return model.Chunk{}, false, nil
	}
	return chunkFromPoint(points[0].Payload, points[0].Vectors), true, nil
}

func (q *qdrantChunkRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(pointIDFor(id))
	}
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Chunk, 0, len(points))
	for _, p := range points {
		out = append(out, chunkFromPoint(p.Payload, p.Vectors))
	}
	return out, nil
}

func (q *qdrantChunkRepository) DenseSearch(ctx context.Context, queryEmbedding []float32, topK int, filter ports.Filter) ([]model.RetrievalResult, error) {
	if topK <= 0 {
		topK = 10
	}
	var qf *qdrant.Filter
	var must []*qdrant.Condition
	if filter.DocumentID != "" {
		must = append(must, qdrant.NewMatch("document_id", filter.DocumentID))
	}
	for k, v := range filter.Extra {
		must = append(must, qdrant.NewMatch("md_"+k, v))
	}
	if len(must) > 0 {
		qf = &qdrant.Filter{Must: must}
	}
	limit := uint64(topK)
	vec := append([]float32(nil), queryEmbedding...)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		c := chunkFromPoint(hit.Payload, hit.Vectors)
		out = append(out, model.RetrievalResult{Chunk: c, Score: float64(hit.Score)})
	}
	return out, nil
}

func (q *qdrantChunkRepository) KeywordSearch(_ context.Context, _ string, _ int, _ ports.Filter) ([]model.RetrievalResult, error) {
	return nil, model.NewError(model.ErrExternal, "qdrant backend has no native keyword search; configure a postgres ChunkRepository for hybrid retrieval", nil)
}

func chunkFromPoint(payload map[string]*qdrant.Value, vectors *qdrant.VectorsOutput) model.Chunk {
	var c model.Chunk
	if payload != nil {
		if v, ok := payload[payloadIDField]; ok {
			c.ID = v.GetStringValue()
		}
		c.DocumentID = payload["document_id"].GetStringValue()
		c.Text = payload["text"].GetStringValue()
		c.Index = int(payload["idx"].GetIntegerValue())
		c.StartChar = int(payload["start_char"].GetIntegerValue())
		c.EndChar = int(payload["end_char"].GetIntegerValue())
		c.ParentID = payload["parent_id"].GetStringValue()
		for k, v := range payload {
			if strings.HasPrefix(k, "md_") {
				if c.Metadata == nil {
					c.Metadata = make(map[string]any)
				}
				c.Metadata[strings.TrimPrefix(k, "md_")] = v.GetStringValue()
			}
		}
	}
	if vectors != nil {
		if dense := vectors.GetVector(); dense != nil {
			c.Embedding = dense.Data
		}
	}
	return c
}
