package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// Grounded on internal/persistence/databases's postgres_vector.go
// (pgVector: vector extension bootstrap, toVectorLiteral, metric-switched
// ORDER BY operator) and postgres_search.go (pgSearch: pg_trgm/tsvector
// bootstrap, plainto_tsquery ranking). Here both concerns share one
// "chunks" table instead of the teacher's separate embeddings/documents
// tables, since every ChunkRepository row needs both a vector and text
// search surface.

type postgresChunkRepository struct {
	pool       *pgxpool.Pool
	dimensions int
	metric     string
}

// NewPostgresChunkRepository bootstraps (if missing) a "chunks" table
// carrying both a pgvector column and a generated tsvector column, and
// returns a ports.ChunkRepository backed by it. metric is one of
// "cosine" (default), "l2", or "ip".
func NewPostgresChunkRepository(ctx context.Context, pool *pgxpool.Pool, dimensions int, metric string) (ports.ChunkRepository, error) {
	vecType := "vector"
	if dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimensions)
	}
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	createStmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunks (
  id TEXT PRIMARY KEY,
  document_id TEXT NOT NULL,
  idx INT NOT NULL DEFAULT 0,
  text TEXT NOT NULL,
  start_char INT NOT NULL DEFAULT 0,
  end_char INT NOT NULL DEFAULT 0,
  parent_id TEXT NOT NULL DEFAULT '',
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  embedding %s,
  ts tsvector GENERATED ALWAYS AS (to_tsvector('simple', coalesce(text,''))) STORED
);
`, vecType)
	if _, err := pool.Exec(ctx, createStmt); err != nil {
		return nil, fmt.Errorf("create chunks table: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunks_ts_idx ON chunks USING GIN (ts)`); err != nil {
		return nil, fmt.Errorf("create chunks ts index: %w", err)
	}
	return &postgresChunkRepository{pool: pool, dimensions: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}, nil
}

func (p *postgresChunkRepository) Upsert(ctx context.Context, c model.Chunk) error {
	md, err := json.Marshal(nonNilMetadata(c.Metadata))
	if err != nil {
		return fmt.Errorf("marshal chunk metadata: %w", err)
	}
	vecLit := toVectorLiteral(c.Embedding)
	_, err = p.pool.Exec(ctx, `
INSERT INTO chunks(id, document_id, idx, text, start_char, end_char, parent_id, metadata, embedding)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9::vector)
ON CONFLICT (id) DO UPDATE SET
  document_id=EXCLUDED.document_id, idx=EXCLUDED.idx, text=EXCLUDED.text,
  start_char=EXCLUDED.start_char, end_char=EXCLUDED.end_char,
  parent_id=EXCLUDED.parent_id, metadata=EXCLUDED.metadata, embedding=EXCLUDED.embedding
`, c.ID, c.DocumentID, c.Index, c.Text, c.StartChar, c.EndChar, c.ParentID, md, vecLit)
	return err
}

func (p *postgresChunkRepository) GetByID(ctx context.Context, id string) (model.Chunk, bool, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, document_id, idx, text, start_char, end_char, parent_id, metadata
FROM chunks WHERE id=$1`, id)
	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Chunk{}, false, nil
		}
		return model.Chunk{}, false, err
	}
	return c, true, nil
}

func (p *postgresChunkRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx, `
SELECT id, document_id, idx, text, start_char, end_char, parent_id, metadata
FROM chunks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *postgresChunkRepository) DenseSearch(ctx context.Context, queryEmbedding []float32, topK int, filter ports.Filter) ([]model.RetrievalResult, error) {
	if topK <= 0 {
		topK = 10
	}
	op := "<=>"
	scoreExpr := "1 - (embedding <=> $1::vector)"
	switch p.metric {
	case "l2", "euclidean":
		op = "<->"
		scoreExpr = "-(embedding <-> $1::vector)"
	case "ip", "dot":
		op = "<#>"
		scoreExpr = "-(embedding <#> $1::vector)"
	}
	vecLit := toVectorLiteral(queryEmbedding)
	where, args := filterClause(filter, []any{vecLit, topK})
	query := fmt.Sprintf(`
SELECT id, document_id, idx, text, start_char, end_char, parent_id, metadata, %s AS score
FROM chunks %s
ORDER BY embedding %s $1::vector
LIMIT $2`, scoreExpr, where, op)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRetrievalResults(rows)
}

func (p *postgresChunkRepository) KeywordSearch(ctx context.Context, queryText string, topK int, filter ports.Filter) ([]model.RetrievalResult, error) {
	if topK <= 0 {
		topK = 10
	}
	q := strings.TrimSpace(queryText)
	if q == "" {
		return nil, nil
	}
	where, args := filterClause(filter, []any{q, topK})
	query := fmt.Sprintf(`
SELECT id, document_id, idx, text, start_char, end_char, parent_id, metadata,
       ts_rank(ts, plainto_tsquery('simple', $1)) AS score
FROM chunks
%s
ORDER BY score DESC
LIMIT $2`, andClause(where, "ts @@ plainto_tsquery('simple', $1)"))
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRetrievalResults(rows)
}

// filterClause builds a "WHERE document_id=$N [AND metadata @> $N]" clause,
// appending its parameters to base and returning the full arg slice.
func filterClause(f ports.Filter, base []any) (string, []any) {
	var conds []string
	args := base
	if f.DocumentID != "" {
		args = append(args, f.DocumentID)
		conds = append(conds, fmt.Sprintf("document_id=$%d", len(args)))
	}
	if len(f.Extra) > 0 {
		args = append(args, f.Extra)
		conds = append(conds, fmt.Sprintf("metadata @> $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func andClause(where, extra string) string {
	if where == "" {
		return "WHERE " + extra
	}
	return where + " AND " + extra
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (model.Chunk, error) {
	var c model.Chunk
	var md []byte
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &c.StartChar, &c.EndChar, &c.ParentID, &md); err != nil {
		return model.Chunk{}, err
	}
	if len(md) > 0 {
		_ = json.Unmarshal(md, &c.Metadata)
	}
	return c, nil
}

func scanRetrievalResults(rows pgx.Rows) ([]model.RetrievalResult, error) {
	var out []model.RetrievalResult
	for rows.Next() {
		var c model.Chunk
		var md []byte
		var score float64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &c.StartChar, &c.EndChar, &c.ParentID, &md, &score); err != nil {
			return nil, err
		}
		if len(md) > 0 {
			_ = json.Unmarshal(md, &c.Metadata)
		}
		out = append(out, model.RetrievalResult{Chunk: c, Score: score})
	}
	return out, rows.Err()
}

func nonNilMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
