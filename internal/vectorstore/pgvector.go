package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// PgVectorAdapter implements VectorStore against a Postgres database with
// the pgvector extension enabled, operating on the resources table's
// embedding_vector column.
type PgVectorAdapter struct {
	db *sql.DB
}

// NewPgVectorAdapter wraps an existing *sql.DB connection pool.
func NewPgVectorAdapter(db *sql.DB) *PgVectorAdapter {
	return &PgVectorAdapter{db: db}
}

// Store upserts the embedding_vector column for a resource.
func (a *PgVectorAdapter) Store(ctx context.Context, resourceID string, embedding []float64) error {
	if len(embedding) == 0 {
		return fmt.Errorf("pgvector: empty embedding for resource %s", resourceID)
	}
	vec := formatVector(embedding)
	res, err := a.db.ExecContext(ctx, `
		UPDATE resources SET embedding_vector = $1::vector, updated_at = NOW() WHERE id = $2`,
		vec, resourceID)
	if err != nil {
		return fmt.Errorf("pgvector: store embedding for %s: %w", resourceID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("pgvector: store embedding: resource %s not found", resourceID)
	}
	return nil
}

// Search performs an ANN cosine-distance query using the <=> operator.
func (a *PgVectorAdapter) Search(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	if len(query.Embedding) == 0 {
		return nil, fmt.Errorf("pgvector: empty query embedding")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	threshold := query.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	vec := formatVector(query.Embedding)

	sqlQuery := `
		SELECT id, 1 - (embedding_vector <=> $1::vector) AS similarity
		FROM resources
		WHERE embedding_vector IS NOT NULL
		  AND 1 - (embedding_vector <=> $1::vector) >= $2`
	args := []interface{}{vec, threshold}

	if len(query.ExcludeIDs) > 0 {
		sqlQuery += fmt.Sprintf(" AND id != ALL($%d)", len(args)+1)
		args = append(args, pq.Array(query.ExcludeIDs))
	}

	sqlQuery += fmt.Sprintf(" ORDER BY embedding_vector <=> $1::vector LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ResourceID, &r.Similarity); err != nil {
			return nil, fmt.Errorf("pgvector: scan result: %w", err)
		}
		r.Distance = 1 - r.Similarity
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if query.IncludeResource && len(results) > 0 {
		if err := a.populateResources(ctx, results); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Delete clears the embedding_vector column for a resource.
func (a *PgVectorAdapter) Delete(ctx context.Context, resourceID string) error {
	_, err := a.db.ExecContext(ctx, `UPDATE resources SET embedding_vector = NULL WHERE id = $1`, resourceID)
	if err != nil {
		return fmt.Errorf("pgvector: delete embedding for %s: %w", resourceID, err)
	}
	return nil
}

// CreateIndex builds an HNSW index on embedding_vector for fast ANN search.
// Should be called once after bulk inserts, not inline with every write.
func (a *PgVectorAdapter) CreateIndex(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_resources_embedding_vector_hnsw
		ON resources USING hnsw (embedding_vector vector_cosine_ops)
		WITH (m = 16, ef_construction = 64)`)
	if err != nil {
		return fmt.Errorf("pgvector: create index: %w", err)
	}
	return nil
}

// GetStats reports embedding coverage and index metadata.
func (a *PgVectorAdapter) GetStats(ctx context.Context) (*VectorStoreStats, error) {
	stats := &VectorStoreStats{EmbeddingDimensions: 768}

	row := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources WHERE embedding_vector IS NOT NULL`)
	if err := row.Scan(&stats.TotalEmbeddings); err != nil {
		return nil, fmt.Errorf("pgvector: count embeddings: %w", err)
	}

	row = a.db.QueryRowContext(ctx, `
		SELECT indexname, pg_relation_size(indexname::regclass)
		FROM pg_indexes
		WHERE tablename = 'resources' AND indexname = 'idx_resources_embedding_vector_hnsw'`)
	var indexName string
	var indexSize int64
	if err := row.Scan(&indexName, &indexSize); err == nil {
		stats.IndexType = "hnsw"
		stats.IndexSize = indexSize
	}
	_ = indexName

	return stats, nil
}

func (a *PgVectorAdapter) populateResources(ctx context.Context, results []SearchResult) error {
	ids := make([]string, len(results))
	byID := make(map[string]int, len(results))
	for i, r := range results {
		ids[i] = r.ResourceID
		byID[r.ResourceID] = i
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, source_url, title, description, format, language, classification_code
		FROM resources WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("pgvector: populate resources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res core.Resource
		if err := rows.Scan(&res.ID, &res.SourceURL, &res.Title, &res.Description, &res.Format, &res.Language, &res.ClassificationCode); err != nil {
			return err
		}
		if idx, ok := byID[res.ID]; ok {
			results[idx].Resource = &res
		}
	}
	return rows.Err()
}

// formatVector renders an embedding as the literal pgvector expects for an
// explicit ::vector cast, e.g. "[0.1,0.2,0.3]".
func formatVector(embedding []float64) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
