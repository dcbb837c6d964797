package vectorstore

import (
	"context"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// VectorStore provides semantic search operations for resource embeddings
// Using pgvector for production-scale similarity search with cosine distance
type VectorStore interface {
	// Store saves or updates an embedding for a resource
	// Returns error if the resource doesn't exist or embedding is invalid
	Store(ctx context.Context, resourceID string, embedding []float64) error

	// Search finds resources similar to the query embedding
	// Uses cosine similarity (1 - cosine distance) for ranking
	// Returns results ordered by similarity (highest first)
	Search(ctx context.Context, query SearchQuery) ([]SearchResult, error)

	// Delete removes an embedding (when a resource is deleted)
	Delete(ctx context.Context, resourceID string) error

	// CreateIndex creates pgvector indexes for performance
	// Should be called after bulk inserts
	CreateIndex(ctx context.Context) error

	// GetStats returns statistics about the vector store
	GetStats(ctx context.Context) (*VectorStoreStats, error)
}

// SearchQuery configures semantic search parameters
type SearchQuery struct {
	// Embedding is the query vector (768-dim)
	Embedding []float64

	// Limit is the maximum number of results to return (default: 10)
	Limit int

	// SimilarityThreshold is the minimum cosine similarity (0.0-1.0, default: 0.7)
	// Higher values = more strict matching
	SimilarityThreshold float64

	// IncludeResource populates the Resource field in results (default: false)
	// Set to true when you need full resource data, not just IDs
	IncludeResource bool

	// ExcludeIDs filters out specific resources (useful for "more like this" queries)
	ExcludeIDs []string
}

// SearchResult contains a similar resource and its similarity score
type SearchResult struct {
	// ResourceID is the unique identifier
	ResourceID string

	// Similarity is the cosine similarity (0.0-1.0, higher = more similar)
	Similarity float64

	// Resource is the full resource data (only populated if IncludeResource=true)
	Resource *core.Resource

	// Distance is the raw cosine distance (lower = more similar)
	// Similarity = 1 - Distance
	Distance float64
}

// VectorStoreStats provides metrics about the vector store
type VectorStoreStats struct {
	// TotalEmbeddings is the count of stored embeddings
	TotalEmbeddings int64

	// EmbeddingDimensions is the vector size (768)
	EmbeddingDimensions int

	// IndexType describes the pgvector index (e.g., "hnsw")
	IndexType string

	// IndexSize is the disk space used by indexes
	IndexSize int64

	// AvgSearchLatency is the average search query time in milliseconds
	AvgSearchLatency float64
}

// DefaultSearchQuery returns sensible defaults
func DefaultSearchQuery(embedding []float64) SearchQuery {
	return SearchQuery{
		Embedding:           embedding,
		Limit:               10,
		SimilarityThreshold: 0.7,
		IncludeResource:     false,
		ExcludeIDs:          []string{},
	}
}
