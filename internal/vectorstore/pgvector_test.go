package vectorstore

import (
	"context"
	"database/sql"
	"math"
	"math/rand"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

// TestPgVectorIntegration demonstrates pgvector capabilities
// Run with: go test -v ./internal/vectorstore -run TestPgVectorIntegration
//
// Prerequisites:
// - PostgreSQL running with pgvector extension
// - DATABASE_URL environment variable set
// - resources table populated with embedding_vector values
func TestPgVectorIntegration(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	ctx := context.Background()
	store := NewPgVectorAdapter(db)

	t.Run("1. Test Basic Stats", func(t *testing.T) {
		stats, err := store.GetStats(ctx)
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}

		t.Logf("total embeddings: %d", stats.TotalEmbeddings)
		t.Logf("embedding dimensions: %d", stats.EmbeddingDimensions)
		t.Logf("index type: %s", stats.IndexType)
		t.Logf("index size: %d bytes", stats.IndexSize)
	})

	t.Run("2. Test Index Creation", func(t *testing.T) {
		if err := store.CreateIndex(ctx); err != nil {
			t.Logf("index may already exist: %v", err)
		}

		stats, _ := store.GetStats(ctx)
		t.Logf("index type: %s", stats.IndexType)
	})

	t.Run("3. Find Resources with Embeddings", func(t *testing.T) {
		rows, err := db.QueryContext(ctx, `
			SELECT id, title, source_url
			FROM resources
			WHERE embedding_vector IS NOT NULL
			LIMIT 5
		`)
		if err != nil {
			t.Fatalf("Failed to query resources: %v", err)
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var id, title, url string
			if err := rows.Scan(&id, &title, &url); err != nil {
				t.Fatalf("Failed to scan row: %v", err)
			}
			count++
			t.Logf("[%d] %s (%s)", count, title, url)
		}

		if count == 0 {
			t.Skip("No resources with embeddings found. Run ingestion first.")
		}
	})

	t.Run("4. Test Semantic Search", func(t *testing.T) {
		var queryEmbedding []float64
		var queryTitle, queryResourceID string

		err := db.QueryRowContext(ctx, `
			SELECT id, title, embedding_vector
			FROM resources
			WHERE embedding_vector IS NOT NULL
			ORDER BY RANDOM()
			LIMIT 1
		`).Scan(&queryResourceID, &queryTitle, &queryEmbedding)

		if err == sql.ErrNoRows {
			t.Skip("No resources with embeddings found")
		}
		if err != nil {
			t.Fatalf("Failed to get query embedding: %v", err)
		}

		searchQuery := SearchQuery{
			Embedding:           queryEmbedding,
			Limit:               5,
			SimilarityThreshold: 0.5,
			IncludeResource:     true,
			ExcludeIDs:          []string{queryResourceID},
		}

		start := time.Now()
		results, err := store.Search(ctx, searchQuery)
		latency := time.Since(start)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}

		t.Logf("search for %q completed in %v, found %d results", queryTitle, latency, len(results))
		for i, result := range results {
			if result.Resource != nil {
				t.Logf("[%d] %.3f %s", i+1, result.Similarity, result.Resource.Title)
			}
		}

		for i := 1; i < len(results); i++ {
			if results[i].Similarity > results[i-1].Similarity {
				t.Errorf("results not sorted by similarity: %.3f > %.3f at index %d",
					results[i].Similarity, results[i-1].Similarity, i)
			}
		}
	})

	t.Run("5. Test Similarity Thresholds", func(t *testing.T) {
		var embedding []float64
		var resourceID string
		err := db.QueryRowContext(ctx, `
			SELECT id, embedding_vector
			FROM resources
			WHERE embedding_vector IS NOT NULL
			LIMIT 1
		`).Scan(&resourceID, &embedding)

		if err == sql.ErrNoRows {
			t.Skip("No resources with embeddings")
		}

		thresholds := []float64{0.9, 0.8, 0.7, 0.6, 0.5}
		for _, threshold := range thresholds {
			query := SearchQuery{
				Embedding:           embedding,
				Limit:               100,
				SimilarityThreshold: threshold,
				ExcludeIDs:          []string{resourceID},
			}

			results, _ := store.Search(ctx, query)
			t.Logf("threshold %.1f: %d results", threshold, len(results))
		}
	})

	t.Run("6. Performance: Batch Search", func(t *testing.T) {
		rows, err := db.QueryContext(ctx, `
			SELECT id, embedding_vector
			FROM resources
			WHERE embedding_vector IS NOT NULL
			ORDER BY RANDOM()
			LIMIT 10
		`)
		if err != nil {
			t.Fatalf("Failed to get embeddings: %v", err)
		}
		defer rows.Close()

		type testQuery struct {
			id        string
			embedding []float64
		}
		var queries []testQuery
		for rows.Next() {
			var q testQuery
			if err := rows.Scan(&q.id, &q.embedding); err != nil {
				t.Logf("scan error: %v", err)
				continue
			}
			queries = append(queries, q)
		}

		if len(queries) == 0 {
			t.Skip("Not enough resources for batch test")
		}

		start := time.Now()
		totalResults := 0
		for _, q := range queries {
			searchQuery := SearchQuery{
				Embedding:           q.embedding,
				Limit:               5,
				SimilarityThreshold: 0.7,
				ExcludeIDs:          []string{q.id},
			}
			results, _ := store.Search(ctx, searchQuery)
			totalResults += len(results)
		}
		elapsed := time.Since(start)

		avgLatency := elapsed / time.Duration(len(queries))
		t.Logf("total time: %v, avg latency: %v, total results: %d", elapsed, avgLatency, totalResults)
	})
}

// TestPgVectorStore tests the Store method with real embeddings
func TestPgVectorStore(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	store := NewPgVectorAdapter(db)

	t.Run("Store and Retrieve Embedding", func(t *testing.T) {
		var resourceID string
		err := db.QueryRowContext(ctx, `
			SELECT id
			FROM resources
			WHERE embedding_vector IS NULL
			LIMIT 1
		`).Scan(&resourceID)

		if err == sql.ErrNoRows {
			t.Skip("All resources have embeddings")
		}
		if err != nil {
			t.Fatalf("Failed to find resource: %v", err)
		}

		embedding := generateRandomEmbedding(768)

		if err := store.Store(ctx, resourceID, embedding); err != nil {
			t.Fatalf("Failed to store embedding: %v", err)
		}

		var stored []float64
		err = db.QueryRowContext(ctx, `
			SELECT embedding_vector
			FROM resources
			WHERE id = $1
		`, resourceID).Scan(&stored)
		if err != nil {
			t.Fatalf("Failed to retrieve stored embedding: %v", err)
		}

		if len(stored) != 768 {
			t.Errorf("expected 768 dimensions, got %d", len(stored))
		}
	})
}

// generateRandomEmbedding creates a random normalized embedding for tests.
func generateRandomEmbedding(dims int) []float64 {
	embedding := make([]float64, dims)
	var sumSquares float64

	for i := range embedding {
		val := rand.Float64()*2 - 1
		embedding[i] = val
		sumSquares += val * val
	}

	norm := math.Sqrt(sumSquares)
	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}
