package search

import (
	"context"
	"math"
	"sort"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/aiadapter"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/vectorstore"
)

// PgVectorSemantic implements SemanticSearcher over the pgvector ANN
// index (spec §4.8 step 1 "Semantic"), used when the storage backend
// is Postgres. The embedded SQLite backend has no ANN index and uses
// BruteForceSemantic instead.
type PgVectorSemantic struct {
	Store vectorstore.VectorStore
}

func (a PgVectorSemantic) SearchSemantic(ctx context.Context, embedding []float32, k int) ([]Candidate, error) {
	query := vectorstore.DefaultSearchQuery(toFloat64(embedding))
	query.Limit = k
	query.SimilarityThreshold = 0
	results, err := a.Store.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, len(results))
	for i, r := range results {
		candidates[i] = Candidate{ResourceID: r.ResourceID, Score: r.Similarity}
	}
	return candidates, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// LexicalAdapter implements LexicalSearcher over a persistence.Database's
// full-text search, synthesizing a rank-based score since the FTS
// backends return relevance order rather than a comparable score.
type LexicalAdapter struct {
	DB persistence.Database
}

func (a LexicalAdapter) SearchLexical(ctx context.Context, query string, k int) ([]Candidate, error) {
	ids, err := a.DB.Resources().SearchFTS(ctx, query, k)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, len(ids))
	for i, id := range ids {
		candidates[i] = Candidate{ResourceID: id, Score: 1 / float64(i+1)}
	}
	return candidates, nil
}

// BruteForceSemantic implements SemanticSearcher by scanning every
// embedded resource and ranking by cosine similarity. Used for the
// embedded SQLite backend, which carries no ANN index; the
// pgvector-backed Postgres backend instead uses PgVectorSemantic.
type BruteForceSemantic struct {
	DB persistence.Database
}

func (a BruteForceSemantic) SearchSemantic(ctx context.Context, embedding []float32, k int) ([]Candidate, error) {
	resources, err := a.DB.Resources().All(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(resources))
	for _, r := range resources {
		if !r.HasEmbedding() {
			continue
		}
		candidates = append(candidates, Candidate{
			ResourceID: r.ID,
			Score:      cosine(embedding, r.Embedding),
			Snippet:    r.Summary,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ResourceLookupAdapter implements ResourceLookup over
// persistence.Database.
type ResourceLookupAdapter struct {
	DB persistence.Database
}

func (a ResourceLookupAdapter) GetResources(ctx context.Context, ids []string) (map[string]*core.Resource, error) {
	return a.DB.Resources().GetMany(ctx, ids)
}

// EmbedderAdapter implements Embedder over an aiadapter.Adapter.
type EmbedderAdapter struct {
	AI *aiadapter.Adapter
}

func (a EmbedderAdapter) Embed(ctx context.Context, text string) []float32 {
	return a.AI.Embed(ctx, text)
}
