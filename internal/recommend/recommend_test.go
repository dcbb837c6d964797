package recommend

import (
	"context"
	"testing"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/discovery/provider"
)

type fakeLibrary struct {
	top      []core.Resource
	subjects []SubjectStat
	existing map[string]bool
}

func (f *fakeLibrary) TopResourcesByQuality(ctx context.Context, limit int) ([]core.Resource, error) {
	return f.top, nil
}
func (f *fakeLibrary) SubjectsByUsage(ctx context.Context, limit int) ([]SubjectStat, error) {
	return f.subjects, nil
}
func (f *fakeLibrary) ResourceExistsByURL(ctx context.Context, normalizedURL string) (bool, error) {
	return f.existing[normalizedURL], nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) []float32 { return []float32{1, 0} }

type fakeProvider struct {
	results []provider.Result
	err     error
}

func (f *fakeProvider) Search(ctx context.Context, query string, cfg provider.Config) ([]provider.Result, error) {
	return f.results, f.err
}
func (f *fakeProvider) GetName() string { return "fake" }

func withEmbedding(id string, embedding []float32, quality float64) core.Resource {
	return core.Resource{ID: id, Embedding: embedding, Quality: core.Quality{Overall: quality}}
}

func TestRecommendReturnsInsufficientLibraryReason(t *testing.T) {
	lib := &fakeLibrary{top: []core.Resource{withEmbedding("a", []float32{1, 0}, 0.9)}}
	e := NewEngine(lib, fakeEmbedder{}, nil)

	resp, err := e.Recommend(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reason != ReasonInsufficientLibrary {
		t.Errorf("expected insufficient_library reason with <3 embedded resources, got %+v", resp)
	}
}

func TestRecommendScoresAndRanksCandidates(t *testing.T) {
	lib := &fakeLibrary{
		top: []core.Resource{
			withEmbedding("a", []float32{1, 0}, 0.9),
			withEmbedding("b", []float32{1, 0}, 0.8),
			withEmbedding("c", []float32{1, 0}, 0.7),
		},
		subjects: []SubjectStat{
			{Subject: core.Subject{CanonicalForm: "graph theory", UsageCount: 10}, AverageQuality: 0.8},
		},
		existing: map[string]bool{},
	}
	p := &fakeProvider{results: []provider.Result{
		{URL: "https://example.com/a", Title: "A", Snippet: "about graphs"},
		{URL: "https://example.com/b", Title: "B", Snippet: "about graphs too"},
	}}
	e := NewEngine(lib, fakeEmbedder{}, []provider.Provider{p})

	resp, err := e.Recommend(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %+v", len(resp.Items), resp.Items)
	}
	for _, item := range resp.Items {
		if item.RelevanceScore <= 0 {
			t.Errorf("expected positive relevance score, got %+v", item)
		}
	}
}

func TestRecommendExcludesExistingLibraryURLs(t *testing.T) {
	lib := &fakeLibrary{
		top: []core.Resource{
			withEmbedding("a", []float32{1, 0}, 0.9),
			withEmbedding("b", []float32{1, 0}, 0.8),
			withEmbedding("c", []float32{1, 0}, 0.7),
		},
		subjects: []SubjectStat{{Subject: core.Subject{CanonicalForm: "graphs", UsageCount: 5}, AverageQuality: 0.5}},
		existing: map[string]bool{"example.com/a": true},
	}
	p := &fakeProvider{results: []provider.Result{{URL: "https://example.com/a", Title: "A", Snippet: "x"}}}
	e := NewEngine(lib, fakeEmbedder{}, []provider.Provider{p})

	resp, err := e.Recommend(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("expected existing library URL to be excluded, got %+v", resp.Items)
	}
}

func TestRecommendSkipsFailingProvider(t *testing.T) {
	lib := &fakeLibrary{
		top: []core.Resource{
			withEmbedding("a", []float32{1, 0}, 0.9),
			withEmbedding("b", []float32{1, 0}, 0.8),
			withEmbedding("c", []float32{1, 0}, 0.7),
		},
		subjects: []SubjectStat{{Subject: core.Subject{CanonicalForm: "graphs", UsageCount: 5}, AverageQuality: 0.5}},
		existing: map[string]bool{},
	}
	failing := &fakeProvider{err: context.DeadlineExceeded}
	e := NewEngine(lib, fakeEmbedder{}, []provider.Provider{failing})

	resp, err := e.Recommend(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("expected no recommendations when the only provider fails, got %+v", resp.Items)
	}
}
