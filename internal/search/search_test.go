package search

import (
	"context"
	"testing"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

type fakeLexical struct{ hits []Candidate }

func (f *fakeLexical) SearchLexical(ctx context.Context, query string, k int) ([]Candidate, error) {
	return f.hits, nil
}

type fakeSemantic struct{ hits []Candidate }

func (f *fakeSemantic) SearchSemantic(ctx context.Context, embedding []float32, k int) ([]Candidate, error) {
	return f.hits, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) []float32 { return []float32{1, 0} }

type fakeLookup struct{ resources map[string]*core.Resource }

func (f *fakeLookup) GetResources(ctx context.Context, ids []string) (map[string]*core.Resource, error) {
	return f.resources, nil
}

func newEngine(lex, sem []Candidate, resources map[string]*core.Resource) *Engine {
	return &Engine{
		Lexical:  &fakeLexical{hits: lex},
		Semantic: &fakeSemantic{hits: sem},
		Embedder: fakeEmbedder{},
		Lookup:   &fakeLookup{resources: resources},
	}
}

func TestSearchFusesWeightedLinearByDefault(t *testing.T) {
	resources := map[string]*core.Resource{
		"a": {ID: "a"},
		"b": {ID: "b"},
	}
	e := newEngine(
		[]Candidate{{ResourceID: "a", Score: 10}, {ResourceID: "b", Score: 1}},
		[]Candidate{{ResourceID: "a", Score: 1}, {ResourceID: "b", Score: 10}},
		resources,
	)

	resp, err := e.Search(context.Background(), Query{Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.FusedScore < 0.4 || r.FusedScore > 0.6 {
			t.Errorf("expected roughly equal fused scores under default weighting, got %+v", r)
		}
	}
}

func TestSearchRRFFusion(t *testing.T) {
	resources := map[string]*core.Resource{"a": {ID: "a"}, "b": {ID: "b"}}
	e := newEngine(
		[]Candidate{{ResourceID: "a", Score: 10}, {ResourceID: "b", Score: 1}},
		[]Candidate{{ResourceID: "a", Score: 1}, {ResourceID: "b", Score: 10}},
		resources,
	)

	resp, err := e.Search(context.Background(), Query{Text: "x", Fusion: FusionRRF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestSearchAppliesLanguageFilter(t *testing.T) {
	resources := map[string]*core.Resource{
		"a": {ID: "a", Language: "en"},
		"b": {ID: "b", Language: "fr"},
	}
	e := newEngine(
		[]Candidate{{ResourceID: "a", Score: 1}, {ResourceID: "b", Score: 1}},
		nil,
		resources,
	)

	resp, err := e.Search(context.Background(), Query{Text: "x", Filters: Filters{Language: "en"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ResourceID != "a" {
		t.Errorf("expected only language=en resource, got %+v", resp.Results)
	}
}

func TestSearchTieBreaksByQualityThenID(t *testing.T) {
	resources := map[string]*core.Resource{
		"b": {ID: "b", Quality: core.Quality{Overall: 0.9}},
		"a": {ID: "a", Quality: core.Quality{Overall: 0.1}},
	}
	e := newEngine(
		[]Candidate{{ResourceID: "a", Score: 1}, {ResourceID: "b", Score: 1}},
		nil,
		resources,
	)

	resp, err := e.Search(context.Background(), Query{Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Results[0].ResourceID != "b" {
		t.Errorf("expected higher-quality resource first on tied fused score, got %+v", resp.Results)
	}
}

func TestSearchLimitClampedToMax(t *testing.T) {
	resources := map[string]*core.Resource{}
	var lex []Candidate
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		lex = append(lex, Candidate{ResourceID: id, Score: float64(i)})
		resources[id] = &core.Resource{ID: id}
	}
	e := newEngine(lex, nil, resources)

	resp, err := e.Search(context.Background(), Query{Text: "x", Limit: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 5 {
		t.Errorf("expected 5 results (under the 100 cap), got %d", len(resp.Results))
	}
}

func TestSearchFacetCounts(t *testing.T) {
	resources := map[string]*core.Resource{
		"a": {ID: "a", Language: "en"},
		"b": {ID: "b", Language: "en"},
		"c": {ID: "c", Language: "fr"},
	}
	e := newEngine(
		[]Candidate{{ResourceID: "a", Score: 1}, {ResourceID: "b", Score: 1}, {ResourceID: "c", Score: 1}},
		nil,
		resources,
	)

	resp, err := e.Search(context.Background(), Query{Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Facets["language"]["en"] != 2 || resp.Facets["language"]["fr"] != 1 {
		t.Errorf("expected language facet counts en=2 fr=1, got %v", resp.Facets["language"])
	}
}
