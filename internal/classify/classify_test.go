package classify

import (
	"context"
	"testing"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

func TestRuleClassifierEmitsTopCodeAboveTau(t *testing.T) {
	c := NewRuleClassifier(nil, 0)
	r := &core.Resource{
		Title:    "A survey of machine learning for neural network training",
		Subjects: []string{"deep learning"},
		Summary:  "This paper covers artificial intelligence approaches.",
	}

	got := c.Classify(r)
	if got != "006" {
		t.Errorf("Expected code 006 (Artificial Intelligence), got %q", got)
	}
}

func TestRuleClassifierReturnsEmptyBelowTau(t *testing.T) {
	c := NewRuleClassifier(nil, 0)
	r := &core.Resource{Title: "A recipe for sourdough bread"}

	got := c.Classify(r)
	if got != "" {
		t.Errorf("Expected no code below tau, got %q", got)
	}
}

func TestRuleClassifierCustomTau(t *testing.T) {
	c := NewRuleClassifier([]Code{
		{Code: "X", Patterns: []KeywordPattern{{Keyword: "widget", Weight: 0.5}}},
	}, 1.0)
	r := &core.Resource{Title: "widget widget"}

	if got := c.Classify(r); got != "" {
		t.Errorf("Expected single keyword occurrence not to clear tau 1.0, got %q", got)
	}
}

type fakeEmbedder struct {
	scores map[string]float64
}

func (f *fakeEmbedder) ClassifyZeroShot(ctx context.Context, text string, labels []string) map[string]float64 {
	out := make(map[string]float64, len(labels))
	for _, l := range labels {
		if s, ok := f.scores[l]; ok {
			out[l] = s
		}
	}
	return out
}

func TestMLClassifierFiltersLowConfidence(t *testing.T) {
	taxonomy := []core.TaxonomyNode{{ID: "n1", Name: "Biology"}}
	c := NewMLClassifier(&fakeEmbedder{scores: map[string]float64{"Biology": 0.2}}, taxonomy)

	got := c.Classify(context.Background(), &core.Resource{Title: "x"})
	if len(got) != 0 {
		t.Errorf("Expected confidence below 0.3 to be filtered, got %v", got)
	}
}

func TestMLClassifierMarksNeedsReviewBetweenThresholds(t *testing.T) {
	taxonomy := []core.TaxonomyNode{{ID: "n1", Name: "Biology"}}
	c := NewMLClassifier(&fakeEmbedder{scores: map[string]float64{"Biology": 0.5}}, taxonomy)

	got := c.Classify(context.Background(), &core.Resource{Title: "x"})
	if len(got) != 1 {
		t.Fatalf("Expected one assignment, got %d", len(got))
	}
	if !got[0].NeedsReview {
		t.Error("Expected confidence 0.5 to be marked needs_review")
	}
}

func TestMLClassifierKeepsConfidentAssignments(t *testing.T) {
	taxonomy := []core.TaxonomyNode{{ID: "n1", Name: "Biology"}}
	c := NewMLClassifier(&fakeEmbedder{scores: map[string]float64{"Biology": 0.9}}, taxonomy)

	got := c.Classify(context.Background(), &core.Resource{Title: "x"})
	if len(got) != 1 || got[0].NeedsReview {
		t.Errorf("Expected confident assignment without needs_review, got %v", got)
	}
}

func TestMLClassifierEmptyTaxonomyReturnsNil(t *testing.T) {
	c := NewMLClassifier(&fakeEmbedder{}, nil)
	got := c.Classify(context.Background(), &core.Resource{Title: "x"})
	if got != nil {
		t.Errorf("Expected nil for empty taxonomy, got %v", got)
	}
}
