package core

import "testing"

func TestComputeOverallWeightsDimensions(t *testing.T) {
	q := Quality{Accuracy: 1, Completeness: 1, Consistency: 1, Timeliness: 1, Relevance: 1}
	w := DefaultQualityWeights()
	got := q.ComputeOverall(w)
	if got < 0.99 || got > 1.01 {
		t.Errorf("expected weights summing to ~1 against all-1.0 dimensions, got %v", got)
	}
}

func TestReadyInvariantHoldsForNonReadyResource(t *testing.T) {
	r := &Resource{IngestionStatus: StatusPending}
	if !r.ReadyInvariantHolds() {
		t.Error("expected the invariant to hold vacuously for a non-ready resource")
	}
}

func TestReadyInvariantFailsWithoutEmbeddingOrContent(t *testing.T) {
	r := &Resource{IngestionStatus: StatusReady}
	if r.ReadyInvariantHolds() {
		t.Error("expected the invariant to fail for a ready resource with neither embedding nor content")
	}
}

func TestReadyInvariantHoldsWithEmbedding(t *testing.T) {
	r := &Resource{IngestionStatus: StatusReady, Embedding: []float32{0.1}}
	if !r.ReadyInvariantHolds() {
		t.Error("expected the invariant to hold when an embedding is present")
	}
}

func TestCompositeTextJoinsTitleDescriptionSubjects(t *testing.T) {
	r := &Resource{Title: "t", Description: "d", Subjects: []string{"a", "b"}}
	want := "t · d · a, b"
	if got := r.CompositeText(); got != want {
		t.Errorf("CompositeText() = %q, want %q", got, want)
	}
}

func TestHasEmbedding(t *testing.T) {
	r := &Resource{}
	if r.HasEmbedding() {
		t.Error("expected no embedding on a zero-value resource")
	}
	r.Embedding = []float32{1}
	if !r.HasEmbedding() {
		t.Error("expected HasEmbedding to report true once set")
	}
}
