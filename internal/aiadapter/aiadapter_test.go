package aiadapter

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fakeBackend struct {
	embedCalls int
	failEmbed  bool
}

func (f *fakeBackend) Embed(ctx context.Context, text string, dimension int) ([]float32, error) {
	f.embedCalls++
	if f.failEmbed {
		return nil, errors.New("embed unavailable")
	}
	vec := make([]float32, dimension)
	vec[0] = 3
	vec[1] = 4
	return vec, nil
}

func (f *fakeBackend) Summarize(ctx context.Context, text string) (string, error) {
	return "fake summary", nil
}

func (f *fakeBackend) ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(labels))
	for _, l := range labels {
		scores[l] = 0.5
	}
	return scores, nil
}

func TestEmbedIsL2Normalized(t *testing.T) {
	fb := &fakeBackend{}
	a := New(func() (Backend, error) { return fb, nil }, DefaultConfig())

	vec := a.Embed(context.Background(), "hello world")

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sumSq)-1) > 1e-6 {
		t.Errorf("Expected L2-normalized vector (norm 1), got norm %f", math.Sqrt(sumSq))
	}
}

func TestEmbedIsMemoized(t *testing.T) {
	fb := &fakeBackend{}
	a := New(func() (Backend, error) { return fb, nil }, DefaultConfig())

	a.Embed(context.Background(), "same text")
	a.Embed(context.Background(), "same text")

	if fb.embedCalls != 1 {
		t.Errorf("Expected backend to be called once for identical input, called %d times", fb.embedCalls)
	}
}

func TestEmbedFallsBackWhenBackendUnavailable(t *testing.T) {
	a := New(func() (Backend, error) { return nil, errors.New("no api key") }, DefaultConfig())

	vec := a.Embed(context.Background(), "hello world")
	if len(vec) != DefaultConfig().EmbeddingDimension {
		t.Errorf("Expected fallback vector of dimension %d, got %d", DefaultConfig().EmbeddingDimension, len(vec))
	}
}

func TestEmbedFallbackIsDeterministic(t *testing.T) {
	a1 := New(func() (Backend, error) { return nil, errors.New("down") }, DefaultConfig())
	a2 := New(func() (Backend, error) { return nil, errors.New("down") }, DefaultConfig())

	v1 := a1.Embed(context.Background(), "deterministic text")
	v2 := a2.Embed(context.Background(), "deterministic text")

	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("Expected identical fallback embeddings, differed at index %d: %f vs %f", i, v1[i], v2[i])
		}
	}
}

func TestStickyFailureDoesNotRetryWithinTTL(t *testing.T) {
	attempts := 0
	a := New(func() (Backend, error) {
		attempts++
		return nil, errors.New("still down")
	}, Config{EmbeddingDimension: 8, CacheSize: 10, StickyFailureTTL: time.Hour})

	a.Embed(context.Background(), "a")
	a.Embed(context.Background(), "b")
	a.Embed(context.Background(), "c")

	if attempts != 1 {
		t.Errorf("Expected a single construction attempt within the sticky TTL, got %d", attempts)
	}
}

func TestSummarizeFallsBackToFirstSentences(t *testing.T) {
	a := New(func() (Backend, error) { return nil, errors.New("down") }, DefaultConfig())
	summary := a.Summarize(context.Background(), "First sentence. Second sentence. Third sentence. Fourth sentence.")

	if summary == "" {
		t.Fatal("Expected non-empty fallback summary")
	}
	if summary == "First sentence. Second sentence. Third sentence. Fourth sentence." {
		t.Error("Expected summary truncated to first sentences, got full text")
	}
}

func TestClassifyZeroShotFallsBackToEmpty(t *testing.T) {
	a := New(func() (Backend, error) { return nil, errors.New("down") }, DefaultConfig())
	scores := a.ClassifyZeroShot(context.Background(), "text", []string{"a", "b"})

	if len(scores) != 0 {
		t.Errorf("Expected empty fallback classification, got %v", scores)
	}
}

func TestClassifyZeroShotUsesBackendWhenAvailable(t *testing.T) {
	fb := &fakeBackend{}
	a := New(func() (Backend, error) { return fb, nil }, DefaultConfig())
	scores := a.ClassifyZeroShot(context.Background(), "text", []string{"a", "b"})

	if scores["a"] != 0.5 || scores["b"] != 0.5 {
		t.Errorf("Expected backend scores, got %v", scores)
	}
}
