// Package aiadapter provides the uniform AI facade (spec §4.3): embed,
// summarize, and classify_zero_shot, backed by a lazily-initialized
// model backend with a sticky-failure window and deterministic
// fallbacks so ingestion is never fatal to model unavailability.
package aiadapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
)

// Backend is the model-calling surface an Adapter lazily initializes
// and wraps. A real Backend calls out to Gemini (the teacher's
// internal/llm.Client); a fake Backend serves tests.
type Backend interface {
	Embed(ctx context.Context, text string, dimension int) ([]float32, error)
	Summarize(ctx context.Context, text string) (string, error)
	ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// Factory constructs a Backend on first use. Construction errors (e.g.
// missing API key, unreachable model server) trigger the sticky
// failure window rather than being retried on every call.
type Factory func() (Backend, error)

// Config controls the adapter's cache size, embedding dimension, and
// sticky-failure TTL (spec §4.3, §6).
type Config struct {
	EmbeddingDimension int
	CacheSize          int
	StickyFailureTTL   time.Duration
}

// DefaultConfig matches spec §6 defaults.
func DefaultConfig() Config {
	return Config{EmbeddingDimension: 768, CacheSize: 1000, StickyFailureTTL: 5 * time.Minute}
}

// Adapter is the uniform facade used by ingestion, search, and
// classification. It is safe for concurrent use.
type Adapter struct {
	factory Factory
	cfg     Config

	backend    Backend
	initErr    error
	initFailAt time.Time
	initMu     sync.Mutex

	embedCache *lru.Cache[string, []float32]
}

// New creates an Adapter. factory is called at most once per
// sticky-failure window to construct the real Backend.
func New(factory Factory, cfg Config) *Adapter {
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = 768
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if cfg.StickyFailureTTL <= 0 {
		cfg.StickyFailureTTL = 5 * time.Minute
	}
	cache, _ := lru.New[string, []float32](cfg.CacheSize)
	return &Adapter{factory: factory, cfg: cfg, embedCache: cache}
}

// backendOrFallback returns the initialized Backend, lazily
// constructing it on first call. Concurrent callers block on the same
// construction (sync.Once semantics, reset after the TTL). A
// construction failure is sticky until cfg.StickyFailureTTL elapses,
// so a down model server doesn't get hammered on every ingestion call.
func (a *Adapter) backendOrFallback() (Backend, bool) {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	if a.backend != nil {
		return a.backend, true
	}
	if a.initErr != nil {
		if time.Since(a.initFailAt) < a.cfg.StickyFailureTTL {
			return nil, false
		}
		// TTL elapsed: allow a fresh attempt.
		a.initErr = nil
	}

	backend, err := a.factory()
	if err != nil {
		a.initErr = err
		a.initFailAt = time.Now()
		logger.Warn("aiadapter: backend initialization failed, falling back", "error", err.Error())
		return nil, false
	}
	a.backend = backend
	return a.backend, true
}

// Embed computes the L2-normalized embedding of text, memoized by the
// SHA-256 of the input (spec §4.3). Falls back to a deterministic
// bag-of-words hash embedding when the backend is unavailable, so
// downstream components always get a vector of the configured
// dimension.
func (a *Adapter) Embed(ctx context.Context, text string) []float32 {
	key := sha256Hex(text)
	if cached, ok := a.embedCache.Get(key); ok {
		return cached
	}

	var vec []float32
	if backend, ok := a.backendOrFallback(); ok {
		v, err := backend.Embed(ctx, text, a.cfg.EmbeddingDimension)
		if err == nil {
			vec = l2Normalize(v)
		} else {
			logger.Warn("aiadapter: embed call failed, falling back", "error", err.Error())
		}
	}
	if vec == nil {
		vec = l2Normalize(fallbackEmbedding(text, a.cfg.EmbeddingDimension))
	}

	a.embedCache.Add(key, vec)
	return vec
}

// Summarize returns a short abstractive summary of text. Falls back to
// first-N-sentences extraction when the backend is unavailable (spec
// §4.3).
func (a *Adapter) Summarize(ctx context.Context, text string) string {
	if backend, ok := a.backendOrFallback(); ok {
		summary, err := backend.Summarize(ctx, text)
		if err == nil && strings.TrimSpace(summary) != "" {
			return summary
		}
		if err != nil {
			logger.Warn("aiadapter: summarize call failed, falling back", "error", err.Error())
		}
	}
	return firstNSentences(text, 3)
}

// ClassifyZeroShot scores text against candidateLabels. Falls back to
// an empty result when the backend is unavailable (spec §4.3).
func (a *Adapter) ClassifyZeroShot(ctx context.Context, text string, candidateLabels []string) map[string]float64 {
	if backend, ok := a.backendOrFallback(); ok {
		scores, err := backend.ClassifyZeroShot(ctx, text, candidateLabels)
		if err == nil {
			return scores
		}
		logger.Warn("aiadapter: classify call failed, falling back", "error", err.Error())
	}
	return map[string]float64{}
}

func sha256Hex(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// fallbackEmbedding derives a deterministic vector from text by
// hashing each lowercased word into a dimension bucket, so the same
// input always produces the same fallback vector (spec §4.2's
// determinism requirement carried into the AI adapter's degraded
// path).
func fallbackEmbedding(text string, dimension int) []float32 {
	vec := make([]float32, dimension)
	words := strings.Fields(strings.ToLower(text))
	for _, w := range words {
		sum := sha256.Sum256([]byte(w))
		idx := int(sum[0])<<8 | int(sum[1])
		vec[idx%dimension] += 1
	}
	return vec
}

var sentenceSplit = regexp.MustCompile(`(?s)[^.!?]+[.!?]+`)

func firstNSentences(text string, n int) string {
	matches := sentenceSplit.FindAllString(text, -1)
	if len(matches) == 0 {
		if len(text) > 280 {
			return strings.TrimSpace(text[:280])
		}
		return strings.TrimSpace(text)
	}
	if len(matches) > n {
		matches = matches[:n]
	}
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(strings.TrimSpace(m))
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}
