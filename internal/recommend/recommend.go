// Package recommend implements the recommendation engine (spec
// §4.10): a profile vector built from the highest-quality library
// resources, seed keywords drawn from subject usage, external
// candidate sourcing through the pluggable search-provider stack, and
// cosine-similarity ranking with an in-memory TTL cache.
package recommend

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/discovery/provider"
)

// Defaults mirror spec §4.10 / config.Recommendation.
const (
	DefaultProfileSize          = 50
	DefaultKeywordCount         = 5
	DefaultCandidatesPerKeyword = 10
	DefaultProviderTimeout      = 10 * time.Second
	DefaultCacheTTL             = 5 * time.Minute
)

// ReasonInsufficientLibrary is returned when fewer than 3 resources
// have embeddings, per spec §4.10 step 1.
const ReasonInsufficientLibrary = "insufficient_library"

// Embedder computes an embedding for arbitrary text, reused from the
// AI adapter facade (C3).
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// LibrarySource supplies the resources and subjects the profile and
// seed keywords are built from.
type LibrarySource interface {
	TopResourcesByQuality(ctx context.Context, limit int) ([]core.Resource, error)
	SubjectsByUsage(ctx context.Context, limit int) ([]SubjectStat, error)
	ResourceExistsByURL(ctx context.Context, normalizedURL string) (bool, error)
}

// SubjectStat pairs a canonical subject with its usage count and the
// average quality of resources carrying it (spec §4.10 step 2).
type SubjectStat struct {
	Subject      core.Subject
	AverageQuality float64
}

// Candidate is a single external-search hit before scoring.
type Candidate struct {
	URL      string
	Title    string
	Snippet  string
	Keyword  string
}

// Recommendation is a scored, explained suggestion (spec §3
// "Recommendation").
type Recommendation struct {
	ExternalURL    string
	InternalID     string
	Title          string
	Snippet        string
	RelevanceScore float64
	Reason         string
}

// Response is the outcome of a recommendation request; Reason is set
// instead of Items when the library is too small to profile.
type Response struct {
	Items  []Recommendation
	Reason string
}

// Engine wires the profile builder, candidate sourcing, and cache
// together.
type Engine struct {
	Library              LibrarySource
	Embedder             Embedder
	Providers             []provider.Provider
	ProfileSize           int
	KeywordCount          int
	CandidatesPerKeyword  int
	ProviderTimeout       time.Duration

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
	cacheTTL time.Duration
}

type cacheEntry struct {
	results []provider.Result
	at      time.Time
}

// NewEngine constructs an Engine with spec §4.10 defaults.
func NewEngine(library LibrarySource, embedder Embedder, providers []provider.Provider) *Engine {
	return &Engine{
		Library:              library,
		Embedder:             embedder,
		Providers:             providers,
		ProfileSize:          DefaultProfileSize,
		KeywordCount:         DefaultKeywordCount,
		CandidatesPerKeyword: DefaultCandidatesPerKeyword,
		ProviderTimeout:      DefaultProviderTimeout,
		cache:                make(map[string]cacheEntry),
		cacheTTL:             DefaultCacheTTL,
	}
}

// buildProfile computes the L2-normalized mean embedding of the top-M
// quality resources that carry one (spec §4.10 step 1).
func buildProfile(resources []core.Resource, size int) ([]float32, bool) {
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Quality.Overall > resources[j].Quality.Overall
	})

	var withEmbeddings []core.Resource
	for _, r := range resources {
		if len(r.Embedding) > 0 {
			withEmbeddings = append(withEmbeddings, r)
		}
		if len(withEmbeddings) >= size {
			break
		}
	}
	if len(withEmbeddings) < 3 {
		return nil, false
	}

	dim := len(withEmbeddings[0].Embedding)
	sum := make([]float64, dim)
	for _, r := range withEmbeddings {
		for i, v := range r.Embedding {
			if i < dim {
				sum[i] += float64(v)
			}
		}
	}
	n := float64(len(withEmbeddings))
	profile := make([]float32, dim)
	var norm float64
	for i := range sum {
		mean := sum[i] / n
		profile[i] = float32(mean)
		norm += mean * mean
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range profile {
			profile[i] = float32(float64(profile[i]) / norm)
		}
	}
	return profile, true
}

// seedKeywords picks the top-K canonical subjects by usage count,
// weighted by average quality (spec §4.10 step 2).
func seedKeywords(stats []SubjectStat, k int) []string {
	sort.Slice(stats, func(i, j int) bool {
		wi := float64(stats[i].Subject.UsageCount) * stats[i].AverageQuality
		wj := float64(stats[j].Subject.UsageCount) * stats[j].AverageQuality
		return wi > wj
	})
	if len(stats) > k {
		stats = stats[:k]
	}
	keywords := make([]string, 0, len(stats))
	for _, s := range stats {
		keywords = append(keywords, s.Subject.CanonicalForm)
	}
	return keywords
}

// Recommend runs the full spec §4.10 pipeline: profile, seed
// keywords, candidate sourcing (fanned out across keywords
// concurrently with a shared soft timeout), scoring, and ranking.
func (e *Engine) Recommend(ctx context.Context, limit int) (*Response, error) {
	top, err := e.Library.TopResourcesByQuality(ctx, e.profileSize())
	if err != nil {
		return nil, err
	}
	profile, ok := buildProfile(top, e.profileSize())
	if !ok {
		return &Response{Reason: ReasonInsufficientLibrary}, nil
	}

	stats, err := e.Library.SubjectsByUsage(ctx, e.keywordCount()*4)
	if err != nil {
		return nil, err
	}
	keywords := seedKeywords(stats, e.keywordCount())
	if len(keywords) == 0 {
		return &Response{Reason: ReasonInsufficientLibrary}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.ProviderTimeout)
	defer cancel()

	candidatesByKeyword := make([][]Candidate, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			results := e.searchKeyword(gctx, kw)
			cands := make([]Candidate, 0, len(results))
			for _, r := range results {
				cands = append(cands, Candidate{URL: r.URL, Title: r.Title, Snippet: r.Snippet, Keyword: kw})
			}
			candidatesByKeyword[i] = cands
			return nil
		})
	}
	_ = g.Wait() // provider failures are skipped per-keyword, not surfaced as a request error

	seen := make(map[string]*Candidate)
	var order []string
	for _, cands := range candidatesByKeyword {
		for _, c := range cands {
			norm := normalizeURL(c.URL)
			if existing, ok := seen[norm]; ok {
				existing.Keyword = existing.Keyword + "," + c.Keyword
				continue
			}
			cc := c
			seen[norm] = &cc
			order = append(order, norm)
		}
	}

	var recs []Recommendation
	for _, norm := range order {
		c := seen[norm]
		exists, err := e.Library.ResourceExistsByURL(ctx, norm)
		if err != nil || exists {
			continue
		}
		embedding := e.Embedder.Embed(ctx, c.Title+" "+c.Snippet)
		score := cosineSimilarity(embedding, profile)
		recs = append(recs, Recommendation{
			ExternalURL:    c.URL,
			Title:          c.Title,
			Snippet:        c.Snippet,
			RelevanceScore: score,
			Reason:         "matched seed keyword(s): " + c.Keyword,
		})
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].RelevanceScore > recs[j].RelevanceScore })
	if limit <= 0 {
		limit = 10
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return &Response{Items: recs}, nil
}

// searchKeyword queries every configured provider for keyword,
// serving from the in-memory 5-minute cache when available, and
// returns an empty slice (not an error) on provider failure or
// timeout so one bad keyword never aborts the whole request.
func (e *Engine) searchKeyword(ctx context.Context, keyword string) []provider.Result {
	e.cacheMu.Lock()
	if entry, ok := e.cache[keyword]; ok && time.Since(entry.at) < e.cacheTTL {
		e.cacheMu.Unlock()
		return entry.results
	}
	e.cacheMu.Unlock()

	var results []provider.Result
	for _, p := range e.Providers {
		cfg := provider.Config{MaxResults: e.candidatesPerKeyword(), Language: "en"}
		res, err := p.Search(ctx, keyword, cfg)
		if err != nil {
			continue
		}
		results = append(results, res...)
		if len(results) >= e.candidatesPerKeyword() {
			break
		}
	}
	if len(results) > e.candidatesPerKeyword() {
		results = results[:e.candidatesPerKeyword()]
	}

	e.cacheMu.Lock()
	e.cache[keyword] = cacheEntry{results: results, at: time.Now()}
	e.cacheMu.Unlock()
	return results
}

func (e *Engine) profileSize() int {
	if e.ProfileSize <= 0 {
		return DefaultProfileSize
	}
	return e.ProfileSize
}

func (e *Engine) keywordCount() int {
	if e.KeywordCount <= 0 {
		return DefaultKeywordCount
	}
	return e.KeywordCount
}

func (e *Engine) candidatesPerKeyword() int {
	if e.CandidatesPerKeyword <= 0 {
		return DefaultCandidatesPerKeyword
	}
	return e.CandidatesPerKeyword
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
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

func normalizeURL(raw string) string {
	u := strings.TrimSuffix(raw, "/")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.ToLower(u)
}
