// Package search implements hybrid retrieval (spec §4.8): a lexical
// full-text branch and a semantic embedding branch fanned out
// concurrently, fused by either weighted-linear combination or
// Reciprocal Rank Fusion, with optional re-ranking and facet counts.
package search

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// FusionMode selects how lexical and semantic branch scores combine
// (spec §4.8 step 4).
type FusionMode string

const (
	FusionWeightedLinear FusionMode = "weighted_linear"
	FusionRRF            FusionMode = "rrf"
)

// RRFConstant is the k in `Σ 1/(k + rank_branch)` (spec §4.8, k=60).
const RRFConstant = 60

// Defaults match spec §4.8.
const (
	DefaultLexicalK  = 200
	DefaultSemanticK = 200
	DefaultHybridW   = 0.5
	DefaultRerankN   = 100
	DefaultTimeout   = 2 * time.Second
	MaxLimit         = 100
)

// Filters restricts the candidate set after retrieval (spec §4.8
// step 2).
type Filters struct {
	Language       string
	YearMin        *int
	YearMax        *int
	Classification string
	SubjectsAny    []string
	SubjectsAll    []string
	QualityMin     *float64
	QualityMax     *float64
}

// Query is a single hybrid search request.
type Query struct {
	Text         string
	Filters      Filters
	Limit        int
	Offset       int
	HybridWeight float64
	Fusion       FusionMode
	Rerank       bool
}

// Candidate is a branch's raw hit before fusion.
type Candidate struct {
	ResourceID string
	Score      float64
	Snippet    string
}

// LexicalSearcher runs the FTS branch (spec §4.8 step 1 "Lexical").
type LexicalSearcher interface {
	SearchLexical(ctx context.Context, query string, k int) ([]Candidate, error)
}

// SemanticSearcher runs the k-NN embedding branch (spec §4.8 step 1
// "Semantic").
type SemanticSearcher interface {
	SearchSemantic(ctx context.Context, embedding []float32, k int) ([]Candidate, error)
}

// Embedder computes the query embedding for the semantic branch.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// ResourceLookup resolves full resources for filter application and
// tie-breaking.
type ResourceLookup interface {
	GetResources(ctx context.Context, ids []string) (map[string]*core.Resource, error)
}

// CrossEncoder re-scores the top N query/document pairs (spec §4.8
// step 5).
type CrossEncoder interface {
	Score(ctx context.Context, query string, resource *core.Resource) float64
}

// Result is one item of a search response (spec §4.8 step 7).
type Result struct {
	ResourceID     string
	FusedScore     float64
	LexicalScore   float64
	SemanticScore  float64
	MatchedSnippet string
}

// Response is the full hybrid search result: the page of results plus
// optional facet counts over the pre-pagination candidate set.
type Response struct {
	Results []Result
	Facets  map[string]map[string]int
}

// Engine wires the two retrieval branches, fusion, optional
// re-ranking, and facet counting into a single Search operation.
type Engine struct {
	Lexical  LexicalSearcher
	Semantic SemanticSearcher
	Embedder Embedder
	Lookup   ResourceLookup
	Reranker CrossEncoder
}

// Search runs the full hybrid pipeline for q.
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	if q.Limit <= 0 || q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	hybridWeight := q.HybridWeight
	if hybridWeight == 0 && q.Fusion == "" {
		hybridWeight = DefaultHybridW
	}
	fusion := q.Fusion
	if fusion == "" {
		fusion = FusionWeightedLinear
	}

	var lexHits, semHits []Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if e.Lexical == nil {
			return nil
		}
		hits, err := e.Lexical.SearchLexical(gctx, q.Text, DefaultLexicalK)
		if err != nil {
			return err
		}
		lexHits = hits
		return nil
	})
	g.Go(func() error {
		if e.Semantic == nil || e.Embedder == nil {
			return nil
		}
		vec := e.Embedder.Embed(gctx, q.Text)
		hits, err := e.Semantic.SearchSemantic(gctx, vec, DefaultSemanticK)
		if err != nil {
			return err
		}
		semHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lexNorm := minMaxNormalize(lexHits)
	semNorm := minMaxNormalize(semHits)
	lexRank := rankIndex(lexHits)
	semRank := rankIndex(semHits)

	ids := unionIDs(lexHits, semHits)
	resources, err := e.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	ids = applyFilters(ids, resources, q.Filters)

	snippets := make(map[string]string, len(lexHits)+len(semHits))
	for _, c := range lexHits {
		snippets[c.ResourceID] = c.Snippet
	}
	for _, c := range semHits {
		if snippets[c.ResourceID] == "" {
			snippets[c.ResourceID] = c.Snippet
		}
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		lex := lexNorm[id]
		sem := semNorm[id]
		var fused float64
		if fusion == FusionRRF {
			fused = rrfScore(lexRank[id], semRank[id])
		} else {
			fused = (1-hybridWeight)*lex + hybridWeight*sem
		}
		results = append(results, Result{
			ResourceID: id, FusedScore: fused, LexicalScore: lex, SemanticScore: sem,
			MatchedSnippet: snippets[id],
		})
	}

	sortResults(results, resources)

	facets := computeFacets(ids, resources)

	if q.Rerank && e.Reranker != nil {
		results = rerank(ctx, e.Reranker, q.Text, results, resources)
	}

	start := q.Offset
	if start > len(results) {
		start = len(results)
	}
	end := start + q.Limit
	if end > len(results) {
		end = len(results)
	}

	return &Response{Results: results[start:end], Facets: facets}, nil
}

func (e *Engine) lookup(ctx context.Context, ids []string) (map[string]*core.Resource, error) {
	if e.Lookup == nil || len(ids) == 0 {
		return map[string]*core.Resource{}, nil
	}
	return e.Lookup.GetResources(ctx, ids)
}

func unionIDs(branches ...[]Candidate) []string {
	seen := make(map[string]bool)
	var out []string
	for _, branch := range branches {
		for _, c := range branch {
			if !seen[c.ResourceID] {
				seen[c.ResourceID] = true
				out = append(out, c.ResourceID)
			}
		}
	}
	return out
}

func minMaxNormalize(candidates []Candidate) map[string]float64 {
	out := make(map[string]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}
	minScore, maxScore := candidates[0].Score, candidates[0].Score
	for _, c := range candidates {
		if c.Score < minScore {
			minScore = c.Score
		}
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	span := maxScore - minScore
	for _, c := range candidates {
		if span == 0 {
			out[c.ResourceID] = 1
			continue
		}
		out[c.ResourceID] = (c.Score - minScore) / span
	}
	return out
}

func rankIndex(candidates []Candidate) map[string]int {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	out := make(map[string]int, len(sorted))
	for i, c := range sorted {
		out[c.ResourceID] = i + 1
	}
	return out
}

func rrfScore(lexRank, semRank int) float64 {
	var score float64
	if lexRank > 0 {
		score += 1.0 / float64(RRFConstant+lexRank)
	}
	if semRank > 0 {
		score += 1.0 / float64(RRFConstant+semRank)
	}
	return score
}

func applyFilters(ids []string, resources map[string]*core.Resource, f Filters) []string {
	var out []string
	for _, id := range ids {
		r, ok := resources[id]
		if !ok {
			out = append(out, id)
			continue
		}
		if f.Language != "" && r.Language != f.Language {
			continue
		}
		if f.Classification != "" && r.ClassificationCode != f.Classification {
			continue
		}
		if f.YearMin != nil && (r.PublicationYear == nil || *r.PublicationYear < *f.YearMin) {
			continue
		}
		if f.YearMax != nil && (r.PublicationYear == nil || *r.PublicationYear > *f.YearMax) {
			continue
		}
		if f.QualityMin != nil && r.Quality.Overall < *f.QualityMin {
			continue
		}
		if f.QualityMax != nil && r.Quality.Overall > *f.QualityMax {
			continue
		}
		if len(f.SubjectsAny) > 0 && !hasAny(r.Subjects, f.SubjectsAny) {
			continue
		}
		if len(f.SubjectsAll) > 0 && !hasAll(r.Subjects, f.SubjectsAll) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func hasAny(haystack, needles []string) bool {
	set := toSet(haystack)
	for _, n := range needles {
		if set[n] {
			return true
		}
	}
	return false
}

func hasAll(haystack, needles []string) bool {
	set := toSet(haystack)
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

// sortResults applies spec §4.8's tie-break order: higher fused_score,
// then higher quality_overall, then newer ingested_at, then id
// lexicographic.
func sortResults(results []Result, resources map[string]*core.Resource) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		ra, rb := resources[a.ResourceID], resources[b.ResourceID]
		if ra != nil && rb != nil {
			if ra.Quality.Overall != rb.Quality.Overall {
				return ra.Quality.Overall > rb.Quality.Overall
			}
			aIngested := timeOrZero(ra.IngestedAt)
			bIngested := timeOrZero(rb.IngestedAt)
			if !aIngested.Equal(bIngested) {
				return aIngested.After(bIngested)
			}
		}
		return a.ResourceID < b.ResourceID
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// topNSubjects bounds the subjects facet bucket (spec §4.8 step 6).
const topNSubjects = 10

func computeFacets(ids []string, resources map[string]*core.Resource) map[string]map[string]int {
	facets := map[string]map[string]int{
		"language":       {},
		"classification": {},
		"year_bucket":    {},
	}
	subjectCounts := map[string]int{}
	for _, id := range ids {
		r, ok := resources[id]
		if !ok {
			continue
		}
		if r.Language != "" {
			facets["language"][r.Language]++
		}
		if r.ClassificationCode != "" {
			facets["classification"][r.ClassificationCode]++
		}
		if r.PublicationYear != nil {
			facets["year_bucket"][yearBucket(*r.PublicationYear)]++
		}
		for _, s := range r.Subjects {
			subjectCounts[s]++
		}
	}
	facets["subjects"] = topSubjects(subjectCounts, topNSubjects)
	return facets
}

// topSubjects keeps the n most frequent subjects, breaking ties
// alphabetically so the bucket is deterministic.
func topSubjects(counts map[string]int, n int) map[string]int {
	type entry struct {
		subject string
		count   int
	}
	entries := make([]entry, 0, len(counts))
	for s, c := range counts {
		entries = append(entries, entry{s, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].subject < entries[j].subject
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.subject] = e.count
	}
	return out
}

func yearBucket(year int) string {
	decade := (year / 10) * 10
	return itoa(decade) + "s"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func rerank(ctx context.Context, reranker CrossEncoder, query string, results []Result, resources map[string]*core.Resource) []Result {
	n := DefaultRerankN
	if n > len(results) {
		n = len(results)
	}
	rctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	top := results[:n]
	rest := results[n:]
	for i := range top {
		select {
		case <-rctx.Done():
			return append(top, rest...)
		default:
		}
		r, ok := resources[top[i].ResourceID]
		if !ok {
			continue
		}
		top[i].FusedScore = reranker.Score(rctx, query, r)
	}
	sort.Slice(top, func(i, j int) bool { return top[i].FusedScore > top[j].FusedScore })
	return append(top, rest...)
}
