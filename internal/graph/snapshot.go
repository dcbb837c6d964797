// Package graph implements the multi-layer weighted knowledge graph
// (spec §4.9): an immutable adjacency snapshot rebuilt from primary
// data, 1-hop/2-hop neighbor queries, global overview, open/closed
// literature-based discovery, and validation-feedback weight deltas.
package graph

import (
	"math"
	"sort"
	"strings"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// LayerWeights controls how multiple edge types fuse into a single
// neighbor weight (spec §4.9, default vector 0.6 / subject 0.3 /
// classification+citation 0.1).
type LayerWeights struct {
	Vector         float64
	Subject        float64
	Classification float64
}

// DefaultLayerWeights matches spec §6 defaults.
func DefaultLayerWeights() LayerWeights {
	return LayerWeights{Vector: 0.6, Subject: 0.3, Classification: 0.1}
}

// forType maps an edge type to its fusion layer weight. Co-authorship
// and temporal edges share the citation/classification bucket: the
// spec's layer-weight table (§4.9) only names vector, subject, and a
// combined "classification/citation" weight, so every edge type
// outside the vector/subject layers falls into that third bucket.
func (w LayerWeights) forType(t core.EdgeType) float64 {
	switch t {
	case core.EdgeContentSimilarity:
		return w.Vector
	case core.EdgeSubjectSimilarity:
		return w.Subject
	default:
		return w.Classification
	}
}

// Snapshot is the immutable adjacency view the graph engine serves
// reads from. It is rebuilt wholesale and swapped behind an
// atomic.Pointer (see Store), never mutated in place.
type Snapshot struct {
	resources map[string]*core.Resource
	adjacency map[string][]core.GraphEdge // source -> outgoing edges (both directions inserted)
	weights   LayerWeights
}

type overrideKey struct {
	source, target string
	edgeType        core.EdgeType
}

// Builder assembles a Snapshot from primary data: resources, resolved
// citations, and subject/co-authorship/temporal/content-similarity
// edges derived in-process (spec §3's per-type weight formulas).
type Builder struct {
	Weights                 LayerWeights
	ContentSimThreshold     float64
	SubjectJaccardThreshold float64
	TemporalWindowYears     int
}

// NewBuilder creates a Builder with spec §3/§6 defaults.
func NewBuilder() *Builder {
	return &Builder{
		Weights:                 DefaultLayerWeights(),
		ContentSimThreshold:     0.85,
		SubjectJaccardThreshold: 0.3,
		TemporalWindowYears:     1,
	}
}

// Build computes a full Snapshot from resources and resolved
// citations, deriving subject_similarity, co_authorship, temporal, and
// content_similarity edges per spec §3's weight formulas, then
// applying any persisted validation-feedback deltas on top.
func (b *Builder) Build(resources []core.Resource, citations []core.Citation, overrides []core.GraphEdgeOverride) *Snapshot {
	s := &Snapshot{
		resources: make(map[string]*core.Resource, len(resources)),
		adjacency: make(map[string][]core.GraphEdge),
		weights:   b.Weights,
	}
	for i := range resources {
		r := resources[i]
		s.resources[r.ID] = &r
	}

	overrideIndex := make(map[overrideKey]float64, len(overrides))
	for _, o := range overrides {
		overrideIndex[overrideKey{o.SourceID, o.TargetID, o.Type}] = o.Delta
	}
	addEdge := func(sourceID, targetID string, t core.EdgeType, weight float64) {
		delta, ok := overrideIndex[overrideKey{sourceID, targetID, t}]
		if !ok {
			delta, ok = overrideIndex[overrideKey{targetID, sourceID, t}]
		}
		if ok && delta != 0 {
			weight = math.Min(1.0, weight*delta)
		}
		s.adjacency[sourceID] = append(s.adjacency[sourceID], core.GraphEdge{SourceID: sourceID, TargetID: targetID, Type: t, Weight: weight})
		s.adjacency[targetID] = append(s.adjacency[targetID], core.GraphEdge{SourceID: targetID, TargetID: sourceID, Type: t, Weight: weight})
	}

	// citation → 1.0 (spec §3 weight formula table).
	for _, c := range citations {
		if c.TargetResourceID == nil {
			continue
		}
		addEdge(c.SourceResourceID, *c.TargetResourceID, core.EdgeCitation, 1.0)
	}

	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)

	for i := 0; i < len(ids); i++ {
		a := s.resources[ids[i]]
		for j := i + 1; j < len(ids); j++ {
			c := s.resources[ids[j]]

			if sim := cosineSimilarity(a.Embedding, c.Embedding); sim >= b.ContentSimThreshold {
				addEdge(a.ID, c.ID, core.EdgeContentSimilarity, sim)
			}
			if jac := subjectJaccard(a.Subjects, c.Subjects); jac >= b.SubjectJaccardThreshold {
				addEdge(a.ID, c.ID, core.EdgeSubjectSimilarity, 0.5)
			}
			if shared := sharedAuthorCount(a.Creators, c.Creators); shared > 0 {
				addEdge(a.ID, c.ID, core.EdgeCoAuthorship, 1.0/float64(shared))
			}
			if withinTemporalWindow(a.PublicationYear, c.PublicationYear, b.TemporalWindowYears) {
				addEdge(a.ID, c.ID, core.EdgeTemporal, 0.3)
			}
		}
	}

	return s
}

// Resource looks up a node's Resource by ID.
func (s *Snapshot) Resource(id string) (*core.Resource, bool) {
	r, ok := s.resources[id]
	return r, ok
}

// Edges returns the raw outgoing edges for id.
func (s *Snapshot) Edges(id string) []core.GraphEdge {
	return s.adjacency[id]
}

// Degree returns the number of distinct neighbors id has (used by
// novelty scoring, spec §4.9).
func (s *Snapshot) Degree(id string) int {
	seen := make(map[string]bool)
	for _, e := range s.adjacency[id] {
		seen[e.TargetID] = true
	}
	return len(seen)
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

func subjectJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)
	var intersection int
	union := make(map[string]bool, len(setA)+len(setB))
	for k := range setA {
		union[k] = true
	}
	for k := range setB {
		union[k] = true
	}
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

func sharedAuthorCount(a, b []string) int {
	setB := toSet(b)
	count := 0
	for _, name := range a {
		if setB[strings.ToLower(name)] {
			count++
		}
	}
	return count
}

func withinTemporalWindow(a, b *int, windowYears int) bool {
	if a == nil || b == nil {
		return false
	}
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	return diff <= windowYears
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[strings.ToLower(s)] = true
	}
	return set
}
