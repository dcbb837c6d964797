package graph

import (
	"math"
	"sort"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// DefaultFanOutCap bounds how many 1-hop intermediates a 2-hop query
// expands through (spec §4.9).
const DefaultFanOutCap = 64

// NeighborQuery parameterizes a 1-hop/2-hop neighbor request.
type NeighborQuery struct {
	ResourceID string
	Hops       int // 1 or 2
	EdgeTypes  []core.EdgeType
	MinWeight  float64
	Limit      int
	FanOutCap  int
}

// PathStep names one hop of a multi-hop neighbor path.
type PathStep struct {
	ResourceID string
	EdgeType   core.EdgeType
	Weight     float64
}

// Neighbor is a ranked result of a neighbor query, carrying the
// path that produced it and its component scores (spec §4.9).
type Neighbor struct {
	ResourceID    string
	Path          []PathStep
	PathStrength  float64
	QualityScore  float64
	NoveltyScore  float64
	CompositeRank float64
}

// fusedWeight combines multiple edges to the same neighbor via
// fused = 1 - Π(1 - w_t·α_t) (spec §4.9).
func fusedWeight(edges []core.GraphEdge, weights LayerWeights, allowed map[core.EdgeType]bool) (float64, []PathStep) {
	product := 1.0
	var steps []PathStep
	for _, e := range edges {
		if allowed != nil && !allowed[e.Type] {
			continue
		}
		alpha := weights.forType(e.Type)
		product *= 1 - e.Weight*alpha
		steps = append(steps, PathStep{ResourceID: e.TargetID, EdgeType: e.Type, Weight: e.Weight})
	}
	return 1 - product, steps
}

func novelty(degree int) float64 {
	return 1 / (1 + math.Log(1+float64(degree)))
}

func edgeTypeSet(types []core.EdgeType) map[core.EdgeType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[core.EdgeType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// Neighbors answers a 1-hop or 2-hop neighbor query against the
// snapshot, ranking results by the composite formula from spec §4.9.
func (s *Snapshot) Neighbors(q NeighborQuery) []Neighbor {
	allowed := edgeTypeSet(q.EdgeTypes)
	fanOutCap := q.FanOutCap
	if fanOutCap <= 0 {
		fanOutCap = DefaultFanOutCap
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	byTarget := make(map[string][]core.GraphEdge)
	for _, e := range s.Edges(q.ResourceID) {
		byTarget[e.TargetID] = append(byTarget[e.TargetID], e)
	}

	results := make(map[string]*Neighbor)
	for target, edges := range byTarget {
		fused, path := fusedWeight(edges, s.weights, allowed)
		if fused < q.MinWeight {
			continue
		}
		results[target] = &Neighbor{ResourceID: target, Path: path, PathStrength: fused}
	}

	if q.Hops >= 2 {
		visited := make(map[string]bool, len(results)+1)
		visited[q.ResourceID] = true
		for id := range results {
			visited[id] = true
		}

		oneHopIDs := make([]string, 0, len(results))
		for id := range results {
			oneHopIDs = append(oneHopIDs, id)
		}
		sort.Strings(oneHopIDs)
		if len(oneHopIDs) > fanOutCap {
			oneHopIDs = oneHopIDs[:fanOutCap]
		}

		for _, m := range oneHopIDs {
			mEdges := make(map[string][]core.GraphEdge)
			for _, e := range s.Edges(m) {
				mEdges[e.TargetID] = append(mEdges[e.TargetID], e)
			}
			for target, edges := range mEdges {
				if visited[target] {
					continue
				}
				fused2, path2 := fusedWeight(edges, s.weights, allowed)
				if fused2 < q.MinWeight {
					continue
				}
				oneHop := results[m]
				combinedStrength := oneHop.PathStrength * fused2
				fullPath := append(append([]PathStep{}, oneHop.Path...), path2...)
				if existing, ok := results[target]; !ok || combinedStrength > existing.PathStrength {
					results[target] = &Neighbor{ResourceID: target, Path: fullPath, PathStrength: combinedStrength}
				}
			}
		}
	}

	out := make([]Neighbor, 0, len(results))
	for _, n := range results {
		quality := 0.0
		if r, ok := s.Resource(n.ResourceID); ok {
			quality = r.Quality.Overall
		}
		nov := novelty(s.Degree(n.ResourceID))
		n.QualityScore = quality
		n.NoveltyScore = nov
		n.CompositeRank = 0.5*n.PathStrength + 0.3*quality + 0.2*nov
		out = append(out, *n)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CompositeRank != out[j].CompositeRank {
			return out[i].CompositeRank > out[j].CompositeRank
		}
		return out[i].ResourceID < out[j].ResourceID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// OverviewEdge is one row of the global graph overview.
type OverviewEdge struct {
	SourceID    string
	TargetID    string
	Type        core.EdgeType
	Weight      float64
	FusedWeight float64
}

// Overview returns the top limitEdges edges across content_similarity,
// subject_similarity, and citation layers, sorted by fused weight
// (spec §4.9 "Global overview").
func (s *Snapshot) Overview(limitEdges int) []OverviewEdge {
	if limitEdges <= 0 {
		limitEdges = 50
	}
	seen := make(map[string]bool)
	var out []OverviewEdge
	for sourceID, edges := range s.adjacency {
		for _, e := range edges {
			if e.Type != core.EdgeContentSimilarity && e.Type != core.EdgeSubjectSimilarity && e.Type != core.EdgeCitation {
				continue
			}
			key := edgeKey(e)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, OverviewEdge{
				SourceID:    sourceID,
				TargetID:    e.TargetID,
				Type:        e.Type,
				Weight:      e.Weight,
				FusedWeight: e.Weight * s.weights.forType(e.Type),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedWeight != out[j].FusedWeight {
			return out[i].FusedWeight > out[j].FusedWeight
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	if len(out) > limitEdges {
		out = out[:limitEdges]
	}
	return out
}

func edgeKey(e core.GraphEdge) string {
	a, b := e.SourceID, e.TargetID
	if b < a {
		a, b = b, a
	}
	return a + "|" + b + "|" + string(e.Type)
}
