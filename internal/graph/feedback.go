package graph

import (
	"math"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// ValidBoost and InvalidPenalty are the multiplicative factors
// applied to a path's edge weights on curator validation feedback
// (spec §4.9 "Validation feedback").
const (
	ValidBoost     = 1.10
	InvalidPenalty = 0.95
)

// ApplyValidation folds curator feedback on a hypothesis's primary
// path into a set of persisted per-edge overrides: valid hypotheses
// boost every edge along the path by 1.10 (clamped so the resulting
// weight never exceeds 1.0), invalid ones decay by 0.95. Overrides
// are multiplicative deltas layered on top of whatever the prior
// delta already was, so repeated feedback compounds and survives
// snapshot recomputation.
func ApplyValidation(s *Snapshot, existing []core.GraphEdgeOverride, path []core.GraphEdge, valid bool) []core.GraphEdgeOverride {
	index := make(map[overrideKey]*core.GraphEdgeOverride, len(existing))
	out := make([]core.GraphEdgeOverride, len(existing))
	copy(out, existing)
	for i := range out {
		o := &out[i]
		index[overrideKey{o.SourceID, o.TargetID, o.Type}] = o
	}

	factor := InvalidPenalty
	if valid {
		factor = ValidBoost
	}

	for _, e := range path {
		key := overrideKey{e.SourceID, e.TargetID, e.Type}
		if o, ok := index[key]; ok {
			// e.Weight already carries o.Delta; clamp against the
			// underlying weight so a repeated boost never lowers it.
			base := e.Weight
			if o.Delta > 0 {
				base = e.Weight / o.Delta
			}
			o.Delta = clampDelta(o.Delta*factor, base)
			continue
		}
		newOverride := core.GraphEdgeOverride{
			SourceID: e.SourceID,
			TargetID: e.TargetID,
			Type:     e.Type,
			Delta:    clampDelta(1.0*factor, e.Weight),
		}
		out = append(out, newOverride)
		index[key] = &out[len(out)-1]
	}
	return out
}

// clampDelta keeps a delta from pushing the resulting edge weight
// above 1.0; it does not floor invalid deltas since decay toward zero
// is the intended behavior for repeatedly-invalidated hypotheses.
func clampDelta(delta, baseWeight float64) float64 {
	if baseWeight <= 0 {
		return delta
	}
	if maxDelta := 1.0 / baseWeight; delta > maxDelta {
		return maxDelta
	}
	return math.Max(delta, 0)
}

// PrimaryPath extracts the edges of a discovery hypothesis's primary
// path from a snapshot, used to drive ApplyValidation. For an open
// hypothesis this is A->B (best bridge) and B->C; for a closed
// hypothesis it is every consecutive edge along the stored path.
func PrimaryPath(s *Snapshot, h core.DiscoveryHypothesis) []core.GraphEdge {
	nodes := append([]string{h.AResourceID}, h.BResourceIDs...)
	nodes = append(nodes, h.CResourceID)

	var path []core.GraphEdge
	for i := 0; i+1 < len(nodes); i++ {
		edges := s.edgesBetween(nodes[i], nodes[i+1])
		if len(edges) == 0 {
			continue
		}
		best := edges[0]
		for _, e := range edges[1:] {
			if e.Weight > best.Weight {
				best = e
			}
		}
		path = append(path, best)
	}
	return path
}
