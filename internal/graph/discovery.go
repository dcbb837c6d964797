package graph

import (
	"sort"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// DefaultMinPlausibility is the open-discovery acceptance floor
// (spec §4.9).
const DefaultMinPlausibility = 0.5

// hopPenalty maps closed-discovery path length to its weight
// multiplier (spec §4.9: length 2 ×1.0, length 3 ×0.5, length 4 ×0.25).
var hopPenalty = map[int]float64{2: 1.0, 3: 0.5, 4: 0.25}

// OpenHypothesis is a candidate literature-based-discovery result:
// a plausible but unconnected resource C reached from A via one or
// more bridging resources B (spec §4.9 "Open discovery").
type OpenHypothesis struct {
	AResourceID       string
	CResourceID       string
	Bridges           []string
	PathStrength      float64
	CommonNeighbors   int
	SemanticSimilarity float64
	Plausibility      float64
}

func directNeighborIDs(s *Snapshot, id string) map[string]bool {
	set := make(map[string]bool)
	for _, e := range s.Edges(id) {
		set[e.TargetID] = true
	}
	return set
}

// OpenDiscovery implements spec §4.9's open LBD: starting from A,
// collects 1-hop bridges B, then B's 1-hop neighbors C (excluding A
// and anything already directly connected to A), scores plausibility,
// and returns the top limit candidates at or above minPlausibility.
func (s *Snapshot) OpenDiscovery(aID string, minPlausibility float64, limit int) []OpenHypothesis {
	if minPlausibility <= 0 {
		minPlausibility = DefaultMinPlausibility
	}
	if limit <= 0 {
		limit = 10
	}

	aNeighbors := directNeighborIDs(s, aID)
	candidates := make(map[string]*OpenHypothesis)

	for bID := range aNeighbors {
		bEdgesToA := s.edgesBetween(aID, bID)
		abStrength, _ := fusedWeight(bEdgesToA, s.weights, nil)

		for _, e := range s.Edges(bID) {
			cID := e.TargetID
			if cID == aID || aNeighbors[cID] {
				continue
			}
			bcEdges := s.edgesBetween(bID, cID)
			bcStrength, _ := fusedWeight(bcEdges, s.weights, nil)
			pathStrength := abStrength * bcStrength

			h, ok := candidates[cID]
			if !ok {
				h = &OpenHypothesis{AResourceID: aID, CResourceID: cID}
				candidates[cID] = h
			}
			if pathStrength > h.PathStrength {
				h.PathStrength = pathStrength
			}
			h.Bridges = appendUnique(h.Bridges, bID)
		}
	}

	cNeighborsCache := make(map[string]map[string]bool)
	var aResource *core.Resource
	if r, ok := s.Resource(aID); ok {
		aResource = r
	}

	out := make([]OpenHypothesis, 0, len(candidates))
	for cID, h := range candidates {
		cNeighbors, ok := cNeighborsCache[cID]
		if !ok {
			cNeighbors = directNeighborIDs(s, cID)
			cNeighborsCache[cID] = cNeighbors
		}
		common := 0
		for n := range aNeighbors {
			if cNeighbors[n] {
				common++
			}
		}
		h.CommonNeighbors = common

		sim := 0.0
		if aResource != nil {
			if cResource, ok := s.Resource(cID); ok {
				sim = cosineSimilarity(aResource.Embedding, cResource.Embedding)
			}
		}
		h.SemanticSimilarity = sim

		commonScore := float64(common) / 5.0
		if commonScore > 1 {
			commonScore = 1
		}
		h.Plausibility = 0.4*h.PathStrength + 0.3*commonScore + 0.3*sim

		if h.Plausibility >= minPlausibility {
			out = append(out, *h)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Plausibility != out[j].Plausibility {
			return out[i].Plausibility > out[j].Plausibility
		}
		return out[i].CResourceID < out[j].CResourceID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ClosedPath is one ranked result of closed-discovery path
// enumeration between two named resources (spec §4.9).
type ClosedPath struct {
	Nodes        []string
	Bridges      []string
	Plausibility float64
}

// ClosedDiscovery enumerates simple paths of length 2-4 between A and
// C, scoring each by its product of edge fused weights times the
// length's hop penalty, deduplicated by bridge set, and returns the
// top-ranked paths (spec §4.9 "Closed discovery").
func (s *Snapshot) ClosedDiscovery(aID, cID string, limit int) []ClosedPath {
	if limit <= 0 {
		limit = 10
	}

	var found []ClosedPath
	seenBridgeSets := make(map[string]bool)

	var walk func(current string, path []string, strength float64, visited map[string]bool)
	walk = func(current string, path []string, strength float64, visited map[string]bool) {
		if len(path) > 4 {
			return
		}
		for _, e := range s.Edges(current) {
			next := e.TargetID
			if visited[next] {
				continue
			}
			nextPath := append(append([]string{}, path...), next)
			alpha := s.weights.forType(e.Type)
			nextStrength := strength * e.Weight * alpha

			if next == cID && len(nextPath) >= 2 {
				length := len(nextPath)
				penalty, ok := hopPenalty[length]
				if ok {
					bridges := nextPath[:length-1]
					key := bridgeKey(bridges)
					if !seenBridgeSets[key] {
						seenBridgeSets[key] = true
						found = append(found, ClosedPath{
							Nodes:        append([]string{aID}, nextPath...),
							Bridges:      bridges,
							Plausibility: nextStrength * penalty,
						})
					}
				}
			}

			if len(nextPath) < 4 {
				nextVisited := make(map[string]bool, len(visited)+1)
				for k := range visited {
					nextVisited[k] = true
				}
				nextVisited[next] = true
				walk(next, nextPath, nextStrength, nextVisited)
			}
		}
	}

	walk(aID, nil, 1.0, map[string]bool{aID: true})

	sort.Slice(found, func(i, j int) bool {
		if found[i].Plausibility != found[j].Plausibility {
			return found[i].Plausibility > found[j].Plausibility
		}
		return bridgeKey(found[i].Bridges) < bridgeKey(found[j].Bridges)
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found
}

func (s *Snapshot) edgesBetween(a, b string) []core.GraphEdge {
	var out []core.GraphEdge
	for _, e := range s.Edges(a) {
		if e.TargetID == b {
			out = append(out, e)
		}
	}
	return out
}

func appendUnique(items []string, item string) []string {
	for _, x := range items {
		if x == item {
			return items
		}
	}
	return append(items, item)
}

func bridgeKey(bridges []string) string {
	sorted := append([]string{}, bridges...)
	sort.Strings(sorted)
	key := ""
	for _, b := range sorted {
		key += b + ","
	}
	return key
}
