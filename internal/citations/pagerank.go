package citations

import (
	"math"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// PageRankDamping and PageRankTolerance match spec §4.7's importance
// scoring (damping 0.85, convergence 1e-6). gonum's PageRank takes a
// tolerance directly; iteration count is bounded implicitly by
// convergence rather than a separate cap, since gonum exposes no
// max-iterations knob.
const (
	PageRankDamping   = 0.85
	PageRankTolerance = 1e-6
)

// Importance computes a PageRank importance_score for every resource
// that participates (as source or resolved target) in resolved,
// building a directed graph edge source→target per resolved citation
// (spec §4.7, reusing the same gonum graph stack the graph engine and
// clustering already depend on).
func Importance(resolved []core.Citation) map[string]float64 {
	g := simple.NewDirectedGraph()
	nodeIDs := make(map[string]int64)
	idToResource := make(map[int64]string)

	nodeID := func(resourceID string) int64 {
		if id, ok := nodeIDs[resourceID]; ok {
			return id
		}
		id := int64(len(nodeIDs))
		nodeIDs[resourceID] = id
		idToResource[id] = resourceID
		g.AddNode(simple.Node(id))
		return id
	}

	for _, c := range resolved {
		if c.TargetResourceID == nil {
			continue
		}
		from := nodeID(c.SourceResourceID)
		to := nodeID(*c.TargetResourceID)
		if from == to {
			continue
		}
		if g.HasEdgeFromTo(from, to) {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	if len(nodeIDs) == 0 {
		return map[string]float64{}
	}

	ranks := network.PageRank(g, PageRankDamping, PageRankTolerance)
	return minMaxScale(ranks, idToResource)
}

// minMaxScale rescales raw PageRank values to [0,1] by min-max (spec
// §4.7): (score-min)/(max-min). When every node scores the same
// (including the single-node case), importance is flat at 1.
func minMaxScale(ranks map[int64]float64, idToResource map[int64]string) map[string]float64 {
	out := make(map[string]float64, len(ranks))
	if len(ranks) == 0 {
		return out
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, score := range ranks {
		if score < min {
			min = score
		}
		if score > max {
			max = score
		}
	}

	spread := max - min
	for id, score := range ranks {
		if spread == 0 {
			out[idToResource[id]] = 1
			continue
		}
		out[idToResource[id]] = (score - min) / spread
	}
	return out
}
