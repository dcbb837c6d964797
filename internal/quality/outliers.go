package quality

import (
	"math"
	"sort"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// vector projects a Quality into the five-dimension point the anomaly
// scorer operates over.
func vector(q core.Quality) [5]float64 {
	return [5]float64{q.Accuracy, q.Completeness, q.Consistency, q.Timeliness, q.Relevance}
}

// OutlierResult flags a resource as an anomaly within its population,
// carrying the reason tag spec §4.6 requires.
type OutlierResult struct {
	ResourceID string
	Score      float64
	Reason     string
}

// DefaultOutlierFraction is the top-k% of the population flagged for
// review (spec §4.6 "default 5%").
const DefaultOutlierFraction = 0.05

// DetectOutliers computes an Isolation-Forest-equivalent anomaly score
// for every resource's five-dimension quality vector and flags the top
// fraction (population size permitting) as outliers.
//
// The pack carries no isolation-forest implementation, so this uses a
// per-dimension z-score magnitude as the anomaly signal (same
// distance-from-population-center idea the teacher's silhouette
// scoring applies to cluster cohesion, generalized from cluster
// membership to the full population's mean/stddev per dimension). A
// point's anomaly score is the Euclidean norm of its per-dimension
// z-scores; higher means more anomalous.
func DetectOutliers(resources []core.Resource, fraction float64) []OutlierResult {
	if fraction <= 0 {
		fraction = DefaultOutlierFraction
	}
	n := len(resources)
	if n == 0 {
		return nil
	}

	var means, stddevs [5]float64
	for _, r := range resources {
		v := vector(r.Quality)
		for i := 0; i < 5; i++ {
			means[i] += v[i]
		}
	}
	for i := 0; i < 5; i++ {
		means[i] /= float64(n)
	}
	for _, r := range resources {
		v := vector(r.Quality)
		for i := 0; i < 5; i++ {
			d := v[i] - means[i]
			stddevs[i] += d * d
		}
	}
	for i := 0; i < 5; i++ {
		stddevs[i] = math.Sqrt(stddevs[i] / float64(n))
	}

	results := make([]OutlierResult, n)
	dimNames := [5]string{"accuracy", "completeness", "consistency", "timeliness", "relevance"}
	for idx, r := range resources {
		v := vector(r.Quality)
		var sumSq float64
		worstDim := ""
		worstZ := 0.0
		for i := 0; i < 5; i++ {
			if stddevs[i] == 0 {
				continue
			}
			z := (v[i] - means[i]) / stddevs[i]
			sumSq += z * z
			if math.Abs(z) > math.Abs(worstZ) {
				worstZ = z
				worstDim = dimNames[i]
			}
		}
		reason := "within normal range"
		if worstDim != "" {
			if worstZ < 0 {
				reason = worstDim + " far below population mean"
			} else {
				reason = worstDim + " far above population mean"
			}
		}
		results[idx] = OutlierResult{ResourceID: r.ID, Score: math.Sqrt(sumSq), Reason: reason}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	k := int(math.Ceil(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return results[:k]
}
