package quality

import (
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// Scorer computes the five-dimension quality vector for a Resource and
// combines it into quality_overall, mirroring the teacher's
// DigestEvaluator's single-entry-point evaluation shape but scoring
// resources instead of digests.
type Scorer struct {
	weights core.QualityWeights
	now     func() time.Time
}

// NewScorer creates a Scorer using weights (falls back to
// core.DefaultQualityWeights when the zero value is passed).
func NewScorer(weights core.QualityWeights) *Scorer {
	if weights == (core.QualityWeights{}) {
		weights = core.DefaultQualityWeights()
	}
	return &Scorer{weights: weights, now: time.Now}
}

// Inputs bundles the side-data a full Score call needs beyond the
// Resource itself: the citation set the resource participates in
// (as source or target) and the content embedding to compare the
// summary embedding against for the consistency dimension.
type Inputs struct {
	Citations            []core.Citation
	ContentEmbedding     []float32
	InboundCitationCount int
}

// Score computes all five dimensions for r and returns the combined
// core.Quality, including quality_overall and the needs_review flag
// spec §4.6's grading carries forward (set when quality_overall is
// below 0.5).
func (s *Scorer) Score(r *core.Resource, in Inputs) core.Quality {
	q := core.Quality{
		Accuracy:     Accuracy(r, in.Citations),
		Completeness: Completeness(r),
		Consistency:  Consistency(r, r.Embedding, in.ContentEmbedding),
		Timeliness:   Timeliness(r, s.now()),
		Relevance:    Relevance(r, in.InboundCitationCount),
	}
	q.Overall = q.ComputeOverall(s.weights)
	q.NeedsReview = q.Overall < 0.5
	return q
}
