// Package quality scores resources along five dimensions (spec §4.6):
// accuracy, completeness, consistency, timeliness, relevance, combined
// into quality_overall by a configurable weight vector. It also runs
// outlier detection across the five-dimension vector space and flags
// resources whose score has degraded against a rolling mean.
package quality

import (
	"math"
	"strings"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// domainReputation maps a TLD or known scholarly host to a reputation
// score in [0,1] (spec §4.6 Accuracy dimension (b)).
var domainReputation = map[string]float64{
	".edu":      1.0,
	".gov":      1.0,
	"arxiv.org": 1.0,
}

const defaultDomainReputation = 0.3

// domainReputationFor looks up a host's reputation score, falling back
// to the generic default for anything not in the table.
func domainReputationFor(sourceURL string) float64 {
	host := strings.ToLower(sourceURL)
	for domain, score := range domainReputation {
		if strings.Contains(host, domain) {
			return score
		}
	}
	return defaultDomainReputation
}

// Accuracy implements spec §4.6's weighted combination of resolved
// citation ratio, domain reputation, and presence of scholarly
// identifiers.
func Accuracy(r *core.Resource, citations []core.Citation) float64 {
	var resolvedRatio float64
	var total int
	for _, c := range citations {
		if c.SourceResourceID != r.ID {
			continue
		}
		total++
		if c.TargetResourceID != nil {
			resolvedRatio++
		}
	}
	if total > 0 {
		resolvedRatio /= float64(total)
	}

	reputation := domainReputationFor(r.SourceURL)

	hasIdentifier := 0.0
	if r.Scholarly != nil && (r.Scholarly.DOI != "" || r.Scholarly.ArxivID != "") {
		hasIdentifier = 1.0
	}

	return clamp01((resolvedRatio + reputation + hasIdentifier) / 3)
}

// Completeness implements spec §4.6's populated-field weighting.
func Completeness(r *core.Resource) float64 {
	type field struct {
		present bool
		weight  float64
	}
	fields := []field{
		{r.Title != "", 1.0},
		{r.ContentText != "", 1.0},
		{r.Summary != "", 0.5},
		{len(r.Subjects) > 0, 0.4},
		{len(r.Creators) > 0, 0.3},
		{r.PublicationYear != nil, 0.2},
		{r.Scholarly != nil && r.Scholarly.DOI != "", 0.1},
	}

	var earned, total float64
	for _, f := range fields {
		total += f.weight
		if f.present {
			earned += f.weight
		}
	}
	if total == 0 {
		return 0
	}
	return clamp01(earned / total)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "or": true,
	"to": true, "in": true, "on": true, "for": true, "with": true, "is": true,
	"are": true, "at": true, "by": true, "from": true,
}

func tokenizeForJaccard(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if w == "" || stopwords[w] {
			continue
		}
		tokens[w] = true
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var intersection, union int
	seen := make(map[string]bool, len(a)+len(b))
	for w := range a {
		seen[w] = true
	}
	for w := range b {
		seen[w] = true
	}
	union = len(seen)
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
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

// Consistency implements spec §4.6's title/content token overlap plus
// summary/content embedding similarity, averaged over whichever signals
// are available.
func Consistency(r *core.Resource, summaryEmbedding, contentEmbedding []float32) float64 {
	titleTokens := tokenizeForJaccard(r.Title)
	contentTokens := tokenizeForJaccard(r.ContentText)
	overlap := jaccard(titleTokens, contentTokens)

	if len(summaryEmbedding) == 0 || len(contentEmbedding) == 0 {
		return clamp01(overlap)
	}

	sim := cosineSimilarity(summaryEmbedding, contentEmbedding)
	return clamp01((overlap + sim) / 2)
}

const timelinessDefault = 0.5
const recencyBonusWindowDays = 180

// Timeliness implements spec §4.6's publication-year decay plus a
// recency-of-ingest bonus that decays over 180 days.
func Timeliness(r *core.Resource, now time.Time) float64 {
	var base float64
	if r.PublicationYear != nil {
		age := float64(now.Year() - *r.PublicationYear)
		base = math.Max(0, 1-age/20)
	} else {
		base = timelinessDefault
	}

	var bonus float64
	if r.IngestedAt != nil {
		daysSinceIngest := now.Sub(*r.IngestedAt).Hours() / 24
		if daysSinceIngest < 0 {
			daysSinceIngest = 0
		}
		bonus = math.Max(0, 1-daysSinceIngest/recencyBonusWindowDays) * 0.1
	}

	return clamp01(base + bonus)
}

// Relevance implements spec §4.6's classification-confidence ×
// log-scaled inbound-citation-count, normalized into [0,1].
func Relevance(r *core.Resource, inboundCitationCount int) float64 {
	var confidence float64
	for _, t := range r.TaxonomyNodes {
		if t.Confidence > confidence {
			confidence = t.Confidence
		}
	}
	if confidence == 0 && r.ClassificationCode != "" {
		confidence = 1.0
	}

	citationSignal := math.Log1p(float64(inboundCitationCount))
	normalized := citationSignal / (citationSignal + 1)

	return clamp01(confidence * (0.5 + 0.5*normalized))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
