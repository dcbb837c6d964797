// Package classify implements the two classification paths of spec
// §4.5: a UDC-inspired rule-based keyword classifier and an optional
// multi-label ML classifier layered on the AI adapter's
// ClassifyZeroShot operation.
package classify

import (
	"context"
	"strings"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// KeywordPattern is a single (keyword, weight) rule contributing to a
// code's score.
type KeywordPattern struct {
	Keyword string
	Weight  float64
}

// Code is a UDC-inspired flat classification code with its ordered
// keyword-weight patterns.
type Code struct {
	Code     string
	Label    string
	Patterns []KeywordPattern
}

// DefaultTau is the minimum score a code must reach to be emitted
// (spec §4.5 "τ_rule default 1.0").
const DefaultTau = 1.0

// DefaultCodes is a small UDC-inspired seed table covering the
// computing/software branch spec §4.5 cites as an example.
func DefaultCodes() []Code {
	return []Code{
		{Code: "004", Label: "Computing", Patterns: []KeywordPattern{
			{Keyword: "computer", Weight: 0.6},
			{Keyword: "computing", Weight: 0.6},
			{Keyword: "hardware", Weight: 0.4},
			{Keyword: "algorithm", Weight: 0.5},
		}},
		{Code: "005", Label: "Software", Patterns: []KeywordPattern{
			{Keyword: "software", Weight: 0.7},
			{Keyword: "programming", Weight: 0.6},
			{Keyword: "code", Weight: 0.3},
			{Keyword: "source code", Weight: 0.5},
		}},
		{Code: "006", Label: "Artificial Intelligence", Patterns: []KeywordPattern{
			{Keyword: "machine learning", Weight: 0.8},
			{Keyword: "neural network", Weight: 0.7},
			{Keyword: "artificial intelligence", Weight: 0.8},
			{Keyword: "deep learning", Weight: 0.7},
		}},
	}
}

// RuleClassifier scores codes by summed keyword weight over a
// resource's title+subjects+summary text.
type RuleClassifier struct {
	Codes []Code
	Tau   float64
}

// NewRuleClassifier creates a RuleClassifier with DefaultCodes and
// DefaultTau unless overridden.
func NewRuleClassifier(codes []Code, tau float64) *RuleClassifier {
	if len(codes) == 0 {
		codes = DefaultCodes()
	}
	if tau <= 0 {
		tau = DefaultTau
	}
	return &RuleClassifier{Codes: codes, Tau: tau}
}

// Classify scores r's composite text against every code and returns
// the top-scoring code's Code string if it clears Tau, or "" if none
// does (spec §4.5 "emit top code if its score > τ_rule; else null").
func (c *RuleClassifier) Classify(r *core.Resource) string {
	text := strings.ToLower(strings.Join([]string{r.Title, strings.Join(r.Subjects, " "), r.Summary}, " "))

	bestCode := ""
	var bestScore float64
	for _, code := range c.Codes {
		var score float64
		for _, p := range code.Patterns {
			if strings.Contains(text, strings.ToLower(p.Keyword)) {
				score += p.Weight
			}
		}
		if score > bestScore {
			bestScore = score
			bestCode = code.Code
		}
	}
	if bestScore > c.Tau {
		return bestCode
	}
	return ""
}

// Embedder is the subset of the AI adapter the ML classifier needs.
type Embedder interface {
	ClassifyZeroShot(ctx context.Context, text string, candidateLabels []string) map[string]float64
}

// MLClassifier wraps the AI adapter's zero-shot classification over a
// fixed taxonomy, applying the confidence thresholds of spec §4.5.
type MLClassifier struct {
	embedder Embedder
	taxonomy []core.TaxonomyNode
}

// NewMLClassifier creates an MLClassifier scoring against taxonomy's
// node names as candidate labels.
func NewMLClassifier(embedder Embedder, taxonomy []core.TaxonomyNode) *MLClassifier {
	return &MLClassifier{embedder: embedder, taxonomy: taxonomy}
}

// Classify returns per-node assignments for r's composite text,
// filtering confidences below 0.3, marking 0.3-0.7 as needing review,
// and keeping >=0.7 as confident (spec §4.5 "ML classifier").
func (c *MLClassifier) Classify(ctx context.Context, r *core.Resource) []core.TaxonomyAssignment {
	if len(c.taxonomy) == 0 {
		return nil
	}
	labels := make([]string, len(c.taxonomy))
	byLabel := make(map[string]core.TaxonomyNode, len(c.taxonomy))
	for i, n := range c.taxonomy {
		labels[i] = n.Name
		byLabel[n.Name] = n
	}

	scores := c.embedder.ClassifyZeroShot(ctx, r.CompositeText(), labels)

	var out []core.TaxonomyAssignment
	for label, score := range scores {
		if score < 0.3 {
			continue
		}
		node, ok := byLabel[label]
		if !ok {
			continue
		}
		out = append(out, core.TaxonomyAssignment{
			TaxonomyNodeID: node.ID,
			Confidence:     score,
			NeedsReview:    score < 0.7,
		})
	}
	return out
}
