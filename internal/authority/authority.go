// Package authority implements subject canonicalization (spec §4.5
// "Authority subject normalization"): trim, collapse whitespace,
// case-fold, apply a synonym table, title-case for display, and merge
// into an existing canonical subject when one already exists.
package authority

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// synonyms maps a case-folded alias to its canonical case-folded form.
// A small built-in table; callers needing a larger table can layer one
// on top via Registry.AddSynonym.
var synonyms = map[string]string{
	"ml":  "machine learning",
	"ai":  "artificial intelligence",
	"nlp": "natural language processing",
	"cv":  "computer vision",
	"llm": "large language model",
	"llms": "large language models",
	"db":  "database",
}

// Normalize reduces a raw subject string to its case-folded canonical
// key: trim, collapse internal whitespace, lowercase, then resolve
// through the synonym table. The same result for equivalent inputs is
// the guarantee spec §4.5 calls out.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	collapsed := whitespaceRun.ReplaceAllString(trimmed, " ")
	folded := strings.ToLower(collapsed)
	if canonical, ok := synonyms[folded]; ok {
		return canonical
	}
	return folded
}

// TitleCase renders a normalized (lowercase) canonical key for
// display, e.g. "machine learning" → "Machine Learning".
func TitleCase(normalized string) string {
	words := strings.Fields(normalized)
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Registry resolves raw subject strings to core.Subject records,
// creating new ones or updating usage_count/variants on existing ones.
// It holds no persistence concerns itself; callers wire a repository
// for durability (see internal/persistence).
type Registry struct {
	byCanonical map[string]*core.Subject
}

// NewRegistry creates an empty Registry, optionally seeded from
// previously persisted subjects.
func NewRegistry(existing []core.Subject) *Registry {
	r := &Registry{byCanonical: make(map[string]*core.Subject)}
	for i := range existing {
		s := existing[i]
		r.byCanonical[Normalize(s.CanonicalForm)] = &s
	}
	return r
}

// AddSynonym extends the built-in synonym table with an additional
// alias → canonical mapping (both compared case-folded).
func AddSynonym(alias, canonical string) {
	synonyms[strings.ToLower(strings.TrimSpace(alias))] = strings.ToLower(strings.TrimSpace(canonical))
}

// Resolve normalizes raw, finds or creates the matching Subject,
// updates its usage_count, and records raw as a new variant if it
// wasn't seen before. It returns the resolved Subject, or nil when raw
// normalizes to an empty key.
func (r *Registry) Resolve(raw string) *core.Subject {
	key := Normalize(raw)
	if key == "" {
		return nil
	}

	if existing, ok := r.byCanonical[key]; ok {
		existing.UsageCount++
		if !containsFold(existing.Variants, raw) {
			existing.Variants = append(existing.Variants, raw)
		}
		return existing
	}

	subject := &core.Subject{
		ID:            uuid.NewString(),
		CanonicalForm: TitleCase(key),
		Variants:      []string{raw},
		UsageCount:    1,
	}
	r.byCanonical[key] = subject
	return subject
}

// All returns every Subject currently known to the registry.
func (r *Registry) All() []core.Subject {
	out := make([]core.Subject, 0, len(r.byCanonical))
	for _, s := range r.byCanonical {
		out = append(out, *s)
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
