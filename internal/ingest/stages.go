package ingest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/apperr"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/citations"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/eventbus"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/quality"
)

// jobState threads data between stages that would otherwise need a
// second network fetch or re-derivation: the raw bytes backing
// citation extraction, and the content-only embedding quality scoring
// compares the composite embedding against.
type jobState struct {
	resource         *core.Resource
	rawBytes         []byte
	contentEmbedding []float32
	outboundCitations []core.Citation
}

// fetchAndExtract is stage 2 (spec §4.4): fetch the source URL,
// extract clean text, and transition status to extracting.
func (ing *Ingestor) fetchAndExtract(ctx context.Context, st *jobState) error {
	r := st.resource
	r.IngestionStatus = core.StatusExtracting
	r.UpdatedAt = time.Now().UTC()
	if err := ing.db.Resources().Update(ctx, r); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to transition resource to extracting", err)
	}

	result, err := ing.extractor.Fetch(r.SourceURL)
	if err != nil {
		return err
	}

	st.rawBytes = result.RawBytes
	r.Format = result.Format
	r.ContentText = result.ExtractedText
	if r.Title == "" {
		r.Title = titleFromText(result.ExtractedText, r.SourceURL)
	}
	return nil
}

// enrich is stage 3: generate summary, embedding, candidate subjects,
// and classification/taxonomy assignment, in the teacher's
// best-effort style — a model-backed step degrading to its fallback
// rather than failing the whole job.
func (ing *Ingestor) enrich(ctx context.Context, st *jobState) error {
	r := st.resource
	r.IngestionStatus = core.StatusEnriching
	r.UpdatedAt = time.Now().UTC()

	r.Summary = ing.ai.Summarize(ctx, r.ContentText)

	candidateTexts := append([]string{}, ing.cfg.CandidateSubjects...)
	candidateTexts = append(candidateTexts, heuristicKeywords(r.ContentText, 8)...)
	r.Subjects = ing.canonicalizeSubjects(ctx, r, candidateTexts)

	r.Embedding = ing.ai.Embed(ctx, r.CompositeText())
	st.contentEmbedding = ing.ai.Embed(ctx, r.ContentText)

	if code := ing.rules.Classify(r); code != "" {
		r.ClassificationCode = code
	}
	if ing.ml != nil {
		r.TaxonomyNodes = ing.ml.Classify(ctx, r)
	}

	if err := ing.db.Resources().Update(ctx, r); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to persist enriched resource", err)
	}
	return nil
}

// canonicalizeSubjects resolves every candidate subject scoring above
// the classification threshold through the authority registry (exact
// match -> variant match -> new) and persists the touched entries
// (spec §4.4 step 3 "Canonicalize subjects via C5.authority").
func (ing *Ingestor) canonicalizeSubjects(ctx context.Context, r *core.Resource, candidates []string) []string {
	scores := ing.ai.ClassifyZeroShot(ctx, r.CompositeText(), candidates)

	seen := map[string]bool{}
	var out []string
	for label, score := range scores {
		if score < 0.3 {
			continue
		}
		subject := ing.subjects.Resolve(label)
		if subject == nil || seen[subject.CanonicalForm] {
			continue
		}
		seen[subject.CanonicalForm] = true
		out = append(out, subject.CanonicalForm)
		if err := ing.db.Subjects().Upsert(ctx, subject); err != nil {
			logger.Get().Warn("ingest: failed to persist subject", "subject", subject.CanonicalForm, "error", err.Error())
		}
	}
	sort.Strings(out)
	return out
}

// extractCitations is stage 4: pull in-text links out of the raw
// fetched bytes and persist them unresolved (spec §4.4 step 4); the
// periodic resolution job fills in target_resource_id later.
func (ing *Ingestor) extractCitations(ctx context.Context, st *jobState) error {
	r := st.resource
	extracted := citations.Extract(r.Format, st.rawBytes)
	if len(extracted) == 0 {
		return nil
	}

	cites := make([]core.Citation, 0, len(extracted))
	for _, e := range extracted {
		cites = append(cites, citations.NewCitation(r.ID, e))
	}
	if err := ing.db.Citations().BulkCreate(ctx, cites); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to persist citations", err)
	}
	st.outboundCitations = cites
	return nil
}

// scoreQuality is stage 5: compute the five quality dimensions and
// quality_overall, flagging needs_review on a low score or a taxonomy
// assignment that itself needed review (spec §4.4 step 5).
func (ing *Ingestor) scoreQuality(ctx context.Context, st *jobState) error {
	r := st.resource

	inbound, err := ing.db.Citations().ByTargetResource(ctx, r.ID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to load inbound citations", err)
	}

	r.Quality = ing.scorer.Score(r, quality.Inputs{
		Citations:            st.outboundCitations,
		ContentEmbedding:     st.contentEmbedding,
		InboundCitationCount: len(inbound),
	})

	if r.Quality.Overall < ing.cfg.QualityReviewTau {
		r.Quality.NeedsReview = true
	}
	for _, t := range r.TaxonomyNodes {
		if t.NeedsReview {
			r.Quality.NeedsReview = true
			break
		}
	}

	if err := ing.db.Resources().Update(ctx, r); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to persist quality score", err)
	}
	return nil
}

// finalize is stage 6: mark the resource ready and emit its lifecycle
// events (spec §4.4 step 6).
func (ing *Ingestor) finalize(ctx context.Context, r *core.Resource) error {
	now := time.Now().UTC()
	r.IngestionStatus = core.StatusReady
	r.IngestedAt = &now
	r.UpdatedAt = now
	if err := ing.db.Resources().Update(ctx, r); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to finalize resource", err)
	}

	ing.bus.Emit(ctx, eventbus.ResourceCreated, r.ID)
	ing.bus.Emit(ctx, eventbus.ResourceReady, r.ID)
	logger.Get().Info("ingest: ready", "resource_id", r.ID, "quality_overall", r.Quality.Overall)
	return nil
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true, "this": true,
	"from": true, "have": true, "are": true, "was": true, "were": true, "will": true,
	"has": true, "not": true, "but": true, "you": true, "your": true, "their": true,
	"its": true, "can": true, "all": true, "about": true, "into": true, "more": true,
	"which": true, "when": true, "also": true, "been": true, "than": true, "they": true,
}

// heuristicKeywords extracts up to n frequent content words (length
// >=5, stopwords excluded) as additional subject candidates alongside
// the fixed seed label set (spec §4.4 step 3 "heuristic keyword
// extraction").
func heuristicKeywords(text string, n int) []string {
	counts := map[string]int{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) < 5 || stopwords[w] {
			continue
		}
		counts[w]++
	}
	type kv struct {
		word  string
		count int
	}
	ordered := make([]kv, 0, len(counts))
	for w, c := range counts {
		ordered = append(ordered, kv{w, c})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].word < ordered[j].word
	})
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	out := make([]string, len(ordered))
	for i, kv := range ordered {
		out[i] = kv.word
	}
	return out
}

// titleFromText derives a fallback title from extracted text's first
// line, or the source URL if the text is empty.
func titleFromText(text, sourceURL string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 200 {
				line = line[:200]
			}
			return line
		}
	}
	return sourceURL
}
