// Package ingest orchestrates the per-resource background job that
// takes a submitted URL from status=pending through to status=ready
// (spec §4.4): normalize & dedupe, fetch & extract, enrich, extract
// citations, score quality, and finalize. Its stage-orchestration
// shape — a Config/DefaultConfig pair, a constructor wiring every
// collaborator, and a single top-level run method reporting progress
// step by step — follows the teacher's internal/pipeline.Pipeline.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/aiadapter"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/apperr"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/authority"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/classify"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/eventbus"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/fetch"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/quality"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/scheduler"
)

// JobType identifies ingestion jobs to the scheduler's per-type retry
// policy registry.
const JobType = "ingest.resource"

// Config bundles the tunables the ingestion pipeline needs beyond its
// collaborators' own defaults.
type Config struct {
	FetchTimeout      time.Duration
	QualityReviewTau  float64
	CandidateSubjects []string
}

// DefaultConfig matches spec §4.2-§4.6 defaults.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:     15 * time.Second,
		QualityReviewTau: 0.5,
		CandidateSubjects: []string{
			"machine learning", "software engineering", "distributed systems",
			"databases", "security", "mathematics", "biology", "physics",
			"economics", "history", "philosophy",
		},
	}
}

// Ingestor drives a submitted URL through every ingestion stage. It
// holds no per-job state; a single Ingestor is reused across
// concurrent jobs the way the teacher's Pipeline is reused across
// digest runs.
type Ingestor struct {
	cfg Config

	db        persistence.Database
	extractor *fetch.Extractor
	ai        *aiadapter.Adapter
	subjects  *authority.Registry
	rules     *classify.RuleClassifier
	ml        *classify.MLClassifier
	scorer    *quality.Scorer
	bus       *eventbus.Bus
	sched     *scheduler.Scheduler
}

// SetMLClassifier wires an optional ML-backed taxonomy classifier
// (spec §4.5 "ML if available else rule-based"). Without one, the
// rule classifier alone assigns classification_code.
func (ing *Ingestor) SetMLClassifier(ml *classify.MLClassifier) { ing.ml = ml }

// New creates an Ingestor wiring every collaborator used by stage
// functions in stages.go. subjects should be seeded from persisted
// authority entries at startup (see cmd/neo-alexandria).
func New(cfg Config, db persistence.Database, ai *aiadapter.Adapter, subjects *authority.Registry, rules *classify.RuleClassifier, scorer *quality.Scorer, bus *eventbus.Bus, sched *scheduler.Scheduler) *Ingestor {
	if cfg.FetchTimeout <= 0 {
		cfg = DefaultConfig()
	}
	sched.SetPolicy(JobType, scheduler.DefaultRetryPolicy())
	return &Ingestor{
		cfg:       cfg,
		db:        db,
		extractor: fetch.New(cfg.FetchTimeout),
		ai:        ai,
		subjects:  subjects,
		rules:     rules,
		scorer:    scorer,
		bus:       bus,
		sched:     sched,
	}
}

// Submit performs stage 1 (normalize & dedupe) synchronously and
// returns the resource id immediately; an existing resource at the
// same canonical URL is returned as-is (idempotent ingestion). A new
// resource is persisted with status=pending and its remaining stages
// are handed to the scheduler to run in the background.
func (ing *Ingestor) Submit(ctx context.Context, rawURL string) (string, error) {
	canonicalURL := NormalizeSourceURL(rawURL)
	if canonicalURL == "" {
		return "", apperr.New(apperr.ValidationError, "empty or unparseable URL")
	}

	existing, err := ing.db.Resources().GetByURL(ctx, canonicalURL)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", apperr.Wrap(apperr.Internal, "failed to check for existing resource", err)
	}

	now := time.Now().UTC()
	r := &core.Resource{
		ID:              uuid.NewString(),
		SourceURL:       canonicalURL,
		IngestionStatus: core.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := ing.db.Resources().Create(ctx, r); err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to create pending resource", err)
	}

	ing.sched.Submit(context.WithoutCancel(ctx), JobType, func(jobCtx context.Context) error {
		return ing.run(jobCtx, r.ID)
	})

	return r.ID, nil
}

// run executes stages 2-6 against the resource named by id. A
// transient failure returns an error so the scheduler retries the
// whole job with backoff; a permanent failure marks the resource
// failed and returns nil so the scheduler does not retry it further
// (spec §4.4 "permanent errors ... fail fast").
func (ing *Ingestor) run(ctx context.Context, id string) error {
	log := logger.Get()
	r, err := ing.db.Resources().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading resource %s: %w", id, err)
	}

	log.Info("ingest: starting", "resource_id", id, "source_url", r.SourceURL)
	st := &jobState{resource: r}

	if err := withRetry(ctx, DefaultRetryPolicy(), func() error { return ing.fetchAndExtract(ctx, st) }); err != nil {
		return ing.fail(ctx, st.resource, err)
	}

	if err := withRetry(ctx, DefaultRetryPolicy(), func() error { return ing.enrich(ctx, st) }); err != nil {
		return ing.fail(ctx, st.resource, err)
	}

	if err := withRetry(ctx, DefaultRetryPolicy(), func() error { return ing.extractCitations(ctx, st) }); err != nil {
		return ing.fail(ctx, st.resource, err)
	}

	if err := withRetry(ctx, DefaultRetryPolicy(), func() error { return ing.scoreQuality(ctx, st) }); err != nil {
		return ing.fail(ctx, st.resource, err)
	}

	return ing.finalize(ctx, st.resource)
}

// fail handles a stage error. For a permanent failure it marks r
// failed with reason's message, persists it, emits
// resource.ingest_failed, and returns nil so the scheduler does not
// retry. A transient one that exhausted its stage-local retry budget
// is returned unchanged, leaving r's status as it was, so the whole
// job gets one more round of backoff at the job-type level.
func (ing *Ingestor) fail(ctx context.Context, r *core.Resource, reason error) error {
	if !isPermanent(reason) {
		return reason
	}
	r.IngestionStatus = core.StatusFailed
	r.IngestionError = reason.Error()
	r.UpdatedAt = time.Now().UTC()
	if err := ing.db.Resources().Update(ctx, r); err != nil {
		logger.Get().Error("ingest: failed to persist failure state", err, "resource_id", r.ID)
	}
	ing.bus.Emit(ctx, eventbus.ResourceIngestFailed, r.ID)
	return nil
}
