// Package maintenance wires the periodic background jobs (spec §4.11
// "Periodic tasks") — citation resolution, PageRank recompute, outlier
// detection, and degradation scanning — into scheduler.PeriodicTask
// runs against the persistence layer. It holds no algorithms of its
// own; every scoring function comes from internal/citations and
// internal/quality.
package maintenance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/citations"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/quality"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/scheduler"
)

// ResourceLookupAdapter implements citations.ResourceLookup over a
// persistence.Database.
type ResourceLookupAdapter struct {
	DB persistence.Database
}

func (a ResourceLookupAdapter) FindBySourceURL(ctx context.Context, normalizedURL string) (*core.Resource, bool, error) {
	r, err := a.DB.Resources().GetByURL(ctx, normalizedURL)
	if err != nil {
		return nil, false, nil
	}
	return r, true, nil
}

// ResolveCitations is the body of the CitationResolutionInterval task
// (spec §4.7, §4.11): fill in target_resource_id for every unresolved
// citation whose target_url now matches a resource in the library.
func ResolveCitations(db persistence.Database) scheduler.JobFunc {
	return func(ctx context.Context) error {
		unresolved, err := db.Citations().Unresolved(ctx, 500)
		if err != nil {
			return err
		}
		if len(unresolved) == 0 {
			return nil
		}
		resolved, err := citations.Resolve(ctx, ResourceLookupAdapter{DB: db}, unresolved)
		if err != nil {
			return err
		}
		for _, c := range resolved {
			if c.TargetResourceID == nil {
				continue
			}
			if err := db.Citations().ResolveTarget(ctx, c.ID, *c.TargetResourceID); err != nil {
				return err
			}
		}
		logger.Info("maintenance: citation resolution complete", "resolved", len(resolved))
		return nil
	}
}

// RecomputeImportance is the body of the PageRankRecomputeInterval task
// (spec §4.7, §4.11): recompute importance_score for every resource
// that participates in a resolved citation.
func RecomputeImportance(db persistence.Database) scheduler.JobFunc {
	return func(ctx context.Context) error {
		all, err := db.Citations().All(ctx)
		if err != nil {
			return err
		}
		scores := citations.Importance(all)
		for _, c := range all {
			if c.TargetResourceID == nil {
				continue
			}
			if score, ok := scores[*c.TargetResourceID]; ok {
				if err := db.Citations().UpdateImportance(ctx, c.ID, score); err != nil {
					return err
				}
			}
		}
		logger.Info("maintenance: importance recompute complete", "citations", len(all), "ranked_resources", len(scores))
		return nil
	}
}

// DetectOutliers is the body of the OutlierDetectionInterval task (spec
// §4.6, §4.11): flag the top fraction of the library by anomaly score
// as needs_review.
func DetectOutliers(db persistence.Database) scheduler.JobFunc {
	return func(ctx context.Context) error {
		all, err := db.Resources().All(ctx)
		if err != nil {
			return err
		}
		outliers := quality.DetectOutliers(all, quality.DefaultOutlierFraction)
		byID := make(map[string]core.Resource, len(all))
		for _, r := range all {
			byID[r.ID] = r
		}
		for _, o := range outliers {
			r, ok := byID[o.ResourceID]
			if !ok || r.Quality.NeedsReview {
				continue
			}
			r.Quality.NeedsReview = true
			if err := db.Resources().Update(ctx, &r); err != nil {
				return err
			}
		}
		logger.Info("maintenance: outlier detection complete", "flagged", len(outliers))
		return nil
	}
}

// ScanDegradation is the body of the DegradationScanInterval task (spec
// §4.6, §4.11): compare each resource's current quality_overall
// against its rolling 30-day mean, then persist a fresh snapshot.
func ScanDegradation(db persistence.Database) scheduler.JobFunc {
	return func(ctx context.Context) error {
		all, err := db.Resources().All(ctx)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		cutoff := now.Add(-quality.RollingWindow)
		degraded := 0
		for _, r := range all {
			history, err := db.QualitySnapshots().Recent(ctx, r.ID, cutoff)
			if err != nil {
				return err
			}
			snapshots := make([]quality.Snapshot, len(history))
			for i, h := range history {
				snapshots[i] = quality.Snapshot{ResourceID: h.ResourceID, Overall: h.Overall, TakenAt: h.TakenAt}
			}
			if quality.IsDegraded(r.Quality.Overall, snapshots, now) {
				degraded++
				logger.Warn("maintenance: resource quality degraded", "resource_id", r.ID, "overall", r.Quality.Overall)
			}
			snapshot := &core.QualitySnapshot{
				ID:         uuid.NewString(),
				ResourceID: r.ID,
				Overall:    r.Quality.Overall,
				TakenAt:    now,
			}
			if err := db.QualitySnapshots().Create(ctx, snapshot); err != nil {
				return err
			}
		}
		logger.Info("maintenance: degradation scan complete", "resources", len(all), "degraded", degraded)
		return nil
	}
}

// StartAll registers and launches the four periodic tasks on sched.
func StartAll(ctx context.Context, sched *scheduler.Scheduler, db persistence.Database) {
	sched.StartPeriodic(ctx, scheduler.PeriodicTask{
		Name:     "maintenance.resolve_citations",
		Interval: scheduler.CitationResolutionInterval,
		Run:      ResolveCitations(db),
	})
	sched.StartPeriodic(ctx, scheduler.PeriodicTask{
		Name:     "maintenance.recompute_importance",
		Interval: scheduler.PageRankRecomputeInterval,
		Run:      RecomputeImportance(db),
	})
	sched.StartPeriodic(ctx, scheduler.PeriodicTask{
		Name:     "maintenance.detect_outliers",
		Interval: scheduler.OutlierDetectionInterval,
		Run:      DetectOutliers(db),
	})
	sched.StartPeriodic(ctx, scheduler.PeriodicTask{
		Name:     "maintenance.scan_degradation",
		Interval: scheduler.DegradationScanInterval,
		Run:      ScanDegradation(db),
	})
}
