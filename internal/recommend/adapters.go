package recommend

import (
	"context"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/aiadapter"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
)

// PersistenceLibrary implements LibrarySource over a
// persistence.Database, pairing each frequently-used subject with the
// average quality of the resources that carry it (spec §4.10 step 2).
type PersistenceLibrary struct {
	DB persistence.Database
}

func (l PersistenceLibrary) TopResourcesByQuality(ctx context.Context, limit int) ([]core.Resource, error) {
	return l.DB.Resources().TopByQuality(ctx, limit)
}

func (l PersistenceLibrary) SubjectsByUsage(ctx context.Context, limit int) ([]SubjectStat, error) {
	subjects, err := l.DB.Subjects().TopByUsage(ctx, limit)
	if err != nil {
		return nil, err
	}
	stats := make([]SubjectStat, len(subjects))
	for i, s := range subjects {
		avg, err := l.DB.Subjects().AverageQualityFor(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		stats[i] = SubjectStat{Subject: s, AverageQuality: avg}
	}
	return stats, nil
}

// ResourceExistsByURL checks for a resource at normalizedURL, which
// arrives pre-normalized by this package's own normalizeURL rather
// than internal/ingest's canonical form, so this is a best-effort
// duplicate check rather than an exact key match against source_url.
func (l PersistenceLibrary) ResourceExistsByURL(ctx context.Context, normalizedURL string) (bool, error) {
	_, err := l.DB.Resources().GetByURL(ctx, normalizedURL)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// EmbedderAdapter implements Embedder over an aiadapter.Adapter.
type EmbedderAdapter struct {
	AI *aiadapter.Adapter
}

func (a EmbedderAdapter) Embed(ctx context.Context, text string) []float32 {
	return a.AI.Embed(ctx, text)
}
