package graph

import (
	"context"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
)

// PersistenceSource implements DataSource over a persistence.Database,
// supplying the resources, citations, and edge overrides a Builder
// needs for a full snapshot rebuild (spec §4.9, §5).
type PersistenceSource struct {
	DB persistence.Database
}

func (s PersistenceSource) AllResources(ctx context.Context) ([]core.Resource, error) {
	return s.DB.Resources().All(ctx)
}

func (s PersistenceSource) AllCitations(ctx context.Context) ([]core.Citation, error) {
	return s.DB.Citations().All(ctx)
}

func (s PersistenceSource) AllEdgeOverrides(ctx context.Context) ([]core.GraphEdgeOverride, error) {
	return s.DB.EdgeOverrides().All(ctx)
}
