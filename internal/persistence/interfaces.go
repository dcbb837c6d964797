// Package persistence provides database abstraction interfaces for
// storing resources, subjects, taxonomy nodes, citations, discovery
// hypotheses, and graph edge overrides (spec §3, §6 "Storage").
package persistence

import (
	"context"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// ListOptions bounds a paginated listing query.
type ListOptions struct {
	Limit  int
	Offset int
}

// ResourceFilter narrows a resource listing by the structured facets
// hybrid search and graph rebuilds need (spec §4.8 "Filters").
type ResourceFilter struct {
	Language           string
	ClassificationCode string
	IngestionStatus    core.IngestionStatus
}

// ResourceRepository persists the atomic unit of knowledge (spec §3
// "Resource").
type ResourceRepository interface {
	Create(ctx context.Context, r *core.Resource) error
	Get(ctx context.Context, id string) (*core.Resource, error)
	GetByURL(ctx context.Context, sourceURL string) (*core.Resource, error)
	List(ctx context.Context, opts ListOptions, filter ResourceFilter) ([]core.Resource, error)
	GetMany(ctx context.Context, ids []string) (map[string]*core.Resource, error)
	Update(ctx context.Context, r *core.Resource) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]core.Resource, error)

	// TopByQuality returns the highest quality_overall resources that
	// carry an embedding (spec §4.10 step 1).
	TopByQuality(ctx context.Context, limit int) ([]core.Resource, error)

	// UpdatedSince supports degradation scans and periodic graph
	// rebuilds (spec §4.11).
	UpdatedSince(ctx context.Context, since time.Time) ([]core.Resource, error)

	// SearchFTS runs the lexical branch of hybrid search (spec §4.8
	// step 1 "Lexical"), returning resource ids already ranked by the
	// backend's relevance function (FTS5 bm25 on SQLite, ts_rank on
	// Postgres) — callers should not re-sort the result.
	SearchFTS(ctx context.Context, query string, limit int) ([]string, error)
}

// SubjectRepository persists canonical topic labels (spec §3
// "Subject (Authority)").
type SubjectRepository interface {
	Upsert(ctx context.Context, s *core.Subject) error
	GetByCanonicalForm(ctx context.Context, form string) (*core.Subject, error)
	FindByVariant(ctx context.Context, variant string) (*core.Subject, error)
	TopByUsage(ctx context.Context, limit int) ([]core.Subject, error)

	// AverageQualityFor returns the mean quality_overall of resources
	// carrying subjectID, used to weight recommendation seed keywords
	// (spec §4.10 step 2).
	AverageQualityFor(ctx context.Context, subjectID string) (float64, error)
}

// TaxonomyRepository persists the hierarchical classification tree
// (spec §4.5).
type TaxonomyRepository interface {
	Upsert(ctx context.Context, n *core.TaxonomyNode) error
	Get(ctx context.Context, id string) (*core.TaxonomyNode, error)
	Children(ctx context.Context, parentID string) ([]core.TaxonomyNode, error)
	All(ctx context.Context) ([]core.TaxonomyNode, error)
}

// CitationRepository persists resolved and unresolved citation edges
// (spec §3 "Citation", §4.7).
type CitationRepository interface {
	Create(ctx context.Context, c *core.Citation) error
	BulkCreate(ctx context.Context, cs []core.Citation) error
	ByResource(ctx context.Context, sourceResourceID string) ([]core.Citation, error)
	ByTargetResource(ctx context.Context, targetResourceID string) ([]core.Citation, error)
	Unresolved(ctx context.Context, limit int) ([]core.Citation, error)
	UpdateImportance(ctx context.Context, id string, score float64) error
	ResolveTarget(ctx context.Context, id string, targetResourceID string) error
	All(ctx context.Context) ([]core.Citation, error)
}

// HypothesisRepository persists literature-based-discovery results
// and curator validation state (spec §3 "DiscoveryHypothesis", §4.9).
type HypothesisRepository interface {
	Create(ctx context.Context, h *core.DiscoveryHypothesis) error
	Get(ctx context.Context, id string) (*core.DiscoveryHypothesis, error)
	ByResource(ctx context.Context, resourceID string, hType core.HypothesisType) ([]core.DiscoveryHypothesis, error)
	SetValidation(ctx context.Context, id string, state core.ValidationState, notes string) error
}

// GraphEdgeOverrideRepository persists the multiplicative weight
// deltas produced by hypothesis validation feedback (spec §4.9
// "Validation feedback").
type GraphEdgeOverrideRepository interface {
	Upsert(ctx context.Context, o *core.GraphEdgeOverride) error
	All(ctx context.Context) ([]core.GraphEdgeOverride, error)
}

// QualitySnapshotRepository persists periodic quality_overall readings
// used by the degradation scan (spec §4.6 "Degradation", §4.11).
type QualitySnapshotRepository interface {
	Create(ctx context.Context, s *core.QualitySnapshot) error
	Recent(ctx context.Context, resourceID string, since time.Time) ([]core.QualitySnapshot, error)
}

// Database is the top-level storage handle: a Postgres/pgvector
// backend or an embedded SQLite backend, selected by the scheme of
// database.url (spec §6).
type Database interface {
	Resources() ResourceRepository
	Subjects() SubjectRepository
	Taxonomy() TaxonomyRepository
	Citations() CitationRepository
	Hypotheses() HypothesisRepository
	EdgeOverrides() GraphEdgeOverrideRepository
	QualitySnapshots() QualitySnapshotRepository

	Ping(ctx context.Context) error
	Close() error
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction scopes a set of repository operations to a single
// database transaction (spec §5 "per-resource transactions").
type Transaction interface {
	Commit() error
	Rollback() error
	Resources() ResourceRepository
	Citations() CitationRepository
}
