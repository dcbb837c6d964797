// Package core defines the domain model shared across every component of
// the retrieval and graph-intelligence engine: resources, authority
// subjects, taxonomy nodes, citations, graph edges, and discovery
// hypotheses.
package core

import "time"

// Format identifies the detected content format of a Resource.
type Format string

const (
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// IngestionStatus is the lifecycle state of a Resource as it moves
// through the ingestion pipeline (see internal/ingest).
type IngestionStatus string

const (
	StatusPending    IngestionStatus = "pending"
	StatusExtracting IngestionStatus = "extracting"
	StatusEnriching  IngestionStatus = "enriching"
	StatusReady      IngestionStatus = "ready"
	StatusFailed     IngestionStatus = "failed"
)

// QualityWeights controls how the five quality dimensions combine into
// quality_overall. Defaults match spec §3.
type QualityWeights struct {
	Accuracy     float64
	Completeness float64
	Consistency  float64
	Timeliness   float64
	Relevance    float64
}

// DefaultQualityWeights returns the spec-documented default weighting.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Accuracy:     0.30,
		Completeness: 0.25,
		Consistency:  0.20,
		Timeliness:   0.15,
		Relevance:    0.10,
	}
}

// Quality holds the five scored dimensions plus the derived overall
// score for a Resource.
type Quality struct {
	Accuracy     float64 `json:"accuracy"`
	Completeness float64 `json:"completeness"`
	Consistency  float64 `json:"consistency"`
	Timeliness   float64 `json:"timeliness"`
	Relevance    float64 `json:"relevance"`
	Overall      float64 `json:"overall"`
	NeedsReview  bool    `json:"needs_review"`
}

// ComputeOverall computes the weighted sum for a Quality given weights. Callers
// that mutate dimensions should call this to keep Overall consistent
// (testable property #3 in spec §8).
func (q Quality) ComputeOverall(w QualityWeights) float64 {
	return q.Accuracy*w.Accuracy +
		q.Completeness*w.Completeness +
		q.Consistency*w.Consistency +
		q.Timeliness*w.Timeliness +
		q.Relevance*w.Relevance
}

// ScholarlyMetadata captures optional academic identifiers and metrics.
type ScholarlyMetadata struct {
	DOI                   string   `json:"doi,omitempty"`
	ArxivID               string   `json:"arxiv_id,omitempty"`
	Journal               string   `json:"journal,omitempty"`
	PublicationYear       *int     `json:"publication_year,omitempty"`
	Authors               []string `json:"authors,omitempty"`
	EquationCount         int      `json:"equation_count,omitempty"`
	TableCount            int      `json:"table_count,omitempty"`
	MetadataCompleteness  float64  `json:"metadata_completeness,omitempty"`
}

// TaxonomyAssignment records a single (resource, taxonomy node) edge with
// its confidence, per spec §4.5.
type TaxonomyAssignment struct {
	TaxonomyNodeID string  `json:"taxonomy_node_id"`
	Confidence     float64 `json:"confidence"`
	NeedsReview    bool    `json:"needs_review"`
}

// Resource is the atomic unit of knowledge in Neo Alexandria (spec §3).
type Resource struct {
	ID          string `json:"id"`
	SourceURL   string `json:"source_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ContentText string `json:"content_text,omitempty"`
	Summary     string `json:"summary"`
	Format      Format `json:"format"`
	Language    string `json:"language"`

	Subjects        []string `json:"subjects"`
	Creators        []string `json:"creators"`
	PublicationYear *int     `json:"publication_year,omitempty"`

	Embedding       []float32          `json:"embedding,omitempty"`
	SparseEmbedding map[string]float64 `json:"sparse_embedding,omitempty"`

	ClassificationCode string                `json:"classification_code,omitempty"`
	TaxonomyNodes      []TaxonomyAssignment  `json:"taxonomy_nodes,omitempty"`

	Quality Quality `json:"quality"`

	IngestionStatus IngestionStatus `json:"ingestion_status"`
	IngestionError  string          `json:"ingestion_error,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`

	Scholarly *ScholarlyMetadata `json:"scholarly,omitempty"`
}

// HasEmbedding reports whether the resource carries a dense vector.
func (r *Resource) HasEmbedding() bool { return len(r.Embedding) > 0 }

// ReadyInvariantHolds checks testable property #2: ready resources must
// carry either an embedding or non-empty content text.
func (r *Resource) ReadyInvariantHolds() bool {
	if r.IngestionStatus != StatusReady {
		return true
	}
	return r.HasEmbedding() || r.ContentText != ""
}

// CompositeText is the text fed to the embedding model: title, a
// separator, description, a separator, and the joined subject list
// (spec §4.3 / GLOSSARY "Composite text").
func (r *Resource) CompositeText() string {
	subjects := ""
	for i, s := range r.Subjects {
		if i > 0 {
			subjects += ", "
		}
		subjects += s
	}
	return r.Title + " · " + r.Description + " · " + subjects
}
