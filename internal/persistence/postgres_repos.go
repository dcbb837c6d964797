package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

const resourceColumns = `
	id, source_url, title, description, content_text, summary, format, language,
	subjects, creators, publication_year, embedding, sparse_embedding,
	classification_code, taxonomy_nodes,
	quality_accuracy, quality_completeness, quality_consistency, quality_timeliness,
	quality_relevance, quality_overall, quality_needs_review,
	ingestion_status, ingestion_error, created_at, updated_at, ingested_at`

type postgresResourceRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresResourceRepo) query() queryable {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresResourceRepo) Create(ctx context.Context, res *core.Resource) error {
	subjects, creators, embedding, sparse, taxonomy, err := marshalResourceJSON(res)
	if err != nil {
		return err
	}
	q := `INSERT INTO resources (` + resourceColumns + `) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`
	_, err = r.query().ExecContext(ctx, q,
		res.ID, res.SourceURL, res.Title, res.Description, res.ContentText, res.Summary, res.Format, res.Language,
		subjects, creators, res.PublicationYear, embedding, sparse,
		res.ClassificationCode, taxonomy,
		res.Quality.Accuracy, res.Quality.Completeness, res.Quality.Consistency, res.Quality.Timeliness,
		res.Quality.Relevance, res.Quality.Overall, res.Quality.NeedsReview,
		res.IngestionStatus, res.IngestionError, res.CreatedAt, res.UpdatedAt, res.IngestedAt,
	)
	return err
}

func (r *postgresResourceRepo) Get(ctx context.Context, id string) (*core.Resource, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
	return scanResource(row)
}

func (r *postgresResourceRepo) GetByURL(ctx context.Context, sourceURL string) (*core.Resource, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE source_url = $1`, sourceURL)
	return scanResource(row)
}

func (r *postgresResourceRepo) List(ctx context.Context, opts ListOptions, filter ResourceFilter) ([]core.Resource, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	args := []interface{}{}
	if filter.Language != "" {
		args = append(args, filter.Language)
		clauses = append(clauses, fmt.Sprintf("language = $%d", len(args)))
	}
	if filter.ClassificationCode != "" {
		args = append(args, filter.ClassificationCode)
		clauses = append(clauses, fmt.Sprintf("classification_code = $%d", len(args)))
	}
	if filter.IngestionStatus != "" {
		args = append(args, filter.IngestionStatus)
		clauses = append(clauses, fmt.Sprintf("ingestion_status = $%d", len(args)))
	}
	args = append(args, limit, opts.Offset)
	q := fmt.Sprintf(`SELECT %s FROM resources WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		resourceColumns, strings.Join(clauses, " AND "), len(args)-1, len(args))

	rows, err := r.query().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResourceRows(rows)
}

func (r *postgresResourceRepo) GetMany(ctx context.Context, ids []string) (map[string]*core.Resource, error) {
	out := make(map[string]*core.Resource, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.query().QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list, err := scanResourceRows(rows)
	if err != nil {
		return nil, err
	}
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func (r *postgresResourceRepo) Update(ctx context.Context, res *core.Resource) error {
	subjects, creators, embedding, sparse, taxonomy, err := marshalResourceJSON(res)
	if err != nil {
		return err
	}
	q := `UPDATE resources SET
		source_url=$2, title=$3, description=$4, content_text=$5, summary=$6, format=$7, language=$8,
		subjects=$9, creators=$10, publication_year=$11, embedding=$12, sparse_embedding=$13,
		classification_code=$14, taxonomy_nodes=$15,
		quality_accuracy=$16, quality_completeness=$17, quality_consistency=$18, quality_timeliness=$19,
		quality_relevance=$20, quality_overall=$21, quality_needs_review=$22,
		ingestion_status=$23, ingestion_error=$24, updated_at=$25, ingested_at=$26
		WHERE id=$1`
	_, err = r.query().ExecContext(ctx, q,
		res.ID, res.SourceURL, res.Title, res.Description, res.ContentText, res.Summary, res.Format, res.Language,
		subjects, creators, res.PublicationYear, embedding, sparse,
		res.ClassificationCode, taxonomy,
		res.Quality.Accuracy, res.Quality.Completeness, res.Quality.Consistency, res.Quality.Timeliness,
		res.Quality.Relevance, res.Quality.Overall, res.Quality.NeedsReview,
		res.IngestionStatus, res.IngestionError, res.UpdatedAt, res.IngestedAt,
	)
	return err
}

func (r *postgresResourceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.query().ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	return err
}

func (r *postgresResourceRepo) All(ctx context.Context) ([]core.Resource, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResourceRows(rows)
}

func (r *postgresResourceRepo) TopByQuality(ctx context.Context, limit int) ([]core.Resource, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.query().QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE embedding IS NOT NULL AND embedding NOT IN ('null'::jsonb, '[]'::jsonb) ORDER BY quality_overall DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResourceRows(rows)
}

func (r *postgresResourceRepo) UpdatedSince(ctx context.Context, since time.Time) ([]core.Resource, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE updated_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResourceRows(rows)
}

// SearchFTS runs Postgres full-text search over title/description/
// content_text/summary, ranked by ts_rank descending (spec §4.8 step 1
// "Lexical").
func (r *postgresResourceRepo) SearchFTS(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.query().QueryContext(ctx, `
		SELECT id FROM resources
		WHERE to_tsvector('english', title || ' ' || description || ' ' || content_text || ' ' || summary)
			@@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(
			to_tsvector('english', title || ' ' || description || ' ' || content_text || ' ' || summary),
			plainto_tsquery('english', $1)
		) DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanResource(row scannable) (*core.Resource, error) {
	var res core.Resource
	var subjects, creators, embedding, sparse, taxonomy []byte
	var createdAt, updatedAt time.Time
	var ingestedAt sql.NullTime

	err := row.Scan(
		&res.ID, &res.SourceURL, &res.Title, &res.Description, &res.ContentText, &res.Summary, &res.Format, &res.Language,
		&subjects, &creators, &res.PublicationYear, &embedding, &sparse,
		&res.ClassificationCode, &taxonomy,
		&res.Quality.Accuracy, &res.Quality.Completeness, &res.Quality.Consistency, &res.Quality.Timeliness,
		&res.Quality.Relevance, &res.Quality.Overall, &res.Quality.NeedsReview,
		&res.IngestionStatus, &res.IngestionError, &createdAt, &updatedAt, &ingestedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("resource not found")
		}
		return nil, err
	}
	if err := unmarshalResourceJSON(&res, subjects, creators, embedding, sparse, taxonomy); err != nil {
		return nil, err
	}
	res.CreatedAt = createdAt
	res.UpdatedAt = updatedAt
	if ingestedAt.Valid {
		t := ingestedAt.Time
		res.IngestedAt = &t
	}
	return &res, nil
}

func scanResourceRows(rows *sql.Rows) ([]core.Resource, error) {
	var out []core.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func marshalResourceJSON(res *core.Resource) (subjects, creators, embedding, sparse, taxonomy []byte, err error) {
	if subjects, err = json.Marshal(res.Subjects); err != nil {
		return
	}
	if creators, err = json.Marshal(res.Creators); err != nil {
		return
	}
	if embedding, err = json.Marshal(res.Embedding); err != nil {
		return
	}
	if sparse, err = json.Marshal(res.SparseEmbedding); err != nil {
		return
	}
	if taxonomy, err = json.Marshal(res.TaxonomyNodes); err != nil {
		return
	}
	return
}

func unmarshalResourceJSON(res *core.Resource, subjects, creators, embedding, sparse, taxonomy []byte) error {
	if len(subjects) > 0 {
		if err := json.Unmarshal(subjects, &res.Subjects); err != nil {
			return err
		}
	}
	if len(creators) > 0 {
		if err := json.Unmarshal(creators, &res.Creators); err != nil {
			return err
		}
	}
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &res.Embedding); err != nil {
			return err
		}
	}
	if len(sparse) > 0 {
		if err := json.Unmarshal(sparse, &res.SparseEmbedding); err != nil {
			return err
		}
	}
	if len(taxonomy) > 0 {
		if err := json.Unmarshal(taxonomy, &res.TaxonomyNodes); err != nil {
			return err
		}
	}
	return nil
}

// --- Subject ---

type postgresSubjectRepo struct {
	db *sql.DB
}

func (r *postgresSubjectRepo) Upsert(ctx context.Context, s *core.Subject) error {
	variants, err := json.Marshal(s.Variants)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, canonical_form, variants, usage_count)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET
			canonical_form = EXCLUDED.canonical_form,
			variants = EXCLUDED.variants,
			usage_count = EXCLUDED.usage_count`,
		s.ID, s.CanonicalForm, variants, s.UsageCount)
	return err
}

func (r *postgresSubjectRepo) GetByCanonicalForm(ctx context.Context, form string) (*core.Subject, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, canonical_form, variants, usage_count FROM subjects WHERE canonical_form = $1`, form)
	return scanSubject(row)
}

func (r *postgresSubjectRepo) FindByVariant(ctx context.Context, variant string) (*core.Subject, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, canonical_form, variants, usage_count FROM subjects WHERE variants @> $1::jsonb`, fmt.Sprintf("[%q]", variant))
	return scanSubject(row)
}

func (r *postgresSubjectRepo) TopByUsage(ctx context.Context, limit int) ([]core.Subject, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, canonical_form, variants, usage_count FROM subjects ORDER BY usage_count DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *postgresSubjectRepo) AverageQualityFor(ctx context.Context, subjectID string) (float64, error) {
	var avg sql.NullFloat64
	row := r.db.QueryRowContext(ctx, `
		SELECT AVG(r.quality_overall)
		FROM resources r, subjects s
		WHERE s.id = $1 AND r.subjects @> to_jsonb(ARRAY[s.canonical_form])`, subjectID)
	if err := row.Scan(&avg); err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

func scanSubject(row scannable) (*core.Subject, error) {
	var s core.Subject
	var variants []byte
	if err := row.Scan(&s.ID, &s.CanonicalForm, &variants, &s.UsageCount); err != nil {
		return nil, err
	}
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &s.Variants); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// --- Taxonomy ---

type postgresTaxonomyRepo struct {
	db *sql.DB
}

func (r *postgresTaxonomyRepo) Upsert(ctx context.Context, n *core.TaxonomyNode) error {
	keywords, err := json.Marshal(n.Keywords)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO taxonomy_nodes (id, name, parent_id, description, keywords)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, parent_id = EXCLUDED.parent_id,
			description = EXCLUDED.description, keywords = EXCLUDED.keywords`,
		n.ID, n.Name, n.ParentID, n.Description, keywords)
	return err
}

func (r *postgresTaxonomyRepo) Get(ctx context.Context, id string) (*core.TaxonomyNode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, parent_id, description, keywords FROM taxonomy_nodes WHERE id = $1`, id)
	return scanTaxonomyNode(row)
}

func (r *postgresTaxonomyRepo) Children(ctx context.Context, parentID string) ([]core.TaxonomyNode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, parent_id, description, keywords FROM taxonomy_nodes WHERE parent_id = $1`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaxonomyRows(rows)
}

func (r *postgresTaxonomyRepo) All(ctx context.Context) ([]core.TaxonomyNode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, parent_id, description, keywords FROM taxonomy_nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaxonomyRows(rows)
}

func scanTaxonomyNode(row scannable) (*core.TaxonomyNode, error) {
	var n core.TaxonomyNode
	var keywords []byte
	if err := row.Scan(&n.ID, &n.Name, &n.ParentID, &n.Description, &keywords); err != nil {
		return nil, err
	}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &n.Keywords); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

func scanTaxonomyRows(rows *sql.Rows) ([]core.TaxonomyNode, error) {
	var out []core.TaxonomyNode
	for rows.Next() {
		n, err := scanTaxonomyNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// --- DiscoveryHypothesis ---

type postgresHypothesisRepo struct {
	db *sql.DB
}

func (r *postgresHypothesisRepo) Create(ctx context.Context, h *core.DiscoveryHypothesis) error {
	bIDs, err := json.Marshal(h.BResourceIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO discovery_hypotheses (
			id, a_resource_id, c_resource_id, b_resource_ids, type, path_strength,
			semantic_similarity, common_neighbors, plausibility_score, is_validated, notes, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		h.ID, h.AResourceID, h.CResourceID, bIDs, h.Type, h.PathStrength,
		h.SemanticSimilarity, h.CommonNeighbors, h.PlausibilityScore, h.IsValidated, h.Notes, h.CreatedAt)
	return err
}

func (r *postgresHypothesisRepo) Get(ctx context.Context, id string) (*core.DiscoveryHypothesis, error) {
	row := r.db.QueryRowContext(ctx, hypothesisSelect+` WHERE id = $1`, id)
	return scanHypothesis(row)
}

func (r *postgresHypothesisRepo) ByResource(ctx context.Context, resourceID string, hType core.HypothesisType) ([]core.DiscoveryHypothesis, error) {
	rows, err := r.db.QueryContext(ctx, hypothesisSelect+` WHERE (a_resource_id = $1 OR c_resource_id = $1) AND type = $2`, resourceID, hType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.DiscoveryHypothesis
	for rows.Next() {
		h, err := scanHypothesis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (r *postgresHypothesisRepo) SetValidation(ctx context.Context, id string, state core.ValidationState, notes string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE discovery_hypotheses SET is_validated = $2, notes = $3 WHERE id = $1`, id, state, notes)
	return err
}

const hypothesisSelect = `SELECT id, a_resource_id, c_resource_id, b_resource_ids, type, path_strength,
	semantic_similarity, common_neighbors, plausibility_score, is_validated, notes, created_at FROM discovery_hypotheses`

func scanHypothesis(row scannable) (*core.DiscoveryHypothesis, error) {
	var h core.DiscoveryHypothesis
	var bIDs []byte
	if err := row.Scan(&h.ID, &h.AResourceID, &h.CResourceID, &bIDs, &h.Type, &h.PathStrength,
		&h.SemanticSimilarity, &h.CommonNeighbors, &h.PlausibilityScore, &h.IsValidated, &h.Notes, &h.CreatedAt); err != nil {
		return nil, err
	}
	if len(bIDs) > 0 {
		if err := json.Unmarshal(bIDs, &h.BResourceIDs); err != nil {
			return nil, err
		}
	}
	return &h, nil
}

// --- GraphEdgeOverride ---

type postgresEdgeOverrideRepo struct {
	db *sql.DB
}

func (r *postgresEdgeOverrideRepo) Upsert(ctx context.Context, o *core.GraphEdgeOverride) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO graph_edge_overrides (source_id, target_id, type, delta)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (source_id, target_id, type) DO UPDATE SET delta = EXCLUDED.delta`,
		o.SourceID, o.TargetID, o.Type, o.Delta)
	return err
}

func (r *postgresEdgeOverrideRepo) All(ctx context.Context) ([]core.GraphEdgeOverride, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT source_id, target_id, type, delta FROM graph_edge_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.GraphEdgeOverride
	for rows.Next() {
		var o core.GraphEdgeOverride
		if err := rows.Scan(&o.SourceID, &o.TargetID, &o.Type, &o.Delta); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- QualitySnapshot ---

type postgresQualitySnapshotRepo struct {
	db *sql.DB
}

func (r *postgresQualitySnapshotRepo) Create(ctx context.Context, s *core.QualitySnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quality_snapshots (id, resource_id, overall, taken_at) VALUES ($1,$2,$3,$4)`,
		s.ID, s.ResourceID, s.Overall, s.TakenAt)
	return err
}

func (r *postgresQualitySnapshotRepo) Recent(ctx context.Context, resourceID string, since time.Time) ([]core.QualitySnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, resource_id, overall, taken_at FROM quality_snapshots
		WHERE resource_id = $1 AND taken_at >= $2 ORDER BY taken_at ASC`,
		resourceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.QualitySnapshot
	for rows.Next() {
		var s core.QualitySnapshot
		if err := rows.Scan(&s.ID, &s.ResourceID, &s.Overall, &s.TakenAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
