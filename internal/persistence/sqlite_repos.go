package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

type sqliteResourceRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *sqliteResourceRepo) query() queryable {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *sqliteResourceRepo) Create(ctx context.Context, res *core.Resource) error {
	subjects, creators, embedding, sparse, taxonomy, err := marshalResourceJSON(res)
	if err != nil {
		return err
	}
	_, err = r.query().ExecContext(ctx, `INSERT INTO resources (`+resourceColumns+`) VALUES (
		?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, res.SourceURL, res.Title, res.Description, res.ContentText, res.Summary, res.Format, res.Language,
		subjects, creators, res.PublicationYear, embedding, sparse,
		res.ClassificationCode, taxonomy,
		res.Quality.Accuracy, res.Quality.Completeness, res.Quality.Consistency, res.Quality.Timeliness,
		res.Quality.Relevance, res.Quality.Overall, res.Quality.NeedsReview,
		res.IngestionStatus, res.IngestionError, formatTime(res.CreatedAt), formatTime(res.UpdatedAt), formatTimePtr(res.IngestedAt),
	)
	return err
}

func (r *sqliteResourceRepo) Get(ctx context.Context, id string) (*core.Resource, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	return scanSQLiteResource(row)
}

func (r *sqliteResourceRepo) GetByURL(ctx context.Context, sourceURL string) (*core.Resource, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE source_url = ?`, sourceURL)
	return scanSQLiteResource(row)
}

func (r *sqliteResourceRepo) List(ctx context.Context, opts ListOptions, filter ResourceFilter) ([]core.Resource, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []interface{}
	if filter.Language != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.ClassificationCode != "" {
		clauses = append(clauses, "classification_code = ?")
		args = append(args, filter.ClassificationCode)
	}
	if filter.IngestionStatus != "" {
		clauses = append(clauses, "ingestion_status = ?")
		args = append(args, filter.IngestionStatus)
	}
	args = append(args, limit, opts.Offset)
	q := fmt.Sprintf(`SELECT %s FROM resources WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		resourceColumns, strings.Join(clauses, " AND "))

	rows, err := r.query().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteResourceRows(rows)
}

func (r *sqliteResourceRepo) GetMany(ctx context.Context, ids []string) (map[string]*core.Resource, error) {
	out := make(map[string]*core.Resource, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `SELECT ` + resourceColumns + ` FROM resources WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.query().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list, err := scanSQLiteResourceRows(rows)
	if err != nil {
		return nil, err
	}
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func (r *sqliteResourceRepo) Update(ctx context.Context, res *core.Resource) error {
	subjects, creators, embedding, sparse, taxonomy, err := marshalResourceJSON(res)
	if err != nil {
		return err
	}
	_, err = r.query().ExecContext(ctx, `UPDATE resources SET
		source_url=?, title=?, description=?, content_text=?, summary=?, format=?, language=?,
		subjects=?, creators=?, publication_year=?, embedding=?, sparse_embedding=?,
		classification_code=?, taxonomy_nodes=?,
		quality_accuracy=?, quality_completeness=?, quality_consistency=?, quality_timeliness=?,
		quality_relevance=?, quality_overall=?, quality_needs_review=?,
		ingestion_status=?, ingestion_error=?, updated_at=?, ingested_at=?
		WHERE id=?`,
		res.SourceURL, res.Title, res.Description, res.ContentText, res.Summary, res.Format, res.Language,
		subjects, creators, res.PublicationYear, embedding, sparse,
		res.ClassificationCode, taxonomy,
		res.Quality.Accuracy, res.Quality.Completeness, res.Quality.Consistency, res.Quality.Timeliness,
		res.Quality.Relevance, res.Quality.Overall, res.Quality.NeedsReview,
		res.IngestionStatus, res.IngestionError, formatTime(res.UpdatedAt), formatTimePtr(res.IngestedAt),
		res.ID,
	)
	return err
}

func (r *sqliteResourceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.query().ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	return err
}

func (r *sqliteResourceRepo) All(ctx context.Context) ([]core.Resource, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteResourceRows(rows)
}

func (r *sqliteResourceRepo) TopByQuality(ctx context.Context, limit int) ([]core.Resource, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.query().QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE embedding IS NOT NULL AND CAST(embedding AS TEXT) NOT IN ('null', '[]') ORDER BY quality_overall DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteResourceRows(rows)
}

func (r *sqliteResourceRepo) UpdatedSince(ctx context.Context, since time.Time) ([]core.Resource, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE updated_at >= ?`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteResourceRows(rows)
}

// SearchFTS performs a lexical search over resources_fts, returning
// resource IDs ranked by FTS5's bm25() relevance (lower is better, so
// callers should treat the returned order as already ranked rather
// than re-sorting by a similarity score).
func (r *sqliteResourceRepo) SearchFTS(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.query().QueryContext(ctx, `
		SELECT id FROM resources_fts WHERE resources_fts MATCH ? ORDER BY bm25(resources_fts) LIMIT ?`,
		query, limit)
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

func scanSQLiteResource(row scannable) (*core.Resource, error) {
	var res core.Resource
	var subjects, creators, embedding, sparse, taxonomy []byte
	var createdAt, updatedAt string
	var ingestedAt sql.NullString

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
	res.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	res.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	if ingestedAt.Valid {
		t, err := parseTime(ingestedAt.String)
		if err != nil {
			return nil, err
		}
		res.IngestedAt = &t
	}
	return &res, nil
}

func scanSQLiteResourceRows(rows *sql.Rows) ([]core.Resource, error) {
	var out []core.Resource
	for rows.Next() {
		res, err := scanSQLiteResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// --- Subject ---

type sqliteSubjectRepo struct {
	db *sql.DB
}

func (r *sqliteSubjectRepo) Upsert(ctx context.Context, s *core.Subject) error {
	variants, err := json.Marshal(s.Variants)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, canonical_form, variants, usage_count)
		VALUES (?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			canonical_form = excluded.canonical_form,
			variants = excluded.variants,
			usage_count = excluded.usage_count`,
		s.ID, s.CanonicalForm, variants, s.UsageCount)
	return err
}

func (r *sqliteSubjectRepo) GetByCanonicalForm(ctx context.Context, form string) (*core.Subject, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, canonical_form, variants, usage_count FROM subjects WHERE canonical_form = ?`, form)
	return scanSQLiteSubject(row)
}

func (r *sqliteSubjectRepo) FindByVariant(ctx context.Context, variant string) (*core.Subject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, canonical_form, variants, usage_count FROM subjects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanSQLiteSubject(rows)
		if err != nil {
			return nil, err
		}
		for _, v := range s.Variants {
			if v == variant {
				return s, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (r *sqliteSubjectRepo) TopByUsage(ctx context.Context, limit int) ([]core.Subject, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, canonical_form, variants, usage_count FROM subjects ORDER BY usage_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Subject
	for rows.Next() {
		s, err := scanSQLiteSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *sqliteSubjectRepo) AverageQualityFor(ctx context.Context, subjectID string) (float64, error) {
	var form string
	if err := r.db.QueryRowContext(ctx, `SELECT canonical_form FROM subjects WHERE id = ?`, subjectID).Scan(&form); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT subjects, quality_overall FROM resources WHERE subjects LIKE ?`, "%"+form+"%")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var sum, count float64
	for rows.Next() {
		var subjectsJSON []byte
		var quality float64
		if err := rows.Scan(&subjectsJSON, &quality); err != nil {
			return 0, err
		}
		var subjects []string
		if err := json.Unmarshal(subjectsJSON, &subjects); err != nil {
			return 0, err
		}
		for _, s := range subjects {
			if s == form {
				sum += quality
				count++
				break
			}
		}
	}
	if count == 0 {
		return 0, rows.Err()
	}
	return sum / count, rows.Err()
}

func scanSQLiteSubject(row scannable) (*core.Subject, error) {
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

type sqliteTaxonomyRepo struct {
	db *sql.DB
}

func (r *sqliteTaxonomyRepo) Upsert(ctx context.Context, n *core.TaxonomyNode) error {
	keywords, err := json.Marshal(n.Keywords)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO taxonomy_nodes (id, name, parent_id, description, keywords)
		VALUES (?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, parent_id = excluded.parent_id,
			description = excluded.description, keywords = excluded.keywords`,
		n.ID, n.Name, n.ParentID, n.Description, keywords)
	return err
}

func (r *sqliteTaxonomyRepo) Get(ctx context.Context, id string) (*core.TaxonomyNode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, parent_id, description, keywords FROM taxonomy_nodes WHERE id = ?`, id)
	return scanSQLiteTaxonomyNode(row)
}

func (r *sqliteTaxonomyRepo) Children(ctx context.Context, parentID string) ([]core.TaxonomyNode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, parent_id, description, keywords FROM taxonomy_nodes WHERE parent_id = ?`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteTaxonomyRows(rows)
}

func (r *sqliteTaxonomyRepo) All(ctx context.Context) ([]core.TaxonomyNode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, parent_id, description, keywords FROM taxonomy_nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteTaxonomyRows(rows)
}

func scanSQLiteTaxonomyNode(row scannable) (*core.TaxonomyNode, error) {
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

func scanSQLiteTaxonomyRows(rows *sql.Rows) ([]core.TaxonomyNode, error) {
	var out []core.TaxonomyNode
	for rows.Next() {
		n, err := scanSQLiteTaxonomyNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// --- DiscoveryHypothesis ---

type sqliteHypothesisRepo struct {
	db *sql.DB
}

func (r *sqliteHypothesisRepo) Create(ctx context.Context, h *core.DiscoveryHypothesis) error {
	bIDs, err := json.Marshal(h.BResourceIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO discovery_hypotheses (
			id, a_resource_id, c_resource_id, b_resource_ids, type, path_strength,
			semantic_similarity, common_neighbors, plausibility_score, is_validated, notes, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		h.ID, h.AResourceID, h.CResourceID, bIDs, h.Type, h.PathStrength,
		h.SemanticSimilarity, h.CommonNeighbors, h.PlausibilityScore, h.IsValidated, h.Notes, formatTime(h.CreatedAt))
	return err
}

func (r *sqliteHypothesisRepo) Get(ctx context.Context, id string) (*core.DiscoveryHypothesis, error) {
	row := r.db.QueryRowContext(ctx, sqliteHypothesisSelect+` WHERE id = ?`, id)
	return scanSQLiteHypothesis(row)
}

func (r *sqliteHypothesisRepo) ByResource(ctx context.Context, resourceID string, hType core.HypothesisType) ([]core.DiscoveryHypothesis, error) {
	rows, err := r.db.QueryContext(ctx, sqliteHypothesisSelect+` WHERE (a_resource_id = ? OR c_resource_id = ?) AND type = ?`, resourceID, resourceID, hType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.DiscoveryHypothesis
	for rows.Next() {
		h, err := scanSQLiteHypothesis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (r *sqliteHypothesisRepo) SetValidation(ctx context.Context, id string, state core.ValidationState, notes string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE discovery_hypotheses SET is_validated = ?, notes = ? WHERE id = ?`, state, notes, id)
	return err
}

const sqliteHypothesisSelect = `SELECT id, a_resource_id, c_resource_id, b_resource_ids, type, path_strength,
	semantic_similarity, common_neighbors, plausibility_score, is_validated, notes, created_at FROM discovery_hypotheses`

func scanSQLiteHypothesis(row scannable) (*core.DiscoveryHypothesis, error) {
	var h core.DiscoveryHypothesis
	var bIDs []byte
	var createdAt string
	if err := row.Scan(&h.ID, &h.AResourceID, &h.CResourceID, &bIDs, &h.Type, &h.PathStrength,
		&h.SemanticSimilarity, &h.CommonNeighbors, &h.PlausibilityScore, &h.IsValidated, &h.Notes, &createdAt); err != nil {
		return nil, err
	}
	if len(bIDs) > 0 {
		if err := json.Unmarshal(bIDs, &h.BResourceIDs); err != nil {
			return nil, err
		}
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	h.CreatedAt = t
	return &h, nil
}

// --- GraphEdgeOverride ---

type sqliteEdgeOverrideRepo struct {
	db *sql.DB
}

func (r *sqliteEdgeOverrideRepo) Upsert(ctx context.Context, o *core.GraphEdgeOverride) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO graph_edge_overrides (source_id, target_id, type, delta)
		VALUES (?,?,?,?)
		ON CONFLICT (source_id, target_id, type) DO UPDATE SET delta = excluded.delta`,
		o.SourceID, o.TargetID, o.Type, o.Delta)
	return err
}

func (r *sqliteEdgeOverrideRepo) All(ctx context.Context) ([]core.GraphEdgeOverride, error) {
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

type sqliteQualitySnapshotRepo struct {
	db *sql.DB
}

func (r *sqliteQualitySnapshotRepo) Create(ctx context.Context, s *core.QualitySnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quality_snapshots (id, resource_id, overall, taken_at) VALUES (?,?,?,?)`,
		s.ID, s.ResourceID, s.Overall, formatTime(s.TakenAt))
	return err
}

func (r *sqliteQualitySnapshotRepo) Recent(ctx context.Context, resourceID string, since time.Time) ([]core.QualitySnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, resource_id, overall, taken_at FROM quality_snapshots
		WHERE resource_id = ? AND taken_at >= ? ORDER BY taken_at ASC`,
		resourceID, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.QualitySnapshot
	for rows.Next() {
		var s core.QualitySnapshot
		var takenAt string
		if err := rows.Scan(&s.ID, &s.ResourceID, &s.Overall, &takenAt); err != nil {
			return nil, err
		}
		t, err := parseTime(takenAt)
		if err != nil {
			return nil, err
		}
		s.TakenAt = t
		out = append(out, s)
	}
	return out, rows.Err()
}
