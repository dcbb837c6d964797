package persistence

import (
	"context"
	"database/sql"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

const citationColumns = `id, source_resource_id, target_url, target_resource_id, citation_type, context_snippet, position, importance_score`

type postgresCitationRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresCitationRepo) query() queryable {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresCitationRepo) Create(ctx context.Context, c *core.Citation) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO citations (`+citationColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.SourceResourceID, c.TargetURL, c.TargetResourceID, c.Type, c.ContextSnippet, c.Position, c.ImportanceScore)
	return err
}

func (r *postgresCitationRepo) BulkCreate(ctx context.Context, cs []core.Citation) error {
	for i := range cs {
		if err := r.Create(ctx, &cs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresCitationRepo) ByResource(ctx context.Context, sourceResourceID string) ([]core.Citation, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE source_resource_id = $1`, sourceResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCitationRows(rows)
}

func (r *postgresCitationRepo) ByTargetResource(ctx context.Context, targetResourceID string) ([]core.Citation, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE target_resource_id = $1`, targetResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCitationRows(rows)
}

func (r *postgresCitationRepo) Unresolved(ctx context.Context, limit int) ([]core.Citation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE target_resource_id IS NULL LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCitationRows(rows)
}

func (r *postgresCitationRepo) UpdateImportance(ctx context.Context, id string, score float64) error {
	_, err := r.query().ExecContext(ctx, `UPDATE citations SET importance_score = $2 WHERE id = $1`, id, score)
	return err
}

func (r *postgresCitationRepo) ResolveTarget(ctx context.Context, id string, targetResourceID string) error {
	_, err := r.query().ExecContext(ctx, `UPDATE citations SET target_resource_id = $2 WHERE id = $1`, id, targetResourceID)
	return err
}

func (r *postgresCitationRepo) All(ctx context.Context) ([]core.Citation, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCitationRows(rows)
}

func scanCitationRows(rows *sql.Rows) ([]core.Citation, error) {
	var out []core.Citation
	for rows.Next() {
		var c core.Citation
		if err := rows.Scan(&c.ID, &c.SourceResourceID, &c.TargetURL, &c.TargetResourceID, &c.Type, &c.ContextSnippet, &c.Position, &c.ImportanceScore); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
