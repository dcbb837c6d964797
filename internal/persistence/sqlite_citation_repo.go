package persistence

import (
	"context"
	"database/sql"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

type sqliteCitationRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *sqliteCitationRepo) query() queryable {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *sqliteCitationRepo) Create(ctx context.Context, c *core.Citation) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO citations (`+citationColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.SourceResourceID, c.TargetURL, c.TargetResourceID, c.Type, c.ContextSnippet, c.Position, c.ImportanceScore)
	return err
}

func (r *sqliteCitationRepo) BulkCreate(ctx context.Context, cs []core.Citation) error {
	for i := range cs {
		if err := r.Create(ctx, &cs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteCitationRepo) ByResource(ctx context.Context, sourceResourceID string) ([]core.Citation, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE source_resource_id = ?`, sourceResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteCitationRows(rows)
}

func (r *sqliteCitationRepo) ByTargetResource(ctx context.Context, targetResourceID string) ([]core.Citation, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE target_resource_id = ?`, targetResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteCitationRows(rows)
}

func (r *sqliteCitationRepo) Unresolved(ctx context.Context, limit int) ([]core.Citation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE target_resource_id IS NULL LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteCitationRows(rows)
}

func (r *sqliteCitationRepo) UpdateImportance(ctx context.Context, id string, score float64) error {
	_, err := r.query().ExecContext(ctx, `UPDATE citations SET importance_score = ? WHERE id = ?`, score, id)
	return err
}

func (r *sqliteCitationRepo) ResolveTarget(ctx context.Context, id string, targetResourceID string) error {
	_, err := r.query().ExecContext(ctx, `UPDATE citations SET target_resource_id = ? WHERE id = ?`, targetResourceID, id)
	return err
}

func (r *sqliteCitationRepo) All(ctx context.Context) ([]core.Citation, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+citationColumns+` FROM citations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteCitationRows(rows)
}

func scanSQLiteCitationRows(rows *sql.Rows) ([]core.Citation, error) {
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
