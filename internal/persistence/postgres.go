// Package persistence provides database implementations.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB implements Database for PostgreSQL with the pgvector
// extension (spec §6 "Storage: Postgres backend").
type PostgresDB struct {
	db               *sql.DB
	resources        ResourceRepository
	subjects         SubjectRepository
	taxonomy         TaxonomyRepository
	citations        CitationRepository
	hypotheses       HypothesisRepository
	edgeOverrides    GraphEdgeOverrideRepository
	qualitySnapshots QualitySnapshotRepository
}

// NewPostgresDB opens a connection pool and verifies connectivity.
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &PostgresDB{db: db}
	p.resources = &postgresResourceRepo{db: db}
	p.subjects = &postgresSubjectRepo{db: db}
	p.taxonomy = &postgresTaxonomyRepo{db: db}
	p.citations = &postgresCitationRepo{db: db}
	p.hypotheses = &postgresHypothesisRepo{db: db}
	p.edgeOverrides = &postgresEdgeOverrideRepo{db: db}
	p.qualitySnapshots = &postgresQualitySnapshotRepo{db: db}
	return p, nil
}

func (p *PostgresDB) Resources() ResourceRepository               { return p.resources }
func (p *PostgresDB) Subjects() SubjectRepository                  { return p.subjects }
func (p *PostgresDB) Taxonomy() TaxonomyRepository                 { return p.taxonomy }
func (p *PostgresDB) Citations() CitationRepository                { return p.citations }
func (p *PostgresDB) Hypotheses() HypothesisRepository             { return p.hypotheses }
func (p *PostgresDB) EdgeOverrides() GraphEdgeOverrideRepository   { return p.edgeOverrides }
func (p *PostgresDB) QualitySnapshots() QualitySnapshotRepository  { return p.qualitySnapshots }

// SQLDB exposes the underlying connection pool so callers that need a
// pgvector-backed semantic search index (internal/vectorstore) can
// wrap it without this package depending on vectorstore.
func (p *PostgresDB) SQLDB() *sql.DB { return p.db }

func (p *PostgresDB) Close() error { return p.db.Close() }

func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{
		tx:        tx,
		resources: &postgresResourceRepo{db: p.db, tx: tx},
		citations: &postgresCitationRepo{db: p.db, tx: tx},
	}, nil
}

type postgresTx struct {
	tx        *sql.Tx
	resources ResourceRepository
	citations CitationRepository
}

func (t *postgresTx) Commit() error                   { return t.tx.Commit() }
func (t *postgresTx) Rollback() error                 { return t.tx.Rollback() }
func (t *postgresTx) Resources() ResourceRepository   { return t.resources }
func (t *postgresTx) Citations() CitationRepository   { return t.citations }

// queryable abstracts over *sql.DB and *sql.Tx so a repo can run
// either inside or outside a transaction, per the teacher's
// dual-mode repo pattern.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
