package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // embedded SQLite driver

	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
)

//go:embed sqlite_migrations/*.sql
var sqliteMigrationFiles embed.FS

// SQLiteDB implements Database for the embedded single-file backend
// (spec §6 "Storage: embedded SQLite store"), selected when
// database.url has no postgres/postgresql scheme. It trades pgvector's
// ANN search for brute-force cosine similarity over JSON-encoded
// embeddings and FTS5 for lexical search, matching the teacher's own
// single-binary deployment story for environments without Postgres.
type SQLiteDB struct {
	db                *sql.DB
	resources         ResourceRepository
	subjects          SubjectRepository
	taxonomy          TaxonomyRepository
	citations         CitationRepository
	hypotheses        HypothesisRepository
	edgeOverrides     GraphEdgeOverrideRepository
	qualitySnapshots  QualitySnapshotRepository
}

// NewSQLiteDB opens (creating if absent) the SQLite file at path and
// applies any pending embedded migrations.
func NewSQLiteDB(ctx context.Context, path string) (*SQLiteDB, error) {
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids
	// "database is locked" contention under the teacher's worker pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteDB{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	s.resources = &sqliteResourceRepo{db: db}
	s.subjects = &sqliteSubjectRepo{db: db}
	s.taxonomy = &sqliteTaxonomyRepo{db: db}
	s.citations = &sqliteCitationRepo{db: db}
	s.hypotheses = &sqliteHypothesisRepo{db: db}
	s.edgeOverrides = &sqliteEdgeOverrideRepo{db: db}
	s.qualitySnapshots = &sqliteQualitySnapshotRepo{db: db}
	return s, nil
}

func (s *SQLiteDB) Resources() ResourceRepository               { return s.resources }
func (s *SQLiteDB) Subjects() SubjectRepository                 { return s.subjects }
func (s *SQLiteDB) Taxonomy() TaxonomyRepository                { return s.taxonomy }
func (s *SQLiteDB) Citations() CitationRepository               { return s.citations }
func (s *SQLiteDB) Hypotheses() HypothesisRepository            { return s.hypotheses }
func (s *SQLiteDB) EdgeOverrides() GraphEdgeOverrideRepository  { return s.edgeOverrides }
func (s *SQLiteDB) QualitySnapshots() QualitySnapshotRepository { return s.qualitySnapshots }

func (s *SQLiteDB) Close() error { return s.db.Close() }

func (s *SQLiteDB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{
		tx:        tx,
		resources: &sqliteResourceRepo{db: s.db, tx: tx},
		citations: &sqliteCitationRepo{db: s.db, tx: tx},
	}, nil
}

type sqliteTx struct {
	tx        *sql.Tx
	resources ResourceRepository
	citations CitationRepository
}

func (t *sqliteTx) Commit() error                 { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error                { return t.tx.Rollback() }
func (t *sqliteTx) Resources() ResourceRepository  { return t.resources }
func (t *sqliteTx) Citations() CitationRepository  { return t.citations }

// migrate applies the embedded *.sql files in ascending numeric order,
// tracked in a schema_migrations table, mirroring the tracked-migration
// shape of the Postgres backend's MigrationManager without depending
// on it (the embedded FS roots differ, so the file sets can't share a
// loader).
func (s *SQLiteDB) migrate(ctx context.Context) error {
	log := logger.Get()

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return err
	}

	applied := map[int]bool{}
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()

	entries, err := sqliteMigrationFiles.ReadDir("sqlite_migrations")
	if err != nil {
		return err
	}

	type migration struct {
		version     int
		description string
		sql         string
	}
	var pending []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			log.Warn("skipping sqlite migration with invalid name", "file", entry.Name())
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			log.Warn("skipping sqlite migration with invalid version", "file", entry.Name())
			continue
		}
		if applied[version] {
			continue
		}
		content, err := sqliteMigrationFiles.ReadFile("sqlite_migrations/" + entry.Name())
		if err != nil {
			return err
		}
		description := strings.TrimSuffix(parts[1], ".sql")
		description = strings.ReplaceAll(description, "_", " ")
		pending = append(pending, migration{version: version, description: description, sql: string(content)})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	for _, m := range pending {
		log.Info("applying sqlite migration", "version", m.version, "description", m.description)
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
			m.version, m.description, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}
	return nil
}
