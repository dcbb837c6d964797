package persistence

import (
	"context"
	"strings"
)

// Open selects and constructs the storage backend named by
// databaseURL's scheme: "postgres"/"postgresql" opens the
// pgvector-backed relational store, anything else is treated as a
// filesystem path for the embedded SQLite store (spec §6 "Storage").
func Open(ctx context.Context, databaseURL string) (Database, error) {
	scheme := databaseURL
	if i := strings.Index(databaseURL, "://"); i >= 0 {
		scheme = databaseURL[:i]
	} else {
		scheme = ""
	}

	switch scheme {
	case "postgres", "postgresql":
		return NewPostgresDB(databaseURL)
	default:
		path := databaseURL
		path = strings.TrimPrefix(path, "sqlite://")
		path = strings.TrimPrefix(path, "file://")
		return NewSQLiteDB(ctx, path)
	}
}
