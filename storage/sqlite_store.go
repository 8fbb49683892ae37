package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"appliance-pipeline/utils"
)

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	quote:       quoteIdent,
	realType:    "REAL",
	textType:    "TEXT",
	listTables:  `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
}

// SQLiteStore keeps one table per category in a local SQLite file.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (creating if needed) the database file at path.
func NewSQLiteStore(ctx context.Context, path string, logger *utils.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create database dir: %w", err)
	}
	s, err := openSQL(ctx, "sqlite", path, sqliteDialect, nil, logger)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	s.db.SetMaxOpenConns(1)
	return &SQLiteStore{s}, nil
}
