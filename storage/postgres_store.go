package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"appliance-pipeline/utils"
)

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	quote:       pq.QuoteIdentifier,
	realType:    "DOUBLE PRECISION",
	textType:    "TEXT",
	listTables: `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
}

// PostgresStore keeps one table per category in PostgreSQL.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to PostgreSQL, retrying the initial ping while the
// server comes up.
func NewPostgresStore(ctx context.Context, dsn string, maxRetries int, logger *utils.Logger) (*PostgresStore, error) {
	retry := &utils.RetryConfig{MaxAttempts: maxRetries, BaseDelay: 2 * time.Second, Logger: logger}
	s, err := openSQL(ctx, "postgres", dsn, postgresDialect, retry, logger)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{s}, nil
}
