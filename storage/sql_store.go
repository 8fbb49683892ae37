package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name        string
	placeholder func(n int) string
	quote       func(ident string) string
	realType    string
	textType    string
	listTables  string
}

// sqlStore implements CategoryStore over database/sql.
type sqlStore struct {
	db     *sql.DB
	d      dialect
	logger *utils.Logger
}

// maxParams stays under the bind-parameter limit of both backends.
const maxParams = 30000

func openSQL(ctx context.Context, driver, dsn string, d dialect, retry *utils.RetryConfig, logger *utils.Logger) (*sqlStore, error) {
	if logger == nil {
		logger = utils.Discard()
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.name, err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if err := retry.Do(ctx, d.name+" ping", func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}
	return &sqlStore{db: db, d: d, logger: logger}, nil
}

func (s *sqlStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.d.listTables)
	if err != nil {
		return nil, fmt.Errorf("%s: list tables: %w", s.d.name, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("%s: scan table name: %w", s.d.name, err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *sqlStore) Read(ctx context.Context, name string) (*models.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.d.quote(name))
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", s.d.name, name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns of %s: %w", s.d.name, name, err)
	}

	t := &models.Table{Name: name, Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan row of %s: %w", s.d.name, name, err)
		}
		rec := make(models.Record, len(cols))
		for i, c := range cols {
			rec[c] = fromSQL(vals[i])
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, rows.Err()
}

func (s *sqlStore) Replace(ctx context.Context, name string, t *models.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s: replace %s: table has no columns", s.d.name, name)
	}

	numeric := make([]bool, len(t.Columns))
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		numeric[i] = t.NumericColumn(c)
		typ := s.d.textType
		if numeric[i] {
			typ = s.d.realType
		}
		defs[i] = s.d.quote(c) + " " + typ
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.d.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.d.quote(name)); err != nil {
		return fmt.Errorf("%s: drop %s: %w", s.d.name, name, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", s.d.quote(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%s: create %s: %w", s.d.name, name, err)
	}

	batchSize := 50
	if batchSize*len(t.Columns) > maxParams {
		batchSize = maxParams / len(t.Columns)
	}
	for i := 0; i < len(t.Rows); i += batchSize {
		end := i + batchSize
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		if err := s.insertBatch(ctx, tx, name, t.Columns, numeric, t.Rows[i:end]); err != nil {
			return fmt.Errorf("%s: insert into %s: %w", s.d.name, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit %s: %w", s.d.name, name, err)
	}
	s.logger.Info("[%s] Replaced table %q with %d rows", s.d.name, name, len(t.Rows))
	return nil
}

func (s *sqlStore) insertBatch(ctx context.Context, tx *sql.Tx, name string, cols []string, numeric []bool, batch []models.Record) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.d.quote(c)
	}

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*len(cols))
	n := 0
	for _, rec := range batch {
		ph := make([]string, len(cols))
		for i, c := range cols {
			n++
			ph[i] = s.d.placeholder(n)
			valueArgs = append(valueArgs, toSQL(rec, c, numeric[i]))
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		s.d.quote(name), strings.Join(quoted, ", "), strings.Join(valueStrings, ","))
	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func toSQL(rec models.Record, col string, numeric bool) any {
	if !rec.Has(col) {
		return nil
	}
	if numeric {
		if f, ok := rec.Float(col); ok {
			return f
		}
		return nil
	}
	return rec.String(col)
}

func fromSQL(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return t
	case int64:
		return float64(t)
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
