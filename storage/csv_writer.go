package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"appliance-pipeline/models"
)

// CSVWriter streams records to a CSV file under a fixed header.
// It is safe for concurrent use.
type CSVWriter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	columns []string
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string, columns []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, columns: columns}, nil
}

// Write appends records in header order. Missing fields become empty cells.
func (c *CSVWriter) Write(recs []models.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range recs {
		row := make([]string, len(c.columns))
		for i, col := range c.columns {
			row[i] = r.String(col)
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// WriteTable writes a whole table to path.
func WriteTable(path string, t *models.Table) error {
	w, err := NewCSVWriter(path, t.Columns)
	if err != nil {
		return err
	}
	if err := w.Write(t.Rows); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ReadTable loads a CSV file into a Table named after the file. Numeric cells
// become float64 and empty cells nil.
func ReadTable(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %q is empty", path)
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	t := &models.Table{Name: TableName(path), Columns: headers}
	for _, row := range records[1:] {
		rec := make(models.Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = parseCell(row[i])
			} else {
				rec[h] = nil
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// TableName strips directory and extension: staging/01_raw/fryer.csv → fryer.
func TableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
