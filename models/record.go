package models

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Well-known field names shared by every category.
const (
	FieldCategory = "category"
	FieldPrice    = "price"
	FieldRating   = "rating"
	FieldTitle    = "title"
	FieldID       = "id"
)

// Record is one appliance listing: field name to scalar value.
// Values are float64, string or nil. An absent key, a nil value and NaN are all
// treated as missing.
type Record map[string]any

// Clone returns a shallow copy. Values are scalars, so the copy is independent.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field is present and not missing.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && !IsMissing(v)
}

// Float returns the numeric value of a field. Numeric strings are accepted.
func (r Record) Float(field string) (float64, bool) {
	return ToFloat(r[field])
}

// String returns the textual value of a field, or "" when missing.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || IsMissing(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return FormatFloat(t)
	default:
		return ""
	}
}

// Category returns the trimmed category label, or "" when absent.
func (r Record) Category() string {
	return strings.TrimSpace(r.String(FieldCategory))
}

// Fields returns the record's keys in sorted order.
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsMissing reports whether v counts as a missing value.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// ToFloat converts a scalar to float64. Missing values and non-numeric text
// return false.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FormatFloat renders a float the short way: 12 rather than 12.000000.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Table is an ordered set of columns plus the rows that carry them.
// Rows may omit columns; a missing key reads as nil.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column name if it is not declared yet.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// NumericColumn reports whether every non-missing cell of the column is a
// float64. A column with no values at all is not numeric.
func (t *Table) NumericColumn(name string) bool {
	seen := false
	for _, r := range t.Rows {
		v, ok := r[name]
		if !ok || IsMissing(v) {
			continue
		}
		if _, isFloat := v.(float64); !isFloat {
			return false
		}
		seen = true
	}
	return seen
}

// RawTable is a sheet of untyped cells as read from a spreadsheet export.
type RawTable struct {
	Name    string
	Headers []string
	Rows    [][]string
}
