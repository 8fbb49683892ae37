package services

import (
	"sort"

	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

// DroppedColumns never reach the model: identity and presentation fields.
var DroppedColumns = []string{models.FieldTitle, "image_path", "product_url", "url"}

// passthrough columns are never filled, encoded or scaled.
var passthrough = []string{models.FieldCategory, models.FieldPrice, models.FieldRating}

// Preprocessor holds statistics fitted on a category's cleaned table so that
// the same transformation can be replayed on single records at predict time.
// Fields are exported for gob.
type Preprocessor struct {
	Columns   []string                      // output columns, in table order
	Medians   map[string]float64            // numeric fill values
	Modes     map[string]string             // categorical fill values
	Encodings map[string]map[string]float64 // categorical label codes
	Mins      map[string]float64
	Maxs      map[string]float64
}

// FitPreprocessor learns fill values, label codes and scaling bounds from t.
func FitPreprocessor(t *models.Table) *Preprocessor {
	p := &Preprocessor{
		Medians:   make(map[string]float64),
		Modes:     make(map[string]string),
		Encodings: make(map[string]map[string]float64),
		Mins:      make(map[string]float64),
		Maxs:      make(map[string]float64),
	}

	for _, col := range t.Columns {
		if inList(DroppedColumns, col) || !hasValues(t, col) {
			continue
		}
		p.Columns = append(p.Columns, col)
		if inList(passthrough, col) {
			continue
		}

		if t.NumericColumn(col) {
			vals := numericValues(t, col)
			p.Medians[col] = utils.Median(vals)
			p.Mins[col], p.Maxs[col] = utils.Range(vals)
			continue
		}

		counts := make(map[string]int)
		for _, r := range t.Rows {
			if s := r.String(col); s != "" {
				counts[s]++
			}
		}
		uniques := make([]string, 0, len(counts))
		for s := range counts {
			uniques = append(uniques, s)
		}
		sort.Strings(uniques)

		codes := make(map[string]float64, len(uniques))
		mode := uniques[0]
		for i, s := range uniques {
			codes[s] = float64(i)
			if counts[s] > counts[mode] {
				mode = s
			}
		}
		p.Modes[col] = mode
		p.Encodings[col] = codes
		p.Mins[col], p.Maxs[col] = 0, float64(len(uniques)-1)
	}
	return p
}

// Transform returns a new record in the fitted representation. Fields the
// preprocessor was not fitted on are carried over unchanged, except the
// dropped identity columns and missing values.
func (p *Preprocessor) Transform(rec models.Record) models.Record {
	out := make(models.Record, len(rec))
	for k, v := range rec {
		if !inList(DroppedColumns, k) && !models.IsMissing(v) {
			out[k] = v
		}
	}

	for _, col := range p.Columns {
		if inList(passthrough, col) {
			if col != models.FieldCategory {
				if f, ok := rec.Float(col); ok {
					out[col] = f
				}
			}
			continue
		}

		var v float64
		if codes, ok := p.Encodings[col]; ok {
			s := rec.String(col)
			if s == "" {
				s = p.Modes[col]
			}
			code, known := codes[s]
			if !known {
				code = -1
			}
			v = code
		} else {
			f, ok := rec.Float(col)
			if !ok {
				f = p.Medians[col]
			}
			v = f
		}
		out[col] = p.scale(col, v)
	}
	return out
}

// TransformTable applies Transform to every row and drops the columns the
// preprocessor discarded.
func (p *Preprocessor) TransformTable(t *models.Table) *models.Table {
	out := &models.Table{Name: t.Name, Columns: append([]string(nil), p.Columns...)}
	for _, r := range t.Rows {
		rec := p.Transform(r)
		for k := range rec {
			if !inList(p.Columns, k) {
				delete(rec, k)
			}
		}
		out.Rows = append(out.Rows, rec)
	}
	return out
}

func (p *Preprocessor) scale(col string, v float64) float64 {
	lo, hi := p.Mins[col], p.Maxs[col]
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

func hasValues(t *models.Table, col string) bool {
	for _, r := range t.Rows {
		if r.Has(col) {
			return true
		}
	}
	return false
}

func numericValues(t *models.Table, col string) []float64 {
	var vals []float64
	for _, r := range t.Rows {
		if f, ok := r.Float(col); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

func inList(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
