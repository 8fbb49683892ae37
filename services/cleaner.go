package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

// numericThreshold is the share of parseable cells above which a column is
// treated as numeric.
const numericThreshold = 0.7

var (
	// numberRegexp captures the first number embedded in free text.
	numberRegexp = regexp.MustCompile(`\d+\.?\d*`)

	// unitWords are stripped from every cell before parsing.
	unitWords = []string{"سانتی متر", "سانتی‌متر", "سانتیمتر", "لیتر", "عدد"}

	// digitFolder maps Persian and Arabic-Indic digits and separators to ASCII.
	digitFolder = runes.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r == '٫':
			return '.'
		case r == '٬':
			return ','
		}
		return r
	})
)

// Cleaner turns raw spreadsheet tables into typed tables.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	if logger == nil {
		logger = utils.Discard()
	}
	return &Cleaner{logger: logger}
}

// Clean normalises every cell, types each column as numeric or text, and
// removes rows without an identity as well as duplicates. When the sheet has
// no category column, the table name is used as the category.
func (c *Cleaner) Clean(raw *models.RawTable) *models.Table {
	headers := normaliseHeaders(raw.Headers)

	cells := make([][]string, len(raw.Rows))
	for i, row := range raw.Rows {
		cells[i] = make([]string, len(headers))
		for j := range headers {
			if j < len(row) {
				cells[i][j] = NormaliseCell(row[j])
			}
		}
	}

	numeric := make([]bool, len(headers))
	for j, h := range headers {
		numeric[j] = isNumericColumn(cells, j)
		if numeric[j] {
			c.logger.Debug("[cleaner] %s: column %q identified as numeric", raw.Name, h)
		}
	}

	table := &models.Table{Name: raw.Name, Columns: headers}
	for _, row := range cells {
		rec := make(models.Record, len(headers))
		for j, h := range headers {
			rec[h] = typedValue(row[j], numeric[j])
		}
		table.Rows = append(table.Rows, rec)
	}

	before := len(table.Rows)
	for _, key := range []string{models.FieldTitle, models.FieldID} {
		if table.HasColumn(key) {
			table.Rows = dedupe(table.Rows, key)
			break
		}
	}

	if !table.HasColumn(models.FieldCategory) && raw.Name != "" {
		table.Columns = append(table.Columns, models.FieldCategory)
		for _, r := range table.Rows {
			r[models.FieldCategory] = raw.Name
		}
	}

	c.logger.Info("[cleaner] %s: cleaned %d → %d rows (dropped %d)",
		raw.Name, before, len(table.Rows), before-len(table.Rows))
	return table
}

// NormaliseDigits converts Persian and Arabic-Indic numerals to ASCII.
func NormaliseDigits(s string) string {
	out, _, err := transform.String(digitFolder, s)
	if err != nil {
		return s
	}
	return out
}

// NormaliseCell folds digits, strips unit words and thousands separators,
// and trims surrounding whitespace.
func NormaliseCell(s string) string {
	s = NormaliseDigits(s)
	for _, u := range unitWords {
		s = strings.ReplaceAll(s, u, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// ExtractNumber returns the first number found in text.
func ExtractNumber(s string) (float64, bool) {
	match := numberRegexp.FindString(s)
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// isNumericColumn compares parseable cells against every row, blanks included.
func isNumericColumn(cells [][]string, j int) bool {
	if len(cells) == 0 {
		return false
	}
	parsed := 0
	for _, row := range cells {
		if _, err := strconv.ParseFloat(row[j], 64); err == nil {
			parsed++
		}
	}
	return float64(parsed)/float64(len(cells)) > numericThreshold
}

func typedValue(cell string, numeric bool) any {
	if cell == "" {
		return nil
	}
	if !numeric {
		return cell
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	if f, ok := ExtractNumber(cell); ok {
		return f
	}
	return nil
}

// dedupe drops rows whose key is missing and keeps the first of duplicates.
func dedupe(rows []models.Record, key string) []models.Record {
	seen := utils.NewKeySet()
	out := rows[:0]
	for _, r := range rows {
		k := r.String(key)
		if k == "" || !seen.Add(k) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// normaliseHeaders trims header names, names blank headers after their
// position and suffixes repeated names.
func normaliseHeaders(headers []string) []string {
	out := make([]string, len(headers))
	count := make(map[string]int)
	for i, h := range headers {
		h = normaliseText(h)
		if h == "" {
			h = fmt.Sprintf("unnamed_%d", i)
		}
		if n := count[h]; n > 0 {
			count[h]++
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			count[h] = 1
		}
		out[i] = h
	}
	return out
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
