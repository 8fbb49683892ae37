package storage

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

// ExcelReader loads category workbooks from the data directory. Each
// workbook sits in a folder named after its category.
type ExcelReader struct {
	headerRow int
	logger    *utils.Logger
}

// NewExcelReader creates a reader whose header is on the given zero-based row.
func NewExcelReader(headerRow int, logger *utils.Logger) *ExcelReader {
	if logger == nil {
		logger = utils.Discard()
	}
	return &ExcelReader{headerRow: headerRow, logger: logger}
}

// FindWorkbooks walks dir recursively and returns every .xlsx file, sorted.
// Office lock files (~$name.xlsx) are skipped.
func (r *ExcelReader) FindWorkbooks(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("excel: walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadWorkbook reads the first sheet of a workbook. The table is named after
// the workbook's parent directory.
func (r *ExcelReader) ReadWorkbook(path string) (*models.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("excel: open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel: %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("excel: read %s: %w", path, err)
	}
	if len(rows) <= r.headerRow {
		return nil, fmt.Errorf("excel: %s has no header on row %d", path, r.headerRow+1)
	}

	raw := &models.RawTable{Name: CategoryFromPath(path), Headers: rows[r.headerRow]}
	for _, row := range rows[r.headerRow+1:] {
		if blank(row) {
			continue
		}
		cells := make([]string, len(raw.Headers))
		copy(cells, row)
		raw.Rows = append(raw.Rows, cells)
	}

	r.logger.Info("[excel] %s: read %d rows and %d columns", raw.Name, len(raw.Rows), len(raw.Headers))
	return raw, nil
}

// CategoryFromPath returns the name of the directory holding a workbook.
func CategoryFromPath(path string) string {
	return filepath.Base(filepath.Dir(path))
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
