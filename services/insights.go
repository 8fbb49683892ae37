package services

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"time"

	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

const topN = 5

var (
	titleKeywords = []string{"title", "نام", "محصول"}
	priceKeywords = []string{"price", "قیمت"}
	sortKeywords  = []string{"stars", "امتیاز", "ظرفیت", "توان", "وزن", "capacity", "power", "weight"}
)

// InsightService runs the per-table summary queries.
type InsightService struct {
	logger *utils.Logger
	rnd    *rand.Rand
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return NewInsightServiceSeeded(logger, time.Now().UnixNano())
}

// NewInsightServiceSeeded fixes the random sample for reproducible output.
func NewInsightServiceSeeded(logger *utils.Logger, seed int64) *InsightService {
	if logger == nil {
		logger = utils.Discard()
	}
	return &InsightService{logger: logger, rnd: rand.New(rand.NewSource(seed))}
}

func (s *InsightService) Generate(t *models.Table) *models.InsightReport {
	report := &models.InsightReport{Table: t.Name, TotalItems: len(t.Rows)}
	if len(t.Columns) == 0 {
		return report
	}

	report.TitleColumn = findColumn(t.Columns, titleKeywords)
	if report.TitleColumn == "" {
		report.TitleColumn = t.Columns[0]
	}

	perm := s.rnd.Perm(len(t.Rows))
	for _, i := range perm[:min(topN, len(perm))] {
		report.Sample = append(report.Sample, t.Rows[i])
	}

	if col := findColumn(t.Columns, priceKeywords); col != "" {
		report.PriceColumn = col
		priced := withValue(t.Rows, col)
		report.HasPrice = len(priced) > 0

		var prices []float64
		for _, r := range priced {
			f, _ := r.Float(col)
			prices = append(prices, f)
		}
		report.AveragePrice = round2(utils.Mean(prices))
		report.MostExpensive = topBy(priced, col)
	}

	if col := findColumn(t.Columns, sortKeywords); col != "" {
		report.SortColumn = col
		report.TopBySort = topBy(withValue(t.Rows, col), col)
	}

	s.logger.Debug("[insights] %s: title=%q price=%q sort=%q",
		t.Name, report.TitleColumn, report.PriceColumn, report.SortColumn)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 TABLE INSIGHTS: %s\033[0m\n", r.Table)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total items : \033[1m%d\033[0m\n", r.TotalItems)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Random Sample\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Sample) == 0 {
		fmt.Fprintf(w, "  No results found\n")
	}
	for _, rec := range r.Sample {
		fmt.Fprintf(w, "  • %s\n", truncate(rec.String(r.TitleColumn), 50))
	}
	fmt.Fprintln(w)

	if r.PriceColumn != "" {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Items (%s)\033[0m\n", r.PriceColumn)
		fmt.Fprintf(w, "  %s\n", thin)
		printRanked(w, r.MostExpensive, r.TitleColumn, r.PriceColumn)
		if r.HasPrice {
			fmt.Fprintf(w, "  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		}
		fmt.Fprintln(w)
	}

	if r.SortColumn != "" {
		fmt.Fprintf(w, "\033[1;33m  Top %d by %s\033[0m\n", topN, r.SortColumn)
		fmt.Fprintf(w, "  %s\n", thin)
		printRanked(w, r.TopBySort, r.TitleColumn, r.SortColumn)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func printRanked(w io.Writer, recs []models.Record, titleCol, valueCol string) {
	if len(recs) == 0 {
		fmt.Fprintf(w, "  No results found\n")
		return
	}
	for i, rec := range recs {
		v, _ := rec.Float(valueCol)
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%s\033[0m\n",
			i+1, truncate(rec.String(titleCol), 38), models.FormatFloat(v))
	}
}

// findColumn returns the first column whose lowercased name contains any
// keyword.
func findColumn(columns, keywords []string) string {
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return col
			}
		}
	}
	return ""
}

func withValue(rows []models.Record, col string) []models.Record {
	var out []models.Record
	for _, r := range rows {
		if _, ok := r.Float(col); ok {
			out = append(out, r)
		}
	}
	return out
}

// topBy returns up to topN rows sorted by col, highest first.
func topBy(rows []models.Record, col string) []models.Record {
	sorted := append([]models.Record(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := sorted[i].Float(col)
		b, _ := sorted[j].Float(col)
		return a > b
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
