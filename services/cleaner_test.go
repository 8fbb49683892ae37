package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func TestNormaliseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"۱۲۰ سانتی متر", "120"},
		{"۶۰ سانتی‌متر", "60"},
		{"45سانتیمتر", "45"},
		{"۱۲ لیتر", "12"},
		{"۴ عدد", "4"},
		{"۲٬۵۰۰٬۰۰۰", "2500000"},
		{"12,500,000", "12500000"},
		{"٣٫٥", "3.5"},
		{"  Bosch  ", "Bosch"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormaliseCell(tt.raw), tt.raw)
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"about 7.5 kg", 7.5, true},
		{"A++ 220", 220, true},
		{"none", 0, false},
	}

	for _, tt := range tests {
		got, ok := ExtractNumber(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestCleanTypesColumns(t *testing.T) {
	raw := &models.RawTable{
		Name:    "Refrigerator",
		Headers: []string{"title", "price", "height", "brand", ""},
		Rows: [][]string{
			{"A", "۱۲,۰۰۰", "۱۸۰ سانتی متر", "LG", "x"},
			{"B", "15000", "175", "Samsung", ""},
			{"C", "", "about 170", "LG", ""},
			{"D", "9000", "160", "Bosch", ""},
		},
	}

	got := NewCleaner(newTestLogger()).Clean(raw)

	require.Len(t, got.Rows, 4)
	assert.Equal(t, []string{"title", "price", "height", "brand", "unnamed_4", "category"}, got.Columns)
	assert.Equal(t, 12000.0, got.Rows[0]["price"])
	assert.Nil(t, got.Rows[2]["price"])
	assert.Equal(t, 180.0, got.Rows[0]["height"])
	assert.Equal(t, 170.0, got.Rows[2]["height"], "extracted from text in a numeric column")
	assert.Equal(t, "LG", got.Rows[0]["brand"])
	assert.Equal(t, "Refrigerator", got.Rows[3]["category"])
	assert.True(t, got.NumericColumn("price"))
	assert.False(t, got.NumericColumn("brand"))
}

func TestNumericThresholdIsStrict(t *testing.T) {
	// 7 of 10 parse: exactly 70% is not enough.
	rows := make([][]string, 10)
	for i := range rows {
		v := "5"
		if i >= 7 {
			v = "n/a"
		}
		rows[i] = []string{string(rune('a' + i)), v}
	}
	got := NewCleaner(newTestLogger()).Clean(&models.RawTable{Name: "Juicer", Headers: []string{"title", "speed"}, Rows: rows})
	assert.Equal(t, "5", got.Rows[0]["speed"])

	rows[7][1] = "6"
	got = NewCleaner(newTestLogger()).Clean(&models.RawTable{Name: "Juicer", Headers: []string{"title", "speed"}, Rows: rows})
	assert.Equal(t, 5.0, got.Rows[0]["speed"])
	assert.Nil(t, got.Rows[8]["speed"])
}

func TestCleanDeduplicatesByTitle(t *testing.T) {
	raw := &models.RawTable{
		Name:    "fryer",
		Headers: []string{"title", "price"},
		Rows: [][]string{
			{"Air fryer X", "100"},
			{"", "200"},
			{"Air  fryer X", "300"},
			{"Air fryer Y", "400"},
		},
	}

	got := NewCleaner(newTestLogger()).Clean(raw)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, 100.0, got.Rows[0]["price"])
	assert.Equal(t, "Air fryer Y", got.Rows[1]["title"])
}

func TestCleanDeduplicatesByIDWithoutTitle(t *testing.T) {
	raw := &models.RawTable{
		Name:    "Stirrer",
		Headers: []string{"id", "category", "power"},
		Rows: [][]string{
			{"1", "Stirrer", "300"},
			{"1", "Stirrer", "350"},
			{"", "Stirrer", "400"},
			{"2", "Stirrer", "500"},
		},
	}

	got := NewCleaner(newTestLogger()).Clean(raw)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, []string{"id", "category", "power"}, got.Columns)
	assert.Equal(t, 500.0, got.Rows[1]["power"])
}

func TestNormaliseHeaders(t *testing.T) {
	assert.Equal(t,
		[]string{"title", "price", "price.1", "unnamed_3", "total capacity"},
		normaliseHeaders([]string{" title", "price", "price", "  ", "total   capacity"}))
}
