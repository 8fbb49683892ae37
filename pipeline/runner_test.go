package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"appliance-pipeline/config"
	"appliance-pipeline/models"
	"appliance-pipeline/storage"
	"appliance-pipeline/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		StoreDriver:    "sqlite",
		SQLitePath:     filepath.Join(dir, "database", "dataset.db"),
		DataDir:        filepath.Join(dir, "data"),
		StagingDir:     filepath.Join(dir, "staging"),
		ModelsDir:      filepath.Join(dir, "models_store"),
		AlgorithmFile:  filepath.Join(dir, "models.yaml"),
		HeaderRow:      1,
		MaxConcurrency: 2,
		MaxRetries:     1,
		LogLevel:       "error",
		ForestTrees:    10,
		ForestDepth:    6,
		RidgeLambda:    0.001,
		RandomSeed:     42,
		MinTrainRows:   3,
	}
}

func newTestRunner(t *testing.T, cfg *config.Config) (*Runner, *bytes.Buffer) {
	t.Helper()
	store, err := OpenStore(context.Background(), cfg, utils.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	out := &bytes.Buffer{}
	return NewRunner(cfg, store, utils.Discard(), out), out
}

// writeWashingMachines lays out data/Washing_machine/list.xlsx with a title
// row above the header, the way the marketplace exports look.
func writeWashingMachines(t *testing.T, dataDir string) {
	t.Helper()
	path := filepath.Join(dataDir, "Washing_machine", "list.xlsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Washing machines export"},
		{"title", "price", "rating", "capacity", "water_consumption", "power_consumption", "brand"},
	}
	brands := []string{"LG", "Samsung", "Bosch"}
	for i := 0; i < 12; i++ {
		capacity := 5 + i%5
		rows = append(rows, []any{
			fmt.Sprintf("Washer %d", i),
			fmt.Sprintf("%d,000", 10+capacity*2+i%3),
			fmt.Sprintf("%.1f", 3.0+float64(i%4)*0.5),
			fmt.Sprintf("%d", capacity),
			fmt.Sprintf("%d لیتر", 40+i),
			fmt.Sprintf("%d", 150+10*i),
			brands[i%3],
		})
	}
	rows = append(rows, []any{"Washer 0", "1", "1", "1", "1", "1", "LG"})
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestRunThenPredict(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeWashingMachines(t, cfg.DataDir)
	r, _ := newTestRunner(t, cfg)

	require.NoError(t, r.Run(ctx))

	stored, err := r.store.Read(ctx, "Washing_machine")
	require.NoError(t, err)
	assert.Len(t, stored.Rows, 12, "duplicate title dropped")
	assert.Equal(t, 20000.0, stored.Rows[0]["price"])

	for _, dir := range []string{cfg.RawDir(), cfg.PreprocessedDir(), cfg.FinalDir()} {
		assert.FileExists(t, filepath.Join(dir, "Washing_machine.csv"))
	}
	final, err := storage.ReadTable(filepath.Join(cfg.FinalDir(), "Washing_machine.csv"))
	require.NoError(t, err)
	assert.True(t, final.HasColumn("efficiency_score"))
	assert.True(t, final.HasColumn("value_score"))
	assert.False(t, final.HasColumn("title"))

	for _, task := range models.AllTasks {
		assert.FileExists(t, filepath.Join(cfg.ModelsDir, fmt.Sprintf("Washing_machine_%s_model.gob", task)))
	}
	assert.FileExists(t, filepath.Join(cfg.ModelsDir, "Washing_machine_preprocessor.gob"))

	input := filepath.Join(t.TempDir(), "new_items.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"title,category,price,rating,capacity,water_consumption,power_consumption,brand\n"+
			"New washer,Washing_machine,,,7,50,200,LG\n"+
			"Rated washer,Washing_machine,21000,4.5,8,45,180,Bosch\n"+
			"Mystery,,,,1,1,1,LG\n"+
			"Blender,Blender,,,1,1,1,Moulinex\n"), 0o644))
	output := filepath.Join(t.TempDir(), "out.csv")

	report, err := r.Predict(ctx, input, output)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Records)
	assert.Equal(t, 2, report.Counts[models.KindPredicted])
	assert.Equal(t, 1, report.Counts[models.KindMissingCategory])
	assert.Equal(t, 2, report.Counts[models.KindModelNotFound])

	got, err := storage.ReadTable(output)
	require.NoError(t, err)
	require.Len(t, got.Rows, 4)
	price, ok := got.Rows[0].Float("price")
	require.True(t, ok)
	assert.Greater(t, price, 0.0)
	assert.True(t, got.Rows[0].Has("rating"))
	assert.Equal(t, 21000.0, got.Rows[1]["price"])
	assert.Equal(t, 4.5, got.Rows[1]["rating"])
	assert.False(t, got.Rows[2].Has("price"))
	assert.False(t, got.Rows[3].Has("price"))
}

func TestPredictUnreadableInputIsFatal(t *testing.T) {
	r, _ := newTestRunner(t, testConfig(t))
	_, err := r.Predict(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "")
	assert.Error(t, err)
}

func TestImportWithoutWorkbooks(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	r, _ := newTestRunner(t, cfg)

	err := r.Import(context.Background())
	assert.ErrorIs(t, err, ErrNoInput)
	assert.ErrorIs(t, r.Run(context.Background()), ErrNoInput)
}

func TestExportAndQueryNeedTables(t *testing.T) {
	r, _ := newTestRunner(t, testConfig(t))
	assert.ErrorIs(t, r.Export(context.Background()), ErrNoInput)
	assert.ErrorIs(t, r.Query(context.Background()), ErrNoInput)
}

func TestQueryPrintsEveryTable(t *testing.T) {
	ctx := context.Background()
	r, out := newTestRunner(t, testConfig(t))
	for _, name := range []string{"fryer", "Juicer"} {
		require.NoError(t, r.store.Replace(ctx, name, &models.Table{
			Columns: []string{"title", "price", "power"},
			Rows: []models.Record{
				{"title": "A", "price": 10.0, "power": 100.0},
				{"title": "B", "price": 30.0, "power": 300.0},
			},
		}))
	}

	require.NoError(t, r.Query(ctx))
	assert.Contains(t, out.String(), "TABLE INSIGHTS: fryer")
	assert.Contains(t, out.String(), "TABLE INSIGHTS: Juicer")
	assert.Contains(t, out.String(), "20.00")
}

func TestStagesSkipEmptyDirectories(t *testing.T) {
	r, _ := newTestRunner(t, testConfig(t))
	ctx := context.Background()
	assert.NoError(t, r.Preprocess(ctx))
	assert.NoError(t, r.Features(ctx))
	assert.NoError(t, r.Train(ctx))
}
