// Package pipeline wires the storage, cleaning, feature and model stages into
// the commands the CLI exposes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"appliance-pipeline/config"
	"appliance-pipeline/features"
	"appliance-pipeline/imputation"
	"appliance-pipeline/models"
	"appliance-pipeline/predictor"
	"appliance-pipeline/services"
	"appliance-pipeline/storage"
	"appliance-pipeline/utils"
)

// ErrNoInput is returned when a stage finds nothing to work on.
var ErrNoInput = errors.New("no input found")

// Runner executes pipeline stages against one store and one model directory.
type Runner struct {
	cfg      *config.Config
	store    storage.CategoryStore
	excel    *storage.ExcelReader
	cleaner  *services.Cleaner
	insights *services.InsightService
	catalog  *features.Catalog
	registry *predictor.FileRegistry
	logger   *utils.Logger
	out      io.Writer
}

// NewRunner builds a Runner. Reports are printed to out.
func NewRunner(cfg *config.Config, store storage.CategoryStore, logger *utils.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = utils.Discard()
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		excel:    storage.NewExcelReader(cfg.HeaderRow, logger),
		cleaner:  services.NewCleaner(logger),
		insights: services.NewInsightService(logger),
		catalog:  features.NewCatalog(logger),
		registry: predictor.NewFileRegistry(cfg.ModelsDir, logger),
		logger:   logger,
		out:      out,
	}
}

// OpenStore connects to the backend named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.CategoryStore, error) {
	switch cfg.StoreDriver {
	case "postgres":
		s, err := storage.NewPostgresStore(ctx, cfg.DSN(), cfg.MaxRetries, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := storage.NewSQLiteStore(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Import reads every workbook under the data directory, cleans it and
// replaces the category's table in the store. Workbooks are parsed in
// parallel; writes are sequential.
func (r *Runner) Import(ctx context.Context) error {
	r.logger.Info("=== [import] Loading workbooks from %s ===", r.cfg.DataDir)

	paths, err := r.excel.FindWorkbooks(r.cfg.DataDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("import: %w: no Excel files in %s", ErrNoInput, r.cfg.DataDir)
	}

	tables := make([]*models.Table, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := r.excel.ReadWorkbook(path)
			if err != nil {
				r.logger.Error("[import] %v", err)
				return nil
			}
			tables[i] = r.cleaner.Clean(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	imported := 0
	for i, t := range tables {
		if t == nil {
			continue
		}
		if len(t.Rows) == 0 {
			r.logger.Warn("[import] %s: no data left after cleaning, skipping", t.Name)
			continue
		}
		if err := r.store.Replace(ctx, t.Name, t); err != nil {
			r.logger.Error("[import] %s (%s): %v", t.Name, paths[i], err)
			continue
		}
		imported++
	}
	r.logger.Info("[import] %d of %d workbooks imported", imported, len(paths))
	return nil
}

// Export dumps every store table to the raw staging directory as CSV.
func (r *Runner) Export(ctx context.Context) error {
	r.logger.Info("=== [export] Exporting tables to %s ===", r.cfg.RawDir())

	names, err := r.store.Tables(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("export: %w: no tables in store", ErrNoInput)
	}

	for _, name := range names {
		t, err := r.store.Read(ctx, name)
		if err != nil {
			r.logger.Error("[export] %s: %v", name, err)
			continue
		}
		path := filepath.Join(r.cfg.RawDir(), name+".csv")
		if err := storage.WriteTable(path, t); err != nil {
			r.logger.Error("[export] %s: %v", name, err)
			continue
		}
		r.logger.Info("[export] Exported %q (%d rows) to %s", name, len(t.Rows), path)
	}
	return nil
}

// Preprocess fits a preprocessor per raw table, saves it next to the models
// and writes the transformed table.
func (r *Runner) Preprocess(ctx context.Context) error {
	r.logger.Info("=== [preprocess] %s → %s ===", r.cfg.RawDir(), r.cfg.PreprocessedDir())

	return r.eachCSV(ctx, "preprocess", r.cfg.RawDir(), func(t *models.Table) error {
		prep := services.FitPreprocessor(t)
		if err := r.registry.SavePreprocessor(t.Name, prep); err != nil {
			return err
		}
		out := prep.TransformTable(t)
		if err := storage.WriteTable(filepath.Join(r.cfg.PreprocessedDir(), t.Name+".csv"), out); err != nil {
			return err
		}
		r.logger.Info("[preprocess] %s: %d rows, %d columns", t.Name, len(out.Rows), len(out.Columns))
		return nil
	})
}

// Features derives the category's engineered columns for every preprocessed
// table.
func (r *Runner) Features(ctx context.Context) error {
	r.logger.Info("=== [features] %s → %s ===", r.cfg.PreprocessedDir(), r.cfg.FinalDir())

	return r.eachCSV(ctx, "features", r.cfg.PreprocessedDir(), func(t *models.Table) error {
		rows, created := r.catalog.ApplyBatch(t.Rows, t.Name)
		t.Rows = rows
		for _, c := range created {
			t.AddColumn(c)
		}
		if len(created) == 0 {
			r.logger.Info("[features] %s: no new features", t.Name)
		} else {
			r.logger.Info("[features] %s: created %v", t.Name, created)
		}
		return storage.WriteTable(filepath.Join(r.cfg.FinalDir(), t.Name+".csv"), t)
	})
}

// Train fits and saves the models for every final dataset. Categories train
// concurrently on the worker pool.
func (r *Runner) Train(ctx context.Context) error {
	r.logger.Info("=== [train] Training models from %s ===", r.cfg.FinalDir())

	algos, err := predictor.LoadAlgorithmMap(r.cfg.AlgorithmFile)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	trainer := predictor.NewTrainer(r.catalog, algos, predictor.TrainOptions{
		RidgeLambda: r.cfg.RidgeLambda,
		ForestTrees: r.cfg.ForestTrees,
		ForestDepth: r.cfg.ForestDepth,
		Seed:        r.cfg.RandomSeed,
		MinRows:     r.cfg.MinTrainRows,
	}, r.logger)

	paths, err := csvFiles(r.cfg.FinalDir())
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if len(paths) == 0 {
		r.logger.Warn("[train] No final datasets found in %s", r.cfg.FinalDir())
		return nil
	}

	pool := utils.NewWorkerPool(r.cfg.MaxConcurrency)
	for _, path := range paths {
		name := storage.TableName(path)
		pool.Submit(name, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := storage.ReadTable(path)
			if err != nil {
				return err
			}
			trained, err := trainer.Train(name, t)
			for _, m := range trained {
				if serr := r.registry.Save(m); serr != nil {
					err = errors.Join(err, serr)
				}
			}
			return err
		})
	}
	if err := pool.Wait(); err != nil {
		r.logger.Error("[train] %v", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Predict imputes missing price and rating in the input CSV and writes the
// result to output. An empty output defaults to predicted_<input name> in the
// working directory.
func (r *Runner) Predict(ctx context.Context, input, output string) (*models.ImputationReport, error) {
	if output == "" {
		output = "predicted_" + filepath.Base(input)
	}
	r.logger.Info("=== [predict] %s → %s ===", input, output)

	t, err := storage.ReadTable(input)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine := imputation.NewEngine(r.catalog, r.registry, r.logger, imputation.WithPreprocessors(r.registry))
	rows, report := engine.ImputeBatch(t.Rows)
	t.Rows = rows
	if report.Counts[models.KindPredicted] > 0 {
		t.AddColumn(models.FieldPrice)
		t.AddColumn(models.FieldRating)
	}

	if err := storage.WriteTable(output, t); err != nil {
		return report, fmt.Errorf("predict: %w", err)
	}
	r.logger.Info("[predict] Predictions saved to %s", output)
	return report, nil
}

// Query prints the summary report of every store table.
func (r *Runner) Query(ctx context.Context) error {
	names, err := r.store.Tables(ctx)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("query: %w: no tables in store", ErrNoInput)
	}
	for _, name := range names {
		t, err := r.store.Read(ctx, name)
		if err != nil {
			r.logger.Error("[query] %s: %v", name, err)
			continue
		}
		r.insights.Print(r.out, r.insights.Generate(t))
	}
	return nil
}

// Run executes import, export, preprocess, features and train in order,
// stopping at the first stage that fails.
func (r *Runner) Run(ctx context.Context) error {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"import", r.Import},
		{"export", r.Export},
		{"preprocess", r.Preprocess},
		{"features", r.Features},
		{"train", r.Train},
	}
	for i, s := range stages {
		r.logger.Info("--- [%d/%d] %s ---", i+1, len(stages), s.name)
		if err := s.fn(ctx); err != nil {
			return err
		}
	}
	r.logger.Info("=== Pipeline finished ===")
	return nil
}

// eachCSV applies fn to every CSV table in dir. A failing table is logged and
// skipped.
func (r *Runner) eachCSV(ctx context.Context, stage, dir string, fn func(*models.Table) error) error {
	paths, err := csvFiles(dir)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	if len(paths) == 0 {
		r.logger.Warn("[%s] No files found in %s", stage, dir)
		return nil
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := storage.ReadTable(path)
		if err == nil {
			err = fn(t)
		}
		if err != nil {
			r.logger.Error("[%s] %s: %v", stage, filepath.Base(path), err)
		}
	}
	return nil
}

func csvFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
