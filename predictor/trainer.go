package predictor

import (
	"fmt"
	"time"

	"appliance-pipeline/features"
	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

// TrainOptions carries the hyperparameters shared by every fit.
type TrainOptions struct {
	RidgeLambda float64
	ForestTrees int
	ForestDepth int
	Seed        int64
	MinRows     int
}

// DefaultTrainOptions mirrors the config defaults.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{RidgeLambda: 0.001, ForestTrees: 50, ForestDepth: 8, Seed: 42, MinRows: 3}
}

// Trainer fits one model per task for a category's final dataset.
type Trainer struct {
	catalog    *features.Catalog
	algorithms AlgorithmMap
	opts       TrainOptions
	logger     *utils.Logger
}

// NewTrainer creates a Trainer.
func NewTrainer(catalog *features.Catalog, algorithms AlgorithmMap, opts TrainOptions, logger *utils.Logger) *Trainer {
	if logger == nil {
		logger = utils.Discard()
	}
	return &Trainer{catalog: catalog, algorithms: algorithms, opts: opts, logger: logger}
}

// Train fits every task the algorithm map configures for category. Tasks
// that cannot be trained are skipped with a warning; an error is returned
// only when a fit itself fails.
func (t *Trainer) Train(category string, table *models.Table) ([]*Model, error) {
	var out []*Model
	for _, task := range models.AllTasks {
		algo, ok := t.algorithms.For(category, task)
		if !ok {
			t.logger.Warn("[train] %s/%s: no model defined for this task, skipping", category, task)
			continue
		}
		if !table.HasColumn(task.Target()) {
			t.logger.Warn("[train] %s/%s: column %q not found, skipping", category, task, task.Target())
			continue
		}

		m, err := t.trainTask(category, task, algo, table)
		if err != nil {
			return out, fmt.Errorf("train %s/%s: %w", category, task, err)
		}
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (t *Trainer) trainTask(category string, task models.Task, algo Algorithm, table *models.Table) (*Model, error) {
	cols := t.FeatureColumns(category, task, table)
	if len(cols) == 0 {
		t.logger.Warn("[train] %s/%s: no features available, skipping", category, task)
		return nil, nil
	}

	var rows []models.Record
	var y []float64
	for _, r := range table.Rows {
		if v, ok := r.Float(task.Target()); ok {
			rows = append(rows, r)
			y = append(y, v)
		}
	}
	if len(rows) < t.opts.MinRows {
		t.logger.Warn("[train] %s/%s: only %d rows with a %s, need %d, skipping",
			category, task, len(rows), task.Target(), t.opts.MinRows)
		return nil, nil
	}

	fill := make(map[string]float64, len(cols))
	for _, c := range cols {
		fill[c] = columnMedian(rows, c)
	}

	X := make([][]float64, len(rows))
	for i, r := range rows {
		x := make([]float64, len(cols))
		for j, c := range cols {
			if v, ok := r.Float(c); ok {
				x[j] = v
			} else {
				x[j] = fill[c]
			}
		}
		X[i] = x
	}

	lin, forest, err := newRegressor(algo, t.opts)
	if err != nil {
		return nil, err
	}
	var reg Regressor = lin
	if forest != nil {
		reg = forest
	}
	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}

	t.logger.Info("[train] %s/%s: %s fitted on %d rows, %d features", category, task, algo, len(rows), len(cols))
	return &Model{
		Category:  category,
		Task:      task,
		Algorithm: algo,
		Features:  cols,
		Fill:      fill,
		Rows:      len(rows),
		TrainedAt: time.Now(),
		Linear:    lin,
		Forest:    forest,
	}, nil
}

// FeatureColumns returns the numeric columns a task may train on: everything
// numeric except the task's excluded fields, the category label, and derived
// features computed from an excluded field.
func (t *Trainer) FeatureColumns(category string, task models.Task, table *models.Table) []string {
	var cols []string
	for _, c := range table.Columns {
		if c == models.FieldCategory || task.Excludes(c) || !table.NumericColumn(c) {
			continue
		}
		if inputs, derived := t.catalog.DependsOn(category, c); derived && excludesAny(task, inputs) {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

func excludesAny(task models.Task, fields []string) bool {
	for _, f := range fields {
		if task.Excludes(f) {
			return true
		}
	}
	return false
}

// columnMedian is the median of the non-missing values of a column; 0 when
// the column is empty.
func columnMedian(rows []models.Record, col string) float64 {
	var vals []float64
	for _, r := range rows {
		if v, ok := r.Float(col); ok {
			vals = append(vals, v)
		}
	}
	return utils.Median(vals)
}
