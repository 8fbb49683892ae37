package predictor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v2"

	"appliance-pipeline/models"
)

// AlgorithmMap chooses the algorithm per category and task. Categories that
// are not listed fall back to Default; an empty Default means no model.
type AlgorithmMap struct {
	Default    Algorithm                             `yaml:"default"`
	Categories map[string]map[models.Task]Algorithm `yaml:"categories"`
}

// For returns the algorithm for (category, task), or false when none is
// configured.
func (m AlgorithmMap) For(category string, task models.Task) (Algorithm, bool) {
	if tasks, ok := m.Categories[category]; ok {
		a, ok := tasks[task]
		return a, ok && a != ""
	}
	return m.Default, m.Default != ""
}

// Validate rejects unknown algorithm and task names.
func (m AlgorithmMap) Validate() error {
	if m.Default != "" && !m.Default.Valid() {
		return fmt.Errorf("default: unknown algorithm %q", m.Default)
	}
	for category, tasks := range m.Categories {
		for task, a := range tasks {
			if !task.Valid() {
				return fmt.Errorf("%s: unknown task %q", category, task)
			}
			if !a.Valid() {
				return fmt.Errorf("%s/%s: unknown algorithm %q", category, task, a)
			}
		}
	}
	return nil
}

// DefaultAlgorithmMap is the built-in choice of algorithm per category,
// picked from earlier model comparisons.
func DefaultAlgorithmMap() AlgorithmMap {
	lin, rf := AlgorithmLinear, AlgorithmForest
	row := func(price, withPrice, withoutPrice Algorithm) map[models.Task]Algorithm {
		return map[models.Task]Algorithm{
			models.TaskPrice:              price,
			models.TaskRatingWithPrice:    withPrice,
			models.TaskRatingWithoutPrice: withoutPrice,
		}
	}
	return AlgorithmMap{
		Categories: map[string]map[models.Task]Algorithm{
			"Dishwasher":      row(rf, rf, rf),
			"Gas_stove":       row(rf, rf, rf),
			"Juicer":          row(rf, rf, lin),
			"Meat_grinder":    row(rf, lin, lin),
			"Refrigerator":    row(rf, rf, rf),
			"Rice_cooker":     row(rf, rf, rf),
			"Stirrer":         row(rf, rf, rf),
			"Washing_machine": row(rf, rf, rf),
			"fryer":           row(rf, rf, rf),
		},
	}
}

// LoadAlgorithmMap reads a YAML algorithm map. A missing file yields the
// built-in map.
func LoadAlgorithmMap(path string) (AlgorithmMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultAlgorithmMap(), nil
	}
	if err != nil {
		return AlgorithmMap{}, fmt.Errorf("failed to read algorithm map: %w", err)
	}

	var m AlgorithmMap
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return AlgorithmMap{}, fmt.Errorf("failed to parse algorithm map %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return AlgorithmMap{}, fmt.Errorf("invalid algorithm map %s: %w", path, err)
	}
	return m, nil
}

// newRegressor constructs an unfitted regressor for the algorithm.
func newRegressor(a Algorithm, opts TrainOptions) (*LinearRegression, *ForestRegressor, error) {
	switch a {
	case AlgorithmLinear:
		return NewLinearRegression(opts.RidgeLambda), nil, nil
	case AlgorithmForest:
		f := NewForestRegressor(opts.ForestTrees, opts.ForestDepth, opts.Seed)
		return nil, f, nil
	}
	return nil, nil, fmt.Errorf("unknown algorithm %q", a)
}
