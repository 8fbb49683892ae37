// Package predictor trains, persists and serves the per-category regressors
// that impute price and rating.
package predictor

import (
	"fmt"
	"math"
	"time"

	"appliance-pipeline/models"
)

// Regressor is a single-output regression algorithm.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Algorithm names a Regressor implementation.
type Algorithm string

const (
	AlgorithmLinear Algorithm = "linear"
	AlgorithmForest Algorithm = "forest"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a == AlgorithmLinear || a == AlgorithmForest
}

// Model is a trained regressor together with the feature contract it was
// fitted on. Exactly one of Linear and Forest is set.
type Model struct {
	Category  string
	Task      models.Task
	Algorithm Algorithm
	Features  []string
	Fill      map[string]float64 // training medians, used for absent features
	Rows      int
	TrainedAt time.Time

	Linear *LinearRegression
	Forest *ForestRegressor
}

// FeatureNames returns a copy of the trained feature names, in order.
func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.Features))
	copy(out, m.Features)
	return out
}

// Predict builds the input vector in training order and runs the regressor.
func (m *Model) Predict(features map[string]float64) (float64, error) {
	reg := m.regressor()
	if reg == nil {
		return 0, fmt.Errorf("%w: %s/%s has no fitted %s regressor",
			models.ErrPredictionFailed, m.Category, m.Task, m.Algorithm)
	}

	x := make([]float64, len(m.Features))
	for i, name := range m.Features {
		if v, ok := features[name]; ok {
			x[i] = v
		} else {
			x[i] = m.Fill[name]
		}
	}

	y := reg.Predict(x)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("%w: %s/%s produced %v", models.ErrPredictionFailed, m.Category, m.Task, y)
	}
	return y, nil
}

func (m *Model) regressor() Regressor {
	switch {
	case m.Linear != nil:
		return m.Linear
	case m.Forest != nil:
		return m.Forest
	}
	return nil
}
