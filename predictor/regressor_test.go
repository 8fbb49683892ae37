package predictor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearRegressionRecoversPlane(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		a, b := float64(i), float64((i*7)%5)
		X = append(X, []float64{a, b})
		y = append(y, 3*a-2*b+5)
	}

	m := NewLinearRegression(0)
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 3, m.Coef[0], 1e-6)
	assert.InDelta(t, -2, m.Coef[1], 1e-6)
	assert.InDelta(t, 5, m.Intercept, 1e-6)
	assert.InDelta(t, 3*4.0-2*1.0+5, m.Predict([]float64{4, 1}), 1e-6)
}

func TestLinearRegressionHandlesConstantColumn(t *testing.T) {
	X := [][]float64{{1, 7}, {2, 7}, {3, 7}, {4, 7}}
	y := []float64{2, 4, 6, 8}

	m := NewLinearRegression(0.001)
	require.NoError(t, m.Fit(X, y))
	got := m.Predict([]float64{5, 7})
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, 10, got, 0.05)
}

func TestRegressorsRejectBadShapes(t *testing.T) {
	tests := []struct {
		name string
		X    [][]float64
		y    []float64
	}{
		{"empty", nil, nil},
		{"length mismatch", [][]float64{{1}, {2}}, []float64{1}},
		{"ragged", [][]float64{{1, 2}, {3}}, []float64{1, 2}},
		{"no features", [][]float64{{}, {}}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewLinearRegression(0).Fit(tt.X, tt.y))
			assert.Error(t, NewForestRegressor(5, 4, 1).Fit(tt.X, tt.y))
		})
	}
}

func TestForestFitsStepFunction(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		X = append(X, []float64{x})
		if x < 20 {
			y = append(y, 10)
		} else {
			y = append(y, 50)
		}
	}

	f := NewForestRegressor(25, 6, 42)
	require.NoError(t, f.Fit(X, y))
	assert.Len(t, f.Trees, 25)
	assert.InDelta(t, 10, f.Predict([]float64{3}), 5)
	assert.InDelta(t, 50, f.Predict([]float64{35}), 5)
}

func TestForestIsReproducible(t *testing.T) {
	X := [][]float64{{1, 4}, {2, 3}, {3, 8}, {4, 1}, {5, 5}, {6, 2}, {7, 9}, {8, 0}}
	y := []float64{3, 5, 2, 8, 6, 9, 1, 12}

	a := NewForestRegressor(10, 4, 7)
	b := NewForestRegressor(10, 4, 7)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Trees, b.Trees)
	assert.Equal(t, a.Predict([]float64{4.5, 4}), b.Predict([]float64{4.5, 4}))
}

func TestForestConstantTargetIsSingleLeaf(t *testing.T) {
	f := NewForestRegressor(3, 0, 1)
	require.NoError(t, f.Fit([][]float64{{1}, {2}, {3}}, []float64{4, 4, 4}))
	for _, tree := range f.Trees {
		assert.Len(t, tree, 1)
		assert.True(t, tree[0].Leaf)
	}
	assert.Equal(t, 4.0, f.Predict([]float64{100}))
}
