package predictor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an L2 penalty, solved in
// closed form on centred data. The intercept is not penalised.
type LinearRegression struct {
	Lambda    float64
	Coef      []float64
	Intercept float64
}

// NewLinearRegression returns an unfitted ridge regressor.
func NewLinearRegression(lambda float64) *LinearRegression {
	return &LinearRegression{Lambda: lambda}
}

// Fit solves (XcᵀXc + λI)β = Xcᵀyc.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	n, p, err := shape(X, y)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}

	means := make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	data := make([]float64, 0, n*p)
	for _, row := range X {
		for j, v := range row {
			data = append(data, v-means[j])
		}
	}
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}
	xc := mat.NewDense(n, p, data)

	var xtx mat.Dense
	xtx.Mul(xc.T(), xc)
	lambda := m.Lambda
	if lambda < minLambda {
		lambda = minLambda
	}
	for j := 0; j < p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+lambda)
	}

	var xty mat.VecDense
	xty.MulVec(xc.T(), mat.NewVecDense(n, yc))

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("linear: solve: %w", err)
		}
		// Ill-conditioned but solved; the ridge term keeps the result bounded.
	}

	m.Coef = make([]float64, p)
	copy(m.Coef, beta.RawVector().Data)
	m.Intercept = yMean
	for j, c := range m.Coef {
		m.Intercept -= c * means[j]
	}
	return nil
}

// Predict returns β·x + intercept.
func (m *LinearRegression) Predict(x []float64) float64 {
	sum := m.Intercept
	for j, c := range m.Coef {
		if j < len(x) {
			sum += c * x[j]
		}
	}
	return sum
}

// minLambda keeps XᵀX invertible when features are collinear or constant.
const minLambda = 1e-9

func shape(X [][]float64, y []float64) (n, p int, err error) {
	n = len(X)
	if n == 0 {
		return 0, 0, errors.New("empty X")
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("X has %d rows but y has %d", n, len(y))
	}
	p = len(X[0])
	if p == 0 {
		return 0, 0, errors.New("no features")
	}
	for i, row := range X {
		if len(row) != p {
			return 0, 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), p)
		}
	}
	return n, p, nil
}
