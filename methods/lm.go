package methods

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/climproj/godownscale/predictors"
)

// LM downscales with ordinary least squares, the gaussian-family GLM special
// case solved in a single step. No occurrence/amount split applies.
type LM struct{}

// Train fits the regression coefficients by QR least squares.
func (l *LM) Train(dm *predictors.DesignMatrix) (Model, error) {
	x, y, err := trainingRows(dm, nil)
	if err != nil {
		return nil, err
	}
	xa := augment(x)
	n, p := xa.Dims()
	if n <= p {
		return nil, fmt.Errorf("%w: %d rows for %d coefficients", ErrNotEnoughData, n, p)
	}
	var beta mat.VecDense
	if err := beta.SolveVec(xa, mat.NewVecDense(len(y), y)); err != nil {
		return nil, fmt.Errorf("least squares solve: %w", err)
	}
	coef := make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = beta.AtVec(j)
	}
	return &lmModel{beta: coef}, nil
}

type lmModel struct {
	beta []float64
}

func (m *lmModel) Predict(x *mat.Dense) ([]float64, error) {
	rows, cols := x.Dims()
	if cols+1 != len(m.beta) {
		return nil, ErrShapeMismatch
	}
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := m.beta[0]
		for j := 0; j < cols; j++ {
			v += m.beta[j+1] * x.At(i, j)
		}
		out[i] = v
	}
	return out, nil
}
