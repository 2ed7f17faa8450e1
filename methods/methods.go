// Package methods implements the downscaling method variants.
package methods

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/climproj/godownscale/predictors"
)

var (
	// ErrUnknownMethod is returned for a method name outside the closed set
	// {analogs, glm, lm}.
	ErrUnknownMethod = errors.New(`unknown downscaling method (valid: "analogs", "glm", "lm")`)
	// ErrUnknownSelection is returned for an unrecognized analog selection function.
	ErrUnknownSelection = errors.New(`unknown analog selection function (valid: "mean", "wmean", "max", "min", "median")`)
	// ErrUnknownFamily is returned for an unrecognized GLM error distribution.
	ErrUnknownFamily = errors.New(`unknown GLM family (valid: "gaussian", "binomial", "gamma")`)
	// ErrNotEnoughData is returned when too few usable training rows remain.
	ErrNotEnoughData = errors.New("not enough training rows to fit the model")
	// ErrShapeMismatch is returned when prediction data has the wrong column count.
	ErrShapeMismatch = errors.New("prediction rows do not match the trained predictor layout")
	// ErrNoConvergence is returned when the iterative GLM fit does not converge.
	ErrNoConvergence = errors.New("GLM fit did not converge")
)

// Model is a trained downscaling model. Predict maps prediction-period
// predictor rows to a predictand series, one value per row.
type Model interface {
	Predict(x *mat.Dense) ([]float64, error)
}

// Method trains a Model from a design matrix.
type Method interface {
	Train(dm *predictors.DesignMatrix) (Model, error)
}

// Options carries the method hyperparameters resolved at the orchestration
// boundary. Fields irrelevant to the selected method are ignored.
type Options struct {
	NAnalogs  int
	Selection Selection
	Family    Family
	Condition string
	Threshold float64
	Simulate  bool
	Seed      uint64
}

// New resolves a method name to its variant. The method set is closed; an
// unrecognized name fails immediately rather than falling back to a default.
func New(name string, opts Options) (Method, error) {
	switch name {
	case "analogs":
		n := opts.NAnalogs
		if n == 0 {
			n = 1
		}
		sel := opts.Selection
		if sel == "" {
			sel = SelMean
		}
		return &Analogs{N: n, Sel: sel}, nil
	case "glm":
		fam := opts.Family
		if fam == "" {
			fam = Gaussian
		}
		return &GLM{
			Family:    fam,
			Condition: opts.Condition,
			Threshold: opts.Threshold,
			Simulate:  opts.Simulate,
			Seed:      opts.Seed,
		}, nil
	case "lm":
		return &LM{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// trainingRows extracts usable (row, observation) pairs from a design matrix:
// masked (NaN) observations are dropped, and when keep is non-nil only rows
// it accepts are retained.
func trainingRows(dm *predictors.DesignMatrix, keep func(y float64) bool) (*mat.Dense, []float64, error) {
	rows, cols := dm.X.Dims()
	var idx []int
	for i := 0; i < rows; i++ {
		y := dm.Y[i]
		if math.IsNaN(y) {
			continue
		}
		if keep != nil && !keep(y) {
			continue
		}
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return nil, nil, ErrNotEnoughData
	}
	x := mat.NewDense(len(idx), cols, nil)
	y := make([]float64, len(idx))
	for k, i := range idx {
		x.SetRow(k, mat.Row(nil, i, dm.X))
		y[k] = dm.Y[i]
	}
	return x, y, nil
}

// augment prepends an intercept column.
func augment(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < c; j++ {
			out.Set(i, j+1, x.At(i, j))
		}
	}
	return out
}
