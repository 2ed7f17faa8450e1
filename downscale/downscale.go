// Package downscale orchestrates perfect-prog statistical downscaling.
package downscale

import (
	"errors"
	"fmt"
	"time"

	"github.com/climproj/godownscale/folds"
	"github.com/climproj/godownscale/grid"
	"github.com/climproj/godownscale/methods"
	"github.com/climproj/godownscale/predictors"
)

var (
	// ErrDateMismatch is returned when predictor and predictand do not share
	// an identical reference-date sequence.
	ErrDateMismatch = errors.New("predictor and predictand reference dates differ: align both series to the same dates before downscaling")
	// ErrNilGrid is returned when predictand or predictor is missing.
	ErrNilGrid = errors.New("predictand and predictor grids are required")
)

// simulateThreshold is the fixed wet/dry cut used for the occurrence split
// when stochastic simulation is requested. Simulated output needs a
// near-universal occurrence definition, so the caller-supplied wet threshold
// is deliberately ignored in that case.
const simulateThreshold = 0.01

// Options configures one downscaling run. The zero value selects no
// cross-validation and raw standardized predictors; Method must be set.
type Options struct {
	// Method is one of "analogs", "glm", "lm".
	Method string
	// Family is the GLM error distribution for the amount sub-model.
	// Defaults to gamma/log.
	Family methods.Family
	// Simulate draws from the fitted conditional distributions instead of
	// returning conditional means (glm only).
	Simulate bool
	// NAnalogs is the number of analog days (analogs only, default 1).
	NAnalogs int
	// Selection aggregates the analog predictand values (default mean).
	Selection methods.Selection
	// WetThreshold separates dry from wet predictand values (glm only).
	WetThreshold float64
	// Spatial configures principal-component predictors; nil means raw
	// standardized fields.
	Spatial *predictors.Config
	// CrossVal is the fold plan; the zero value disables cross-validation.
	CrossVal folds.Plan
	// Seed makes simulation draws reproducible.
	Seed uint64
}

// Downscale trains a statistical model mapping the predictor grid x to the
// station predictand y and returns the predicted series.
//
// Without cross-validation the model is trained on the full period and
// predicts on newdata; a nil newdata predicts back onto the training
// predictors. With cross-validation, newdata is ignored: each fold is
// predicted from a model trained on the remaining periods and the per-fold
// predictions are concatenated in fold order. Standardization and
// principal components are fit per fold, never across the held-out period.
//
// Method "glm" applies the two-stage occurrence/amount decomposition for
// precipitation-like predictands: a binomial/logit model on the binarized
// series and a gamma/log model fit on wet days only, recombined as an
// occurrence gate on the amounts. In a simulated run dry timesteps of the
// final series are masked as NaN by the wet threshold; use
// (*grid.Grid).FillMasked(0) for a physically dry series.
func Downscale(y, x, newdata *grid.Grid, opts Options) (*grid.Grid, error) {
	if y == nil || x == nil {
		return nil, ErrNilGrid
	}
	if !x.SameDates(y) {
		return nil, ErrDateMismatch
	}
	switch opts.Method {
	case "analogs", "glm", "lm":
	default:
		return nil, fmt.Errorf("%w: %q", methods.ErrUnknownMethod, opts.Method)
	}
	if newdata == nil {
		newdata = x
	}

	if opts.CrossVal.Mode() == folds.ModeNone {
		vals, err := runCycle(y, x, newdata, opts)
		if err != nil {
			return nil, err
		}
		return grid.NewSeries(newdata.RefDates(), vals, y.Name)
	}

	cycles, err := opts.CrossVal.Cycles(x)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	var vals []float64
	for i, c := range cycles {
		xtr := x.SubsetIndex(c.Train)
		ytr := y.SubsetIndex(c.Train)
		xte := x.SubsetIndex(c.Test)
		fv, err := runCycle(ytr, xtr, xte, opts)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
		dates = append(dates, xte.RefDates()...)
		vals = append(vals, fv...)
	}
	return grid.NewSeries(dates, vals, y.Name)
}

// runCycle executes one train/predict evaluation: fit on (ytr, xtr), predict
// on xte.
func runCycle(ytr, xtr, xte *grid.Grid, opts Options) ([]float64, error) {
	if opts.Method != "glm" {
		method, err := methods.New(opts.Method, methods.Options{
			NAnalogs:  opts.NAnalogs,
			Selection: opts.Selection,
			Seed:      opts.Seed,
		})
		if err != nil {
			return nil, err
		}
		dm, err := predictors.Prepare(xtr, ytr, opts.Spatial)
		if err != nil {
			return nil, err
		}
		xnew, err := predictors.PrepareNew(xte, dm)
		if err != nil {
			return nil, err
		}
		model, err := method.Train(dm)
		if err != nil {
			return nil, err
		}
		return model.Predict(xnew)
	}
	return runPrecip(ytr, xtr, xte, opts)
}

// occurrenceThreshold selects the wet/dry cut for the occurrence split.
// Simulation overrides the caller-supplied wet threshold with the fixed
// epsilon; this asymmetry is intentional.
func occurrenceThreshold(simulate bool, wet float64) float64 {
	if simulate {
		return simulateThreshold
	}
	return wet
}

// decompose splits a precipitation-like series into a binary occurrence
// series and a partial amount series whose dry values are masked, not zeroed.
// Both share the input's date index.
func decompose(y *grid.Grid, simulate bool, wet float64) (occ, amo *grid.Grid) {
	thr := occurrenceThreshold(simulate, wet)
	return y.Binary(thr, false), y.Binary(thr, true)
}

// runPrecip runs the two-stage occurrence/amount cycle for method "glm".
func runPrecip(ytr, xtr, xte *grid.Grid, opts Options) ([]float64, error) {
	occ, amo := decompose(ytr, opts.Simulate, opts.WetThreshold)

	occMethod := &methods.GLM{
		Family:   methods.Binomial,
		Simulate: opts.Simulate,
		Seed:     opts.Seed,
	}
	amoFamily := opts.Family
	if amoFamily == "" {
		amoFamily = methods.Gamma
	}
	amoMethod := &methods.GLM{
		Family:    amoFamily,
		Condition: "GT",
		Threshold: 0,
		Simulate:  opts.Simulate,
		Seed:      opts.Seed + 1,
	}

	dmOcc, err := predictors.Prepare(xtr, occ, opts.Spatial)
	if err != nil {
		return nil, err
	}
	dmAmo, err := predictors.Prepare(xtr, amo, opts.Spatial)
	if err != nil {
		return nil, err
	}
	xnew, err := predictors.PrepareNew(xte, dmOcc)
	if err != nil {
		return nil, err
	}

	occModel, err := occMethod.Train(dmOcc)
	if err != nil {
		return nil, fmt.Errorf("occurrence model: %w", err)
	}
	amoModel, err := amoMethod.Train(dmAmo)
	if err != nil {
		return nil, fmt.Errorf("amount model: %w", err)
	}
	occPred, err := occModel.Predict(xnew)
	if err != nil {
		return nil, fmt.Errorf("occurrence model: %w", err)
	}
	amoPred, err := amoModel.Predict(xnew)
	if err != nil {
		return nil, fmt.Errorf("amount model: %w", err)
	}

	return combine(occ, dmOcc, occModel, occPred, amoPred, xte.RefDates(), opts)
}

// combine recombines occurrence and amount predictions into the final series:
// the occurrence acts as a 0/1 gate on the amounts. Deterministic runs
// re-binarize the predicted occurrence probabilities so the predicted wet
// rate matches the observed one; simulated runs re-mask the product with the
// caller-supplied wet threshold.
func combine(occObs *grid.Grid, dmOcc *predictors.DesignMatrix, occModel methods.Model,
	occPred, amoPred []float64, dates []time.Time, opts Options) ([]float64, error) {

	// non-positive amount predictions gate to dry
	for i, v := range amoPred {
		if v < 0 {
			amoPred[i] = 0
		}
	}
	amoGrid, err := grid.NewSeries(dates, amoPred, "")
	if err != nil {
		return nil, err
	}

	if opts.Simulate {
		occGrid, err := grid.NewSeries(dates, occPred, "")
		if err != nil {
			return nil, err
		}
		prod, err := occGrid.Arithmetics(amoGrid, grid.Mul)
		if err != nil {
			return nil, err
		}
		return prod.Binary(opts.WetThreshold, true).Series(), nil
	}

	// calibrate the occurrence gate against the training period: the cut on
	// the predicted probabilities is the quantile matching the observed wet
	// frequency
	occTrainPred, err := occModel.Predict(dmOcc.X)
	if err != nil {
		return nil, fmt.Errorf("occurrence model: %w", err)
	}
	refPred, err := grid.NewSeries(dmOcc.Dates, occTrainPred, "")
	if err != nil {
		return nil, err
	}
	predGrid, err := grid.NewSeries(dates, occPred, "")
	if err != nil {
		return nil, err
	}
	gate, err := predGrid.BinaryRef(occObs, refPred)
	if err != nil {
		return nil, err
	}
	prod, err := gate.Arithmetics(amoGrid, grid.Mul)
	if err != nil {
		return nil, err
	}
	return prod.Series(), nil
}
