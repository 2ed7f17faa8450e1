package downscale

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/climproj/godownscale/folds"
	"github.com/climproj/godownscale/grid"
	"github.com/climproj/godownscale/methods"
	"github.com/climproj/godownscale/predictors"
)

// syntheticPrecip builds a station precipitation series 1985 through
// 1985+nYears-1 with a predictor field that drives wet days and amounts.
func syntheticPrecip(nYears int, seed uint64) (y, x *grid.Grid) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	start := time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(nYears, 0, 0)

	var dates []time.Time
	var rows [][]float64
	var precip []float64
	state := 0.0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		state = 0.8*state + rng.NormFloat64()
		rows = append(rows, []float64{
			state + 0.2*rng.NormFloat64(),
			-state + 0.2*rng.NormFloat64(),
		})
		p := 0.0
		if state < 0.4*rng.NormFloat64() {
			p = math.Exp(0.8 - 0.6*state + 0.4*rng.NormFloat64())
		}
		precip = append(precip, p)
		dates = append(dates, d)
	}
	x, err := grid.New(dates, []string{"slp", "t850"}, 1, rows)
	if err != nil {
		panic(err)
	}
	y, err = grid.NewSeries(dates, precip, "precip")
	if err != nil {
		panic(err)
	}
	return y, x
}

func TestDateMismatchFailsBeforeFitting(t *testing.T) {
	y, x := syntheticPrecip(2, 1)
	// shift the predictor dates by one day
	shiftedDates := x.RefDates()
	for i := range shiftedDates {
		shiftedDates[i] = shiftedDates[i].AddDate(0, 0, 1)
	}
	shifted, err := grid.New(shiftedDates, x.VarNames(), x.Locations, x.Data)
	if err != nil {
		t.Fatalf("Failed to build shifted grid: %v", err)
	}
	if _, err := Downscale(y, shifted, nil, Options{Method: "analogs"}); !errors.Is(err, ErrDateMismatch) {
		t.Errorf("Expected ErrDateMismatch, got %v", err)
	}
}

func TestUnknownMethod(t *testing.T) {
	y, x := syntheticPrecip(1, 2)
	if _, err := Downscale(y, x, nil, Options{Method: "forest"}); !errors.Is(err, methods.ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
}

func TestNilGrids(t *testing.T) {
	y, x := syntheticPrecip(1, 3)
	if _, err := Downscale(nil, x, nil, Options{Method: "lm"}); !errors.Is(err, ErrNilGrid) {
		t.Errorf("Expected ErrNilGrid, got %v", err)
	}
	if _, err := Downscale(y, nil, nil, Options{Method: "lm"}); !errors.Is(err, ErrNilGrid) {
		t.Errorf("Expected ErrNilGrid, got %v", err)
	}
}

func TestAnalogsSelfPredictionIdentity(t *testing.T) {
	// 1985-1993, unique predictor states: the nearest neighbor of each day
	// is itself, so the prediction reproduces y verbatim
	y, x := syntheticPrecip(9, 4)
	pred, err := Downscale(y, x, nil, Options{Method: "analogs", NAnalogs: 1})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if pred.Len() != y.Len() {
		t.Fatalf("Expected %d predictions, got %d", y.Len(), pred.Len())
	}
	if !pred.SameDates(y) {
		t.Fatal("Prediction dates must equal the newdata dates")
	}
	obs := y.Series()
	vals := pred.Series()
	for i, v := range vals {
		if v != obs[i] {
			t.Fatalf("Day %d: nearest-neighbor identity violated: %v vs %v", i, v, obs[i])
		}
	}
	years := pred.Years()
	if years[0] != 1985 || years[len(years)-1] != 1993 {
		t.Errorf("Expected span 1985-1993, got %v", years)
	}
}

func TestOccurrenceThresholdSelection(t *testing.T) {
	if got := occurrenceThreshold(true, 1.0); got != 0.01 {
		t.Errorf("Simulation must use the fixed 0.01 threshold, got %v", got)
	}
	if got := occurrenceThreshold(false, 1.0); got != 1.0 {
		t.Errorf("Deterministic runs use the caller threshold, got %v", got)
	}
}

func TestDecomposeThresholds(t *testing.T) {
	dates := []time.Time{
		time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1985, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(1985, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	y, _ := grid.NewSeries(dates, []float64{0, 0.5, 2}, "p")

	occ, amo := decompose(y, false, 1.0)
	if occ.Data[1][0] != 0 {
		t.Error("0.5 is dry under a wet threshold of 1.0")
	}
	if !math.IsNaN(amo.Data[1][0]) {
		t.Error("Dry amounts must be masked")
	}

	occ, amo = decompose(y, true, 1.0)
	if occ.Data[1][0] != 1 {
		t.Error("Simulation ignores the caller threshold: 0.5 exceeds 0.01")
	}
	if amo.Data[1][0] != 0.5 {
		t.Errorf("0.5 is a wet amount under simulation, got %v", amo.Data[1][0])
	}
	if !occ.SameDates(amo) || !occ.SameDates(y) {
		t.Error("Occurrence and amount series must share the input date index")
	}
}

func TestOccurrenceAmountRoundTrip(t *testing.T) {
	y, _ := syntheticPrecip(1, 5)
	occ, amo := decompose(y, false, 1.0)
	obs := y.Series()
	occV := occ.Series()
	amoV := amo.Series()
	for i := range obs {
		if occV[i] == 1 {
			if occV[i]*amoV[i] != obs[i] {
				t.Fatalf("Day %d: occurrence x amount should reproduce %v, got %v", i, obs[i], occV[i]*amoV[i])
			}
		}
	}
}

func TestGLMDeterministicEndToEnd(t *testing.T) {
	y, x := syntheticPrecip(6, 6)
	pred, err := Downscale(y, x, nil, Options{Method: "glm", WetThreshold: 1.0})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if !pred.SameDates(y) {
		t.Fatal("Prediction dates must equal the input dates")
	}
	vals := pred.Series()
	for i, v := range vals {
		if math.IsNaN(v) {
			t.Fatalf("Deterministic prediction should have no masked values, day %d", i)
		}
		if v < 0 {
			t.Fatalf("Precipitation cannot be negative, day %d: %v", i, v)
		}
	}

	// the calibrated occurrence gate keeps the predicted wet rate close to
	// the observed one
	obs := y.Series()
	wetObs, wetPred := 0, 0
	for i := range obs {
		if obs[i] > 1.0 {
			wetObs++
		}
		if vals[i] > 0 {
			wetPred++
		}
	}
	lo, hi := wetObs*8/10, wetObs*12/10
	if wetPred < lo || wetPred > hi {
		t.Errorf("Calibrated wet count %d far from observed %d", wetPred, wetObs)
	}
}

func TestGLMSimulateEndToEnd(t *testing.T) {
	y, x := syntheticPrecip(6, 7)
	pred, err := Downscale(y, x, nil, Options{
		Method: "glm", WetThreshold: 1.0, Simulate: true, Seed: 21,
	})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if !pred.SameDates(y) {
		t.Fatal("Prediction dates must equal the input dates")
	}
	// dry timesteps are masked by the caller's wet threshold; wet ones
	// exceed it
	sawWet, sawDry := false, false
	for _, v := range pred.Series() {
		switch {
		case math.IsNaN(v):
			sawDry = true
		case v > 1.0:
			sawWet = true
		default:
			t.Fatalf("Unmasked value %v at or below the wet threshold", v)
		}
	}
	if !sawWet || !sawDry {
		t.Error("Simulated series should contain both wet and dry timesteps")
	}

	// reproducible under the same seed
	again, err := Downscale(y, x, nil, Options{
		Method: "glm", WetThreshold: 1.0, Simulate: true, Seed: 21,
	})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	a, b := pred.FillMasked(0).Series(), again.FillMasked(0).Series()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Seeded simulation should be reproducible, day %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCrossValidationDatesAndOrder(t *testing.T) {
	y, x := syntheticPrecip(3, 8)
	pred, err := Downscale(y, x, nil, Options{
		Method:   "analogs",
		NAnalogs: 3,
		CrossVal: folds.LeaveOneYearOut(),
	})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	// chronological folds reassemble the full series in order
	if !pred.SameDates(y) {
		t.Fatal("Leave-one-year-out predictions must cover the full series in order")
	}
}

func TestCrossValidationKFold(t *testing.T) {
	y, x := syntheticPrecip(3, 9)
	pred, err := Downscale(y, x, nil, Options{
		Method:   "lm",
		CrossVal: folds.KFold(4),
	})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if !pred.SameDates(y) {
		t.Fatal("k-fold predictions must cover the full series in order")
	}
}

func TestCrossValidationFraction(t *testing.T) {
	y, x := syntheticPrecip(4, 10)
	pred, err := Downscale(y, x, nil, Options{
		Method:   "lm",
		CrossVal: folds.KFoldFraction(0.75),
	})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	want := y.Len() - int(math.Round(0.75*float64(y.Len())))
	if pred.Len() != want {
		t.Errorf("Fractional split predicts the held-out tail: expected %d values, got %d", want, pred.Len())
	}
	tailDates := y.RefDates()[y.Len()-want:]
	for i, d := range pred.RefDates() {
		if !d.Equal(tailDates[i]) {
			t.Fatalf("Prediction date %d mismatch: %v vs %v", i, d, tailDates[i])
		}
	}
}

func TestCrossValidationMissingFolds(t *testing.T) {
	y, x := syntheticPrecip(2, 11)
	if _, err := Downscale(y, x, nil, Options{
		Method:   "lm",
		CrossVal: folds.KFold(0),
	}); !errors.Is(err, folds.ErrMissingFolds) {
		t.Errorf("Expected ErrMissingFolds, got %v", err)
	}
}

func TestSpatialPredictorsEndToEnd(t *testing.T) {
	y, x := syntheticPrecip(4, 12)
	pred, err := Downscale(y, x, nil, Options{
		Method:       "glm",
		WetThreshold: 1.0,
		Spatial: &predictors.Config{
			Entries: []predictors.Entry{
				{Variable: "slp", Components: 1},
				{Variable: "t850", Components: 1},
			},
			JointComponents: 1,
		},
	})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if !pred.SameDates(y) {
		t.Fatal("Prediction dates must equal the input dates")
	}
}

func TestNewdataPrediction(t *testing.T) {
	y, x := syntheticPrecip(4, 13)
	// hold out the final year manually as newdata
	trainYears := []int{1985, 1986, 1987}
	xtr := x.Subset(trainYears)
	ytr := y.Subset(trainYears)
	xte := x.Subset([]int{1988})

	pred, err := Downscale(ytr, xtr, xte, Options{Method: "analogs", NAnalogs: 2})
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if !pred.SameDates(xte) {
		t.Fatal("Prediction dates must equal the newdata dates")
	}
}
