package predictors

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/climproj/godownscale/grid"
)

func dailyDates(year, n int) []time.Time {
	dates := make([]time.Time, n)
	base := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}
	return dates
}

func randomField(n, locations int, vars []string, seed uint64) *grid.Grid {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, len(vars)*locations)
		for j := range row {
			row[j] = 10 + 5*rng.NormFloat64()
		}
		rows[i] = row
	}
	g, err := grid.New(dailyDates(1985, n), vars, locations, rows)
	if err != nil {
		panic(err)
	}
	return g
}

func constantSeries(x *grid.Grid, v float64) *grid.Grid {
	vals := make([]float64, x.Len())
	for i := range vals {
		vals[i] = v
	}
	y, err := grid.NewSeries(x.RefDates(), vals, "y")
	if err != nil {
		panic(err)
	}
	return y
}

func TestPrepareRawStandardizes(t *testing.T) {
	x := randomField(200, 1, []string{"slp", "t850"}, 3)
	y := constantSeries(x, 1)

	dm, err := Prepare(x, y, nil)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	r, c := dm.X.Dims()
	if r != 200 || c != 2 {
		t.Fatalf("Expected 200x2 design, got %dx%d", r, c)
	}
	for j := 0; j < c; j++ {
		sum, sumSq := 0.0, 0.0
		for i := 0; i < r; i++ {
			v := dm.X.At(i, j)
			sum += v
			sumSq += v * v
		}
		mean := sum / float64(r)
		if math.Abs(mean) > 1e-9 {
			t.Errorf("Column %d: training mean should be 0, got %g", j, mean)
		}
		sd := math.Sqrt((sumSq - float64(r)*mean*mean) / float64(r-1))
		if math.Abs(sd-1) > 1e-9 {
			t.Errorf("Column %d: training std should be 1, got %g", j, sd)
		}
	}
}

func TestPrepareNewAppliesTrainingTransform(t *testing.T) {
	x := randomField(150, 2, []string{"slp", "t850"}, 5)
	y := constantSeries(x, 1)

	cfg := &Config{
		Entries: []Entry{
			{Variable: "slp", Components: 1},
			{Variable: "t850", Components: 2},
		},
		JointComponents: 2,
	}
	dm, err := Prepare(x, y, cfg)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	// projecting the training grid through PrepareNew must reproduce the
	// training design exactly: the transform is fit once, on training data
	xnew, err := PrepareNew(x, dm)
	if err != nil {
		t.Fatalf("PrepareNew failed: %v", err)
	}
	r, c := dm.X.Dims()
	nr, nc := xnew.Dims()
	if nr != r || nc != c {
		t.Fatalf("Expected %dx%d, got %dx%d", r, c, nr, nc)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(dm.X.At(i, j)-xnew.At(i, j)) > 1e-9 {
				t.Fatalf("Mismatch at (%d,%d): train %g, new %g", i, j, dm.X.At(i, j), xnew.At(i, j))
			}
		}
	}
}

func TestPrepareNewDoesNotRefit(t *testing.T) {
	x := randomField(100, 1, []string{"slp"}, 9)
	y := constantSeries(x, 1)
	dm, err := Prepare(x, y, nil)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	// shift the new data by a constant: standardized values must shift too,
	// because the training moments are reused rather than refit
	shifted := x.Copy()
	for _, row := range shifted.Data {
		row[0] += 100
	}
	xnew, err := PrepareNew(shifted, dm)
	if err != nil {
		t.Fatalf("PrepareNew failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		if xnew.At(i, 0) <= dm.X.At(i, 0) {
			t.Fatalf("Row %d: shifted data should standardize above training, got %g vs %g",
				i, xnew.At(i, 0), dm.X.At(i, 0))
		}
	}
}

func TestPrepareSpatialDimensions(t *testing.T) {
	x := randomField(120, 4, []string{"slp", "t850"}, 13)
	y := constantSeries(x, 1)

	cfg := &Config{
		Entries: []Entry{
			{Variable: "slp", Components: 2},
			{Variable: "t850", Components: 3},
		},
		JointComponents: 2,
	}
	dm, err := Prepare(x, y, cfg)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	_, c := dm.X.Dims()
	if c != 2+3+2 {
		t.Errorf("Expected 7 predictor columns, got %d", c)
	}
}

func TestPrepareVariableMismatch(t *testing.T) {
	x := randomField(50, 1, []string{"slp", "t850"}, 17)
	y := constantSeries(x, 1)

	cfg := &Config{Entries: []Entry{
		{Variable: "slp", Components: 1},
		{Variable: "z500", Components: 1},
	}}
	if _, err := Prepare(x, y, cfg); !errors.Is(err, ErrVariableMismatch) {
		t.Errorf("Expected ErrVariableMismatch for unknown variable, got %v", err)
	}

	cfg = &Config{Entries: []Entry{{Variable: "slp", Components: 1}}}
	if _, err := Prepare(x, y, cfg); !errors.Is(err, ErrVariableMismatch) {
		t.Errorf("Expected ErrVariableMismatch for unconfigured variable, got %v", err)
	}
}

func TestPrepareDateMismatch(t *testing.T) {
	x := randomField(50, 1, []string{"slp"}, 19)
	y, _ := grid.NewSeries(dailyDates(1986, 50), make([]float64, 50), "y")
	if _, err := Prepare(x, y, nil); !errors.Is(err, grid.ErrDateMismatch) {
		t.Errorf("Expected date-mismatch error, got %v", err)
	}
}

func TestPrepareBadComponents(t *testing.T) {
	x := randomField(50, 2, []string{"slp"}, 23)
	y := constantSeries(x, 1)
	cfg := &Config{Entries: []Entry{{Variable: "slp", Components: 3}}}
	if _, err := Prepare(x, y, cfg); !errors.Is(err, ErrBadComponents) {
		t.Errorf("Expected ErrBadComponents, got %v", err)
	}
}
