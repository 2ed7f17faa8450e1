// Package main demonstrates perfect-prog downscaling on synthetic data:
// daily precipitation 1985-1993 at one station, predicted from a two-variable
// field over the same period.
package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/climproj/godownscale/downscale"
	"github.com/climproj/godownscale/folds"
	"github.com/climproj/godownscale/grid"
	"github.com/climproj/godownscale/methods"
	"github.com/climproj/godownscale/predictors"
)

const (
	locations    = 4
	wetThreshold = 1.0
)

func main() {
	y, x := syntheticStation()
	fmt.Printf("Station predictand: %d days, %d-%d\n",
		y.Len(), y.Years()[0], y.Years()[len(y.Years())-1])
	fmt.Printf("Predictor field: %d variables x %d locations\n\n",
		len(x.VarNames()), locations)

	runs := []struct {
		name string
		opts downscale.Options
	}{
		{"analogs (1 neighbor)", downscale.Options{
			Method: "analogs", NAnalogs: 1,
		}},
		{"analogs (5, weighted mean)", downscale.Options{
			Method: "analogs", NAnalogs: 5, Selection: methods.SelWMean,
		}},
		{"glm deterministic", downscale.Options{
			Method: "glm", WetThreshold: wetThreshold,
		}},
		{"glm stochastic", downscale.Options{
			Method: "glm", WetThreshold: wetThreshold, Simulate: true, Seed: 42,
		}},
		{"glm + spatial predictors, leave-one-year-out", downscale.Options{
			Method: "glm", WetThreshold: wetThreshold,
			Spatial: &predictors.Config{
				Entries: []predictors.Entry{
					{Variable: "slp", Components: 2},
					{Variable: "t850", Components: 2},
				},
				JointComponents: 2,
			},
			CrossVal: folds.LeaveOneYearOut(),
		}},
		{"lm, 5-fold", downscale.Options{
			Method: "lm", CrossVal: folds.KFold(5),
		}},
	}

	for _, run := range runs {
		pred, err := downscale.Downscale(y, x, nil, run.opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", run.name, err)
			os.Exit(1)
		}
		if run.opts.Simulate {
			pred = pred.FillMasked(0)
		}
		report(run.name, y, pred)
	}
}

func report(name string, y, pred *grid.Grid) {
	obs := y.Series()
	vals := pred.Series()

	var rmse float64
	n := 0
	wetObs, wetPred := 0, 0
	for i, v := range vals {
		if i < len(obs) && !math.IsNaN(v) {
			d := v - obs[i]
			rmse += d * d
			n++
			if obs[i] > wetThreshold {
				wetObs++
			}
			if v > wetThreshold {
				wetPred++
			}
		}
	}
	if n > 0 {
		rmse = math.Sqrt(rmse / float64(n))
	}
	fmt.Printf("%-46s n=%d  rmse=%6.2f  wet days obs/pred: %d/%d\n",
		name, pred.Len(), rmse, wetObs, wetPred)
}

// syntheticStation generates a correlated predictor field and station
// precipitation series, daily 1985 through 1993.
func syntheticStation() (y, x *grid.Grid) {
	rng := rand.New(rand.NewPCG(7, 11))

	start := time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(1994, 1, 1, 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	var rows [][]float64
	var precip []float64

	state := 0.0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		// slowly varying synoptic state with noise per location
		state = 0.9*state + rng.NormFloat64()
		doy := float64(d.YearDay())
		seasonal := math.Sin(2 * math.Pi * doy / 365.25)

		row := make([]float64, 2*locations)
		for l := 0; l < locations; l++ {
			row[l] = state + 0.3*rng.NormFloat64()              // slp
			row[locations+l] = seasonal + 0.3*rng.NormFloat64() // t850
		}
		rows = append(rows, row)

		// wet when the synoptic state is low; amounts roughly lognormal
		p := 0.0
		if state < -0.2+0.5*rng.NormFloat64() {
			p = math.Exp(1.2 + 0.5*(-state) + 0.6*rng.NormFloat64())
		}
		precip = append(precip, p)
		dates = append(dates, d)
	}

	x, err := grid.New(dates, []string{"slp", "t850"}, locations, rows)
	if err != nil {
		panic(err)
	}
	y, err = grid.NewSeries(dates, precip, "precip")
	if err != nil {
		panic(err)
	}
	return y, x
}
