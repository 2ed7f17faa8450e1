package methods

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/climproj/godownscale/predictors"
)

// Selection names the aggregation applied to the predictand values of the
// selected analog days.
type Selection string

const (
	SelMean   Selection = "mean"
	SelWMean  Selection = "wmean"
	SelMax    Selection = "max"
	SelMin    Selection = "min"
	SelMedian Selection = "median"
)

func (s Selection) valid() bool {
	switch s {
	case SelMean, SelWMean, SelMax, SelMin, SelMedian:
		return true
	}
	return false
}

// Analogs downscales by nearest-neighbor matching in predictor space: each
// prediction timestep reuses the observed predictand of its N most similar
// training timesteps, aggregated by Sel. With N=1 the single neighbor's
// value is returned verbatim and Sel is irrelevant.
type Analogs struct {
	N   int
	Sel Selection
}

// Train retains the full training design matrix and predictand as the analog
// library.
func (a *Analogs) Train(dm *predictors.DesignMatrix) (Model, error) {
	if a.N < 1 {
		return nil, fmt.Errorf("n.analogs must be at least 1, got %d", a.N)
	}
	if !a.Sel.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, a.Sel)
	}
	x, y, err := trainingRows(dm, nil)
	if err != nil {
		return nil, err
	}
	if a.N > len(y) {
		return nil, fmt.Errorf("%w: %d analogs requested, %d training timesteps", ErrNotEnoughData, a.N, len(y))
	}
	return &analogModel{x: x, y: y, n: a.N, sel: a.Sel}, nil
}

type analogModel struct {
	x   *mat.Dense
	y   []float64
	n   int
	sel Selection
}

type neighbor struct {
	dist float64
	idx  int
}

func (m *analogModel) Predict(x *mat.Dense) ([]float64, error) {
	rows, cols := x.Dims()
	_, trainCols := m.x.Dims()
	if cols != trainCols {
		return nil, ErrShapeMismatch
	}
	trainRows := len(m.y)
	out := make([]float64, rows)
	nb := make([]neighbor, trainRows)
	for i := 0; i < rows; i++ {
		for t := 0; t < trainRows; t++ {
			d := 0.0
			for j := 0; j < cols; j++ {
				diff := x.At(i, j) - m.x.At(t, j)
				d += diff * diff
			}
			nb[t] = neighbor{dist: math.Sqrt(d), idx: t}
		}
		sort.Slice(nb, func(a, b int) bool { return nb[a].dist < nb[b].dist })
		out[i] = m.aggregate(nb[:m.n])
	}
	return out, nil
}

func (m *analogModel) aggregate(nb []neighbor) float64 {
	if len(nb) == 1 {
		return m.y[nb[0].idx]
	}
	vals := make([]float64, len(nb))
	for i, n := range nb {
		vals[i] = m.y[n.idx]
	}
	switch m.sel {
	case SelWMean:
		var num, den float64
		for i, n := range nb {
			w := 1 / (n.dist + 1e-12)
			num += w * vals[i]
			den += w
		}
		return num / den
	case SelMax:
		max := vals[0]
		for _, v := range vals[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case SelMin:
		min := vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case SelMedian:
		sort.Float64s(vals)
		k := len(vals)
		if k%2 == 0 {
			return (vals[k/2-1] + vals[k/2]) / 2
		}
		return vals[k/2]
	}
	return stat.Mean(vals, nil)
}
