// Package grid provides time-indexed gridded data structures and operations.
package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrLengthMismatch is returned when reference dates and data rows disagree.
	ErrLengthMismatch = errors.New("reference dates and data must have the same length")
	// ErrShapeMismatch is returned when two grids have incompatible layouts.
	ErrShapeMismatch = errors.New("grids have mismatched variables or locations")
	// ErrDateMismatch is returned when two grids do not share a reference-date sequence.
	ErrDateMismatch = errors.New("grids have mismatched reference dates")
)

// Grid represents a time-indexed multi-variable field. Rows correspond to
// reference dates; columns are laid out variable-major, with Locations
// contiguous columns per variable. A single-variable, single-location Grid
// doubles as a station series.
type Grid struct {
	Dates     []time.Time
	Variables []string
	Locations int
	Data      [][]float64
	Name      string
}

// New creates a grid from reference dates and time-major data rows.
// Each row must have len(variables)*locations values.
func New(dates []time.Time, variables []string, locations int, data [][]float64) (*Grid, error) {
	if len(dates) != len(data) {
		return nil, fmt.Errorf("%w: %d dates, %d rows", ErrLengthMismatch, len(dates), len(data))
	}
	if locations < 1 {
		return nil, errors.New("locations must be at least 1")
	}
	want := len(variables) * locations
	for i, row := range data {
		if len(row) != want {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrLengthMismatch, i, len(row), want)
		}
	}
	return &Grid{
		Dates:     dates,
		Variables: variables,
		Locations: locations,
		Data:      data,
	}, nil
}

// NewSeries creates a single-variable, single-location grid from a value
// series, one value per reference date.
func NewSeries(dates []time.Time, values []float64, name string) (*Grid, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("%w: %d dates, %d values", ErrLengthMismatch, len(dates), len(values))
	}
	data := make([][]float64, len(values))
	for i, v := range values {
		data[i] = []float64{v}
	}
	return &Grid{
		Dates:     dates,
		Variables: []string{name},
		Locations: 1,
		Data:      data,
		Name:      name,
	}, nil
}

// Len returns the number of timesteps.
func (g *Grid) Len() int {
	return len(g.Dates)
}

// Cols returns the number of data columns per timestep.
func (g *Grid) Cols() int {
	return len(g.Variables) * g.Locations
}

// RefDates returns a copy of the reference-date sequence.
func (g *Grid) RefDates() []time.Time {
	dates := make([]time.Time, len(g.Dates))
	copy(dates, g.Dates)
	return dates
}

// VarNames returns a copy of the variable identifiers.
func (g *Grid) VarNames() []string {
	names := make([]string, len(g.Variables))
	copy(names, g.Variables)
	return names
}

// Series returns the first column as a value series. It is the inverse of
// NewSeries for station predictands.
func (g *Grid) Series() []float64 {
	values := make([]float64, len(g.Data))
	for i, row := range g.Data {
		values[i] = row[0]
	}
	return values
}

// VarIndex returns the first column index of the named variable, or -1.
func (g *Grid) VarIndex(name string) int {
	for i, v := range g.Variables {
		if v == name {
			return i * g.Locations
		}
	}
	return -1
}

// Copy creates a deep copy of the grid.
func (g *Grid) Copy() *Grid {
	data := make([][]float64, len(g.Data))
	for i, row := range g.Data {
		data[i] = make([]float64, len(row))
		copy(data[i], row)
	}
	return &Grid{
		Dates:     g.RefDates(),
		Variables: g.VarNames(),
		Locations: g.Locations,
		Data:      data,
		Name:      g.Name,
	}
}

// SameDates reports whether both grids share an identical reference-date
// sequence, in length and value.
func (g *Grid) SameDates(other *Grid) bool {
	if len(g.Dates) != len(other.Dates) {
		return false
	}
	for i := range g.Dates {
		if !g.Dates[i].Equal(other.Dates[i]) {
			return false
		}
	}
	return true
}

// Years returns the distinct calendar years in the grid, in chronological order.
func (g *Grid) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, d := range g.Dates {
		y := d.Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

// YearIndex returns the row indices whose dates fall in any of the given years.
func (g *Grid) YearIndex(years []int) []int {
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}
	var idx []int
	for i, d := range g.Dates {
		if want[d.Year()] {
			idx = append(idx, i)
		}
	}
	return idx
}

// Subset returns the sub-grid covering the given calendar years.
func (g *Grid) Subset(years []int) *Grid {
	return g.SubsetIndex(g.YearIndex(years))
}

// SubsetIndex returns the sub-grid at the given row indices, in the given order.
func (g *Grid) SubsetIndex(idx []int) *Grid {
	dates := make([]time.Time, len(idx))
	data := make([][]float64, len(idx))
	for i, j := range idx {
		dates[i] = g.Dates[j]
		data[i] = make([]float64, len(g.Data[j]))
		copy(data[i], g.Data[j])
	}
	return &Grid{
		Dates:     dates,
		Variables: g.VarNames(),
		Locations: g.Locations,
		Data:      data,
		Name:      g.Name,
	}
}

// ScaleType selects the standardization applied by Scale.
type ScaleType int

const (
	// Standardize subtracts the base mean and divides by the base standard
	// deviation, column-wise.
	Standardize ScaleType = iota
	// Center subtracts the base mean only.
	Center
)

// Scale standardizes the grid column-wise using moments computed from base.
// The moments are fit on base and applied to the receiver, so a training
// grid scaled against itself and a test grid scaled against the same base
// share one standardization.
func (g *Grid) Scale(base *Grid, typ ScaleType) (*Grid, error) {
	if base.Cols() != g.Cols() || len(base.Variables) != len(g.Variables) {
		return nil, ErrShapeMismatch
	}
	means, stds := columnMoments(base)
	out := g.Copy()
	for _, row := range out.Data {
		for j := range row {
			row[j] -= means[j]
			if typ == Standardize && stds[j] > 0 {
				row[j] /= stds[j]
			}
		}
	}
	return out, nil
}

func columnMoments(g *Grid) (means, stds []float64) {
	cols := g.Cols()
	means = make([]float64, cols)
	stds = make([]float64, cols)
	col := make([]float64, 0, g.Len())
	for j := 0; j < cols; j++ {
		col = col[:0]
		for _, row := range g.Data {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		if len(col) == 0 {
			continue
		}
		means[j], stds[j] = stat.MeanStdDev(col, nil)
		if len(col) < 2 || math.IsNaN(stds[j]) {
			stds[j] = 0
		}
	}
	return means, stds
}

// Binary converts the grid against a threshold. With partial false the
// result is 1 where the value exceeds the threshold and 0 elsewhere. With
// partial true, values exceeding the threshold are kept and the rest are
// masked as NaN, preserving the distinction between dry and wet-but-small.
func (g *Grid) Binary(threshold float64, partial bool) *Grid {
	out := g.Copy()
	for _, row := range out.Data {
		for j, v := range row {
			switch {
			case math.IsNaN(v):
				// masked stays masked
			case partial && v <= threshold:
				row[j] = math.NaN()
			case !partial && v > threshold:
				row[j] = 1
			case !partial:
				row[j] = 0
			}
		}
	}
	return out
}

// FillMasked returns a copy with masked (NaN) entries replaced by v.
func (g *Grid) FillMasked(v float64) *Grid {
	out := g.Copy()
	for _, row := range out.Data {
		for j := range row {
			if math.IsNaN(row[j]) {
				row[j] = v
			}
		}
	}
	return out
}

// BinaryRef binarizes the receiver so its occurrence frequency matches a
// reference. The wet frequency observed in refObs (a 0/1 grid) fixes the
// quantile of refPred used as the cut point; receiver values above that cut
// become 1, the rest 0. Used to calibrate predicted occurrence probabilities
// against the historical occurrence rate.
func (g *Grid) BinaryRef(refObs, refPred *Grid) (*Grid, error) {
	freq := wetFrequency(refObs)
	cut := quantile(refPred, 1-freq)
	return g.Binary(cut, false), nil
}

func wetFrequency(g *Grid) float64 {
	wet, n := 0, 0
	for _, row := range g.Data {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			n++
			if v > 0 {
				wet++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return float64(wet) / float64(n)
}

func quantile(g *Grid, p float64) float64 {
	var vals []float64
	for _, row := range g.Data {
		for _, v := range row {
			if !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	if p <= 0 {
		return vals[0]
	}
	if p >= 1 {
		return vals[len(vals)-1]
	}
	return stat.Quantile(p, stat.Empirical, vals, nil)
}

// Op selects the elementwise operator applied by Arithmetics.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
)

// Arithmetics combines two grids elementwise. Both grids must share the same
// reference dates and layout. Masked (NaN) operands propagate.
func (g *Grid) Arithmetics(other *Grid, op Op) (*Grid, error) {
	if !g.SameDates(other) {
		return nil, ErrDateMismatch
	}
	if g.Cols() != other.Cols() {
		return nil, ErrShapeMismatch
	}
	out := g.Copy()
	for i, row := range out.Data {
		for j := range row {
			b := other.Data[i][j]
			switch op {
			case Add:
				row[j] += b
			case Sub:
				row[j] -= b
			case Mul:
				row[j] *= b
			case Div:
				row[j] /= b
			}
		}
	}
	return out, nil
}
