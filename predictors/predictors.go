// Package predictors builds design matrices from predictor grids.
package predictors

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/climproj/godownscale/grid"
)

var (
	// ErrVariableMismatch is returned when a spatial-predictor configuration
	// names a different variable set than the predictor grid carries.
	ErrVariableMismatch = errors.New("spatial predictor config and grid have mismatched variable sets")
	// ErrBadComponents is returned for a non-positive or oversized component count.
	ErrBadComponents = errors.New("invalid principal-component count")
	// ErrPCAFailed is returned when principal-component extraction does not succeed.
	ErrPCAFailed = errors.New("principal component extraction failed")
	// ErrShapeMismatch is returned when new data does not match the layout the
	// design matrix was fitted on.
	ErrShapeMismatch = errors.New("new data does not match the fitted predictor layout")
)

// Entry associates one predictor variable with the number of principal
// components retained for it. A count of 1 on a single-location variable is a
// pass-through of the raw standardized field.
type Entry struct {
	Variable   string
	Components int
}

// Config describes spatial predictors: per-variable component counts plus an
// optional pooled count computed jointly across all variables combined.
// A nil Config means raw standardized fields.
type Config struct {
	Entries []Entry
	// JointComponents is the number of components extracted from all
	// variables pooled into one field. Zero disables the pooled block.
	JointComponents int
}

// DesignMatrix binds predictor rows to predictand observations, together with
// the standardization moments and component rotations fitted on the training
// period. Those fitted transforms are what PrepareNew applies to unseen data;
// they are never refit.
type DesignMatrix struct {
	X     *mat.Dense
	Y     []float64
	Dates []time.Time

	means     []float64
	stds      []float64
	cfg       *Config
	rotations []*mat.Dense // per config entry, fitted on training data
	joint     *mat.Dense
	variables []string
	locations int
}

// Prepare builds the training design matrix for predictor grid x bound to
// predictand y. Standardization moments and any principal-component rotations
// are computed here, from x only, and stored for later application to new
// data. x and y must share a reference-date sequence.
func Prepare(x, y *grid.Grid, cfg *Config) (*DesignMatrix, error) {
	if !x.SameDates(y) {
		return nil, grid.ErrDateMismatch
	}
	dm := &DesignMatrix{
		Y:         y.Series(),
		Dates:     x.RefDates(),
		cfg:       cfg,
		variables: x.VarNames(),
		locations: x.Locations,
	}

	dm.means, dm.stds = moments(x)
	z := toDense(x)
	standardize(z, dm.means, dm.stds)

	if cfg == nil {
		dm.X = z
		return dm, nil
	}
	if err := checkVariables(cfg, x); err != nil {
		return nil, err
	}

	var blocks []*mat.Dense
	dm.rotations = make([]*mat.Dense, len(cfg.Entries))
	for i, e := range cfg.Entries {
		zv := varBlock(z, x, e.Variable)
		if e.Components < 1 || e.Components > x.Locations {
			return nil, fmt.Errorf("%w: %d components for variable %q with %d locations",
				ErrBadComponents, e.Components, e.Variable, x.Locations)
		}
		rot, err := principalRotation(zv, e.Components)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", e.Variable, err)
		}
		dm.rotations[i] = rot
		blocks = append(blocks, project(zv, rot))
	}
	if cfg.JointComponents > 0 {
		if cfg.JointComponents > x.Cols() {
			return nil, fmt.Errorf("%w: %d joint components for %d columns",
				ErrBadComponents, cfg.JointComponents, x.Cols())
		}
		rot, err := principalRotation(z, cfg.JointComponents)
		if err != nil {
			return nil, fmt.Errorf("pooled field: %w", err)
		}
		dm.joint = rot
		blocks = append(blocks, project(z, rot))
	}
	dm.X = hcat(blocks)
	return dm, nil
}

// PrepareNew projects a new predictor grid onto the design fitted by Prepare.
// The stored training moments and rotations are applied as-is, so test or
// prediction data is standardized exactly like the training period.
func PrepareNew(newdata *grid.Grid, dm *DesignMatrix) (*mat.Dense, error) {
	if newdata.Cols() != len(dm.means) || len(newdata.Variables) != len(dm.variables) {
		return nil, ErrShapeMismatch
	}
	for i, v := range newdata.Variables {
		if v != dm.variables[i] {
			return nil, fmt.Errorf("%w: variable %q, want %q", ErrShapeMismatch, v, dm.variables[i])
		}
	}

	z := toDense(newdata)
	standardize(z, dm.means, dm.stds)

	if dm.cfg == nil {
		return z, nil
	}
	var blocks []*mat.Dense
	for i, e := range dm.cfg.Entries {
		zv := varBlock(z, newdata, e.Variable)
		blocks = append(blocks, project(zv, dm.rotations[i]))
	}
	if dm.joint != nil {
		blocks = append(blocks, project(z, dm.joint))
	}
	return hcat(blocks), nil
}

func checkVariables(cfg *Config, x *grid.Grid) error {
	want := make(map[string]bool, len(x.Variables))
	for _, v := range x.Variables {
		want[v] = true
	}
	seen := make(map[string]bool, len(cfg.Entries))
	for _, e := range cfg.Entries {
		if !want[e.Variable] {
			return fmt.Errorf("%w: %q not in grid", ErrVariableMismatch, e.Variable)
		}
		if seen[e.Variable] {
			return fmt.Errorf("%w: %q listed twice", ErrVariableMismatch, e.Variable)
		}
		seen[e.Variable] = true
	}
	for _, v := range x.Variables {
		if !seen[v] {
			return fmt.Errorf("%w: grid variable %q not configured", ErrVariableMismatch, v)
		}
	}
	return nil
}

func standardize(z *mat.Dense, means, stds []float64) {
	r, c := z.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := z.At(i, j) - means[j]
			if stds[j] > 0 {
				v /= stds[j]
			}
			z.Set(i, j, v)
		}
	}
}

func moments(g *grid.Grid) (means, stds []float64) {
	cols := g.Cols()
	means = make([]float64, cols)
	stds = make([]float64, cols)
	col := make([]float64, g.Len())
	for j := 0; j < cols; j++ {
		for i, row := range g.Data {
			col[i] = row[j]
		}
		means[j], stds[j] = stat.MeanStdDev(col, nil)
	}
	return means, stds
}

func toDense(g *grid.Grid) *mat.Dense {
	r, c := g.Len(), g.Cols()
	m := mat.NewDense(r, c, nil)
	for i, row := range g.Data {
		m.SetRow(i, row)
	}
	return m
}

// varBlock extracts the columns of one variable from a full predictor matrix.
func varBlock(z *mat.Dense, g *grid.Grid, variable string) *mat.Dense {
	start := g.VarIndex(variable)
	r, _ := z.Dims()
	block := mat.NewDense(r, g.Locations, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < g.Locations; j++ {
			block.Set(i, j, z.At(i, start+j))
		}
	}
	return block
}

// principalRotation fits principal components on m and returns the rotation
// keeping the leading k component directions.
func principalRotation(m *mat.Dense, k int) (*mat.Dense, error) {
	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, ErrPCAFailed
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)
	r, c := vec.Dims()
	if k > c {
		return nil, fmt.Errorf("%w: %d components, %d available", ErrBadComponents, k, c)
	}
	rot := mat.NewDense(r, k, nil)
	rot.Copy(vec.Slice(0, r, 0, k))
	return rot, nil
}

func project(z, rot *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(z, rot)
	return &out
}

func hcat(blocks []*mat.Dense) *mat.Dense {
	rows, cols := 0, 0
	for _, b := range blocks {
		r, c := b.Dims()
		rows = r
		cols += c
	}
	out := mat.NewDense(rows, cols, nil)
	at := 0
	for _, b := range blocks {
		r, c := b.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, at+j, b.At(i, j))
			}
		}
		at += c
	}
	return out
}
