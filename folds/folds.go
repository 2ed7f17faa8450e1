// Package folds plans cross-validation splits over gridded series.
package folds

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/climproj/godownscale/grid"
)

var (
	// ErrMissingFolds is returned when k-fold mode is requested without a
	// fold count or fraction.
	ErrMissingFolds = errors.New("k-fold cross-validation requires a fold count or a fraction in (0,1)")
	// ErrBadFolds is returned for an unusable fold specification.
	ErrBadFolds = errors.New("invalid fold specification")
	// ErrEmptyFold is returned when a fold matches no timesteps.
	ErrEmptyFold = errors.New("fold matches no timesteps in the series")
)

// Mode identifies the cross-validation strategy of a Plan.
type Mode int

const (
	// ModeNone disables cross-validation: train and predict on the full series.
	ModeNone Mode = iota
	// ModeLeaveOneYearOut holds out each calendar year in turn.
	ModeLeaveOneYearOut
	// ModeKFold splits chronologically into contiguous folds, or into a
	// train/test pair when specified as a fraction.
	ModeKFold
	// ModeExplicit uses caller-supplied year sets verbatim.
	ModeExplicit
)

// Plan is a resolved cross-validation configuration. Construct one with
// None, LeaveOneYearOut, KFold, KFoldFraction, or Explicit.
type Plan struct {
	mode     Mode
	k        int
	fraction float64
	sets     [][]int
}

// None returns the plan that trains and predicts on the full series.
func None() Plan { return Plan{mode: ModeNone} }

// LeaveOneYearOut returns the plan with one fold per calendar year, visited
// chronologically.
func LeaveOneYearOut() Plan { return Plan{mode: ModeLeaveOneYearOut} }

// KFold returns the plan splitting the period into k contiguous,
// approximately equal chronological folds. k must be at least 2.
func KFold(k int) Plan { return Plan{mode: ModeKFold, k: k} }

// KFoldFraction returns the two-fold plan whose first (training) block holds
// round(f*N) timesteps and whose remainder is held out. f must lie in (0,1).
func KFoldFraction(f float64) Plan { return Plan{mode: ModeKFold, fraction: f} }

// Explicit returns the plan using the given year sets as folds, in the order
// given. Years inside each fold are sorted chronologically.
func Explicit(sets [][]int) Plan { return Plan{mode: ModeExplicit, sets: sets} }

// Mode returns the plan's cross-validation strategy.
func (p Plan) Mode() Mode { return p.mode }

// Fold is one disjoint partition of the series period.
type Fold struct {
	// Indices are the row positions of the fold, in chronological order.
	Indices []int
	// Years are the calendar years the fold covers, for year-based plans.
	Years []int
}

// Cycle is one train/test evaluation: the test period is held out and the
// union of everything else is training.
type Cycle struct {
	Train []int
	Test  []int
}

// Split partitions the grid's period according to the plan. Folds are
// pairwise disjoint; in leave-one-year-out and integer k-fold modes their
// union is the full period.
func (p Plan) Split(g *grid.Grid) ([]Fold, error) {
	n := g.Len()
	switch p.mode {
	case ModeNone:
		return []Fold{{Indices: seq(0, n), Years: g.Years()}}, nil

	case ModeLeaveOneYearOut:
		years := g.Years()
		out := make([]Fold, len(years))
		for i, y := range years {
			out[i] = Fold{Indices: g.YearIndex([]int{y}), Years: []int{y}}
		}
		return out, nil

	case ModeKFold:
		if p.fraction != 0 {
			if p.fraction <= 0 || p.fraction >= 1 {
				return nil, fmt.Errorf("%w: fraction %v not in (0,1)", ErrBadFolds, p.fraction)
			}
			head := int(math.Round(p.fraction * float64(n)))
			if head < 1 || head >= n {
				return nil, fmt.Errorf("%w: fraction %v leaves an empty block on %d timesteps", ErrBadFolds, p.fraction, n)
			}
			return []Fold{
				{Indices: seq(0, head)},
				{Indices: seq(head, n)},
			}, nil
		}
		if p.k == 0 {
			return nil, ErrMissingFolds
		}
		if p.k < 2 || p.k > n {
			return nil, fmt.Errorf("%w: k=%d on %d timesteps", ErrBadFolds, p.k, n)
		}
		out := make([]Fold, p.k)
		base, extra := n/p.k, n%p.k
		at := 0
		for i := 0; i < p.k; i++ {
			size := base
			if i < extra {
				size++
			}
			out[i] = Fold{Indices: seq(at, at+size)}
			at += size
		}
		return out, nil

	case ModeExplicit:
		if len(p.sets) == 0 {
			return nil, fmt.Errorf("%w: no explicit folds given", ErrBadFolds)
		}
		out := make([]Fold, len(p.sets))
		for i, years := range p.sets {
			sorted := make([]int, len(years))
			copy(sorted, years)
			sort.Ints(sorted)
			idx := g.YearIndex(sorted)
			if len(idx) == 0 {
				return nil, fmt.Errorf("%w: years %v", ErrEmptyFold, sorted)
			}
			out[i] = Fold{Indices: idx, Years: sorted}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown mode %d", ErrBadFolds, p.mode)
}

// Cycles derives the train/test evaluations the plan drives. In
// leave-one-year-out, integer k-fold, and explicit modes each fold is held
// out in turn against the rest. A fractional k-fold is a single
// train-on-head, test-on-tail evaluation. ModeNone trains and tests on the
// full period.
func (p Plan) Cycles(g *grid.Grid) ([]Cycle, error) {
	fs, err := p.Split(g)
	if err != nil {
		return nil, err
	}
	n := g.Len()
	if p.mode == ModeNone {
		all := fs[0].Indices
		return []Cycle{{Train: all, Test: all}}, nil
	}
	if p.mode == ModeKFold && p.fraction != 0 {
		return []Cycle{{Train: fs[0].Indices, Test: fs[1].Indices}}, nil
	}
	out := make([]Cycle, len(fs))
	for i, f := range fs {
		out[i] = Cycle{Train: complement(f.Indices, n), Test: f.Indices}
	}
	return out, nil
}

func seq(from, to int) []int {
	idx := make([]int, to-from)
	for i := range idx {
		idx[i] = from + i
	}
	return idx
}

func complement(idx []int, n int) []int {
	in := make([]bool, n)
	for _, i := range idx {
		in[i] = true
	}
	out := make([]int, 0, n-len(idx))
	for i := 0; i < n; i++ {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}
