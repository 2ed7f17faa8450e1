// Package godownscale provides perfect-prog statistical downscaling of
// station series from large-scale predictor fields.
//
// GoDownscale trains a statistical model mapping gridded atmospheric
// predictors (optionally reduced to principal components) to a local
// observational series, validates it through chronological resampling, and
// produces a predicted series, with specialized two-stage handling for
// precipitation's occurrence/amount structure.
//
// # Features
//
//   - Analog (nearest-neighbor), GLM, and linear-regression methods
//   - Two-stage occurrence/amount decomposition for precipitation, with
//     deterministic or stochastic reconstruction
//   - Cross-validation: leave-one-year-out, k-fold (count or fraction),
//     and explicit year-set folds
//   - Spatial predictors via per-variable and pooled principal components
//   - Fold-local standardization and component extraction (no data leakage)
//
// # Quick Start
//
// Downscale daily station precipitation from a predictor field:
//
//	y, _ := grid.NewSeries(dates, precip, "precip")
//	x, _ := grid.New(dates, []string{"slp", "t850"}, 4, rows)
//	pred, err := downscale.Downscale(y, x, nil, downscale.Options{
//	    Method:       "glm",
//	    WetThreshold: 1.0,
//	    CrossVal:     folds.LeaveOneYearOut(),
//	})
//
// # Packages
//
// The library is organized into the following packages:
//
//   - grid: time-indexed data structures and grid operations
//   - predictors: design-matrix assembly and principal-component predictors
//   - folds: cross-validation fold planning
//   - methods: analog, GLM, and linear downscaling methods
//   - downscale: the end-to-end orchestration entry point
//
// # References
//
//   - Maraun, D., & Widmann, M. (2018). Statistical Downscaling and Bias
//     Correction for Climate Research
//   - von Storch, H., & Zwiers, F. W. (1999). Statistical Analysis in
//     Climate Research
package godownscale
