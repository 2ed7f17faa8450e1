// Package downscale ties predictor preparation, fold planning, method
// dispatch, and occurrence/amount recombination into a single entry point.
//
// # Basic usage
//
// Downscale a station series from a predictor field with one analog day:
//
//	pred, err := downscale.Downscale(y, x, nil, downscale.Options{
//	    Method:   "analogs",
//	    NAnalogs: 1,
//	})
//
// The prediction's date index always equals that of the data predicted for —
// newdata without cross-validation, the reassembled fold sequence with it.
//
// # Precipitation
//
// Method "glm" handles precipitation's mixed discrete/continuous nature with
// two sub-models: binomial/logit for occurrence and gamma/log for amounts,
// the latter fit on wet days only. Deterministic runs calibrate the
// occurrence gate to the observed wet frequency; stochastic runs draw from
// both fitted distributions:
//
//	pred, err := downscale.Downscale(y, x, nil, downscale.Options{
//	    Method:       "glm",
//	    Simulate:     true,
//	    WetThreshold: 1.0,
//	    Seed:         42,
//	})
//
// # Cross-validation
//
// A fold plan routes the run through repeated train/test cycles:
//
//	pred, err := downscale.Downscale(y, x, nil, downscale.Options{
//	    Method:   "glm",
//	    CrossVal: folds.LeaveOneYearOut(),
//	})
//
// Per-fold training statistics never leak into the held-out period, and a
// failure in any fold aborts the whole run.
package downscale
