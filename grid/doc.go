// Package grid provides the time-indexed data structures shared by the
// downscaling pipeline.
//
// A Grid couples an ordered reference-date sequence with per-variable,
// per-location values. Predictor fields and station predictands use the same
// type; a station series is a single-variable, single-location grid.
//
// # Creating grids
//
// Create a station series:
//
//	series, err := grid.NewSeries(dates, values, "precip")
//
// Create a multi-variable field (two variables at four locations each):
//
//	field, err := grid.New(dates, []string{"slp", "t850"}, 4, rows)
//
// # Transformations
//
// All transformations return copies; a grid is never mutated in place.
//
//	// Standardize with moments fit on a base period
//	scaled, err := test.Scale(train, grid.Standardize)
//
//	// Binarize against a wet/dry threshold
//	occ := series.Binary(1.0, false) // 0/1 occurrence
//	amo := series.Binary(1.0, true)  // amounts, dry days masked as NaN
//
//	// Elementwise combination
//	pred, err := occ.Arithmetics(amo, grid.Mul)
//
// # Subsetting
//
// Grids subset by calendar years or by row indices:
//
//	train := field.Subset([]int{1985, 1986})
//	heldOut := field.SubsetIndex(idx)
//
// Masked values are represented as NaN throughout and are excluded from
// moments, frequencies, and model fits.
package grid
