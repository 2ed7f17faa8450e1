// Package folds plans the train/test splits used for cross-validated
// downscaling.
//
// A Plan is a resolved, validated fold configuration:
//
//	folds.None()                          // no held-out period
//	folds.LeaveOneYearOut()               // one fold per calendar year
//	folds.KFold(5)                        // five contiguous chronological folds
//	folds.KFoldFraction(0.75)             // train on the first 75%, test on the rest
//	folds.Explicit([][]int{{1985, 1986}, {1987}})
//
// Split returns the disjoint partition; Cycles turns it into the ordered
// train/test evaluations, each holding one fold out against the union of the
// rest. Requesting k-fold mode without a count or fraction is a configuration
// error (ErrMissingFolds) — there is no silent default.
package folds
