// Package predictors assembles the design matrices consumed by the
// downscaling methods.
//
// Prepare fits the predictor transform on a training grid: column-wise
// standardization plus, when a spatial-predictor Config is supplied,
// per-variable and pooled principal components. PrepareNew then applies that
// fitted transform to test or prediction data. The asymmetry is deliberate:
// moments and rotations come from the training period only, so no statistic
// of the held-out period ever leaks into the design.
//
//	dm, err := predictors.Prepare(xTrain, yTrain, cfg)
//	xTest, err := predictors.PrepareNew(xHeldOut, dm)
//
// A Config names every grid variable exactly once:
//
//	cfg := &predictors.Config{
//	    Entries: []predictors.Entry{
//	        {Variable: "slp", Components: 1},
//	        {Variable: "t850", Components: 2},
//	    },
//	    JointComponents: 3, // pooled across all variables combined
//	}
//
// A mismatch between the configured and actual variable sets is a
// configuration error, reported immediately.
package predictors
