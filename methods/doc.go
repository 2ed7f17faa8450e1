// Package methods implements the closed set of downscaling methods: analog
// matching, generalized linear models, and ordinary least squares.
//
// Every variant satisfies the same pair of interfaces:
//
//	method, err := methods.New("analogs", methods.Options{NAnalogs: 5, Selection: methods.SelWMean})
//	model, err := method.Train(dm)
//	pred, err := model.Predict(newRows)
//
// An unrecognized method name, selection function, or family is a
// configuration error reported by New or Train; there is no fallback.
//
// # Analogs
//
// Training keeps the design matrix as an analog library. Prediction finds,
// per timestep, the N nearest training days in predictor space and aggregates
// their observed predictand values with the selection function (mean, wmean,
// max, min, median). With N=1 the neighbor's value is returned verbatim.
//
// # GLM
//
// Families gaussian/identity, binomial/logit, and gamma/log, fit by
// iteratively reweighted least squares. Condition "GT" with a threshold
// restricts the fit to rows whose predictand exceeds it — the amount
// sub-model of a precipitation pair is fit on wet days only this way.
// Simulate switches prediction from the conditional mean to a draw from the
// fitted conditional distribution; draws are reproducible through the seed.
//
// # LM
//
// Ordinary least squares, equivalent to the gaussian GLM, solved directly.
package methods
