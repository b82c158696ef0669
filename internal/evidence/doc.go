// Package evidence aggregates per-window classifier probabilities into the
// track-level statistics the decision engine consumes.
//
// Per instrument and per model it keeps a mean probability and the fraction
// of windows whose probability met the model's activation gate. Lookups for
// absent keys return zeros, and combining across models always sums rather
// than averages, so a single-model signal is never diluted by the other
// model's silence.
package evidence
