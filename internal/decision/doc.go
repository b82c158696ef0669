// Package decision implements the track-level presence engine: calibrated
// per-instrument thresholds over aggregated evidence, the conservative brass
// gate with its piano veto, and the stem-weighted refinement path used when
// source separation succeeds.
//
// All comparisons are inclusive (>=) so documented threshold values behave
// as "at least". The engine is deliberately conservative: generic section
// labels need corroborating member evidence, and the cascade package layers
// recall boosters on top rather than loosening these gates.
package decision
