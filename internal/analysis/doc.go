// Package analysis orchestrates the classification pipeline: decode the
// track at each model's native rate, score sliding windows, aggregate
// evidence, run the conservative track decisions, optionally refine with
// Demucs stems, and apply the booster cascade. The result always includes a
// decision trace explaining every accept, boost, and revocation.
package analysis
