// Package separation runs Demucs source separation to obtain per-stem audio
// for refinement scoring. Separation is strictly best-effort: any failure is
// reported to the caller, who falls back to mixture-only analysis.
package separation
