// Package services defines shared utilities consumed by the analysis
// pipeline stages and the daemon that drives them.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, pipeline stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent queue statuses (failed vs review).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across stages.
package services
