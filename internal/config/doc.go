// Package config loads, normalizes, and validates tutti configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the daemon and
// CLI need: model file locations, window geometry, the full calibrated
// decision-threshold table, and stem separation settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
