// Package daemon runs the background analysis service: an fsnotify inbox
// watcher with periodic rescans, a worker loop that claims pending queue
// items and runs the classification pipeline, and a file lock that keeps a
// single instance per machine.
package daemon
