// Package queue persists analysis work items in SQLite and mediates
// their lifecycle: pending, analyzing, completed, failed, review.
// All mutations retry on SQLITE_BUSY so the daemon and CLI can share
// the database safely.
package queue
