// Package queue persists podcast tasks, their highlights and per-owner voice
// preferences in SQLite (default) or Postgres.
//
// The Store owns every lifecycle write: creation at pending/queued, stage
// progress that never lowers the stored percent, result fields, and the two
// terminal states. Terminal rows are never reopened; mutations against them
// return ErrTerminal. Heartbeats let the daemon fail runs orphaned by a crash.
//
// Queries are written with ? placeholders and rebound to $n for Postgres.
// Schema changes bump schemaVersion in schema.go; users clear the database to
// adopt the new schema.
package queue
