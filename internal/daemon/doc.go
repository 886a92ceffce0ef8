// Package daemon coordinates the long-running podcastforge process.
//
// It wires configuration, the task store, the workflow manager and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. On start it prunes stale scratch directories and old logs, runs
// the preflight checks (failures are logged, not fatal), then starts the
// workflow and begins serving the API.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown and the request surface.
package daemon
