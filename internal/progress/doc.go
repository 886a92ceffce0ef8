// Package progress maps pipeline stages onto percent bands and remaining-time
// estimates, and persists monotonic progress updates for a running task.
package progress
