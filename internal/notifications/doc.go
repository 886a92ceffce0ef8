// Package notifications delivers task lifecycle events to ntfy.
//
// NewService returns a no-op when no topic is configured, so callers never
// branch on whether notifications are enabled. Per-event toggles live in the
// [notifications] config section.
package notifications
