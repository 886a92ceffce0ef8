// Package api defines the wire-format types of the HTTP API together with
// converters from internal models and a typed client used by the CLI.
//
// # Key Types
//
// Task: transport representation of a podcast task with progress, analysis
// output, episode and the fixed user-facing error message.
//
// Highlight, Voice, VoicePreference: highlight clips, TTS catalog entries and
// saved host voices.
//
// DaemonStatus / HealthResponse: workflow diagnostics and preflight results.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for browser consumers. Internal enums are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
// Episode turns are passed through as json.RawMessage to avoid double
// encoding.
package api
