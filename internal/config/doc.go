// Package config loads, normalizes, and validates podcastforge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, applies .env files, and honours environment
// fallbacks such as OPENROUTER_API_KEY and DATABASE_URL. The Config type
// centralizes every knob the daemon and CLI need so collaborator credentials,
// storage backends and highlight tuning are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
