// Package storage persists generated audio objects and hands back URLs that
// the API and downstream consumers can fetch.
//
// Two backends exist: a local directory (default, suitable for single host
// installs) and S3-compatible object storage. Keys are slash separated and
// namespaced by owner and task, for example
// podcast-episodes/{owner}/{episode}.mp3.
package storage
