// Package synth renders a two-host script into a single podcast episode:
// the text is split into speaker turns, each turn is voiced independently,
// the clips are joined with a stream-copy concat, and the result is uploaded.
// Any failed turn fails the whole episode.
package synth
