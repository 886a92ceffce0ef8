// Package analyzer turns resolved source text into a podcast title, summary
// and two-host script using the chat-completion client. For video sources it
// can also attempt a single combined call that is only trusted after the
// model echoes the canonical video id and a title matching the independently
// fetched ground truth.
package analyzer
