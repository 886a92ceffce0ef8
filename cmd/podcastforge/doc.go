// Command podcastforge is the command-line client for the podcastforge
// daemon.
//
// Most commands talk to a running daemon over its HTTP API: submitting
// tasks, following progress, listing episodes, cutting highlights and
// managing voice preferences. The run, start and stop commands manage the
// daemon process itself, and the config commands work without a daemon.
//
// Output is rendered as tables on a terminal and as JSON with --json.
package main
