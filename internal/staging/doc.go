// Package staging manages the scratch work directories that resolvers, the
// synthesizer and the clip service create under temp_dir.
//
// Every pipeline step removes its own directory on return. The helpers here
// reclaim directories left behind by a crash: CleanStale at daemon start,
// Summarize for health output.
package staging
