// Package preflight provides readiness checks for the directories, binaries
// and remote services podcastforge depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check without
//     refusing to start; tasks that need a missing collaborator fail with a
//     ConfigurationMissing error instead.
//   - The /api/health endpoint and the CLI "health" command return the same
//     results for display.
//
// Remote checks are skipped when the collaborator is not configured.
package preflight
