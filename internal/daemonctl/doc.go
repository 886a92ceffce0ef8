// Package daemonctl starts and stops the podcastforge daemon process from
// the CLI. Liveness is judged through the HTTP API; termination uses the pid
// file written by the daemon, escalating to SIGKILL after a grace period.
package daemonctl
