// Package workflow turns submitted sources into finished podcast episodes.
//
// The Manager validates submissions, persists tasks, and hands task ids to a
// bounded Dispatcher. Each dispatched task runs a single pass through the
// pipeline (resolve, analyze, synthesize) while a heartbeat keeps the row
// fresh and a progress tracker publishes monotonic stage updates. Failures are
// classified once into the services error taxonomy, persisted with a fixed
// user-facing message, and never retried.
//
// Highlights are generated on demand for completed tasks: each requested
// duration is extracted, clipped and stored independently so one failure does
// not discard the others.
//
// Startup recovery fails tasks orphaned by a crashed process and re-dispatches
// tasks still waiting in the queue.
package workflow
