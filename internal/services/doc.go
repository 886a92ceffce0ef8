// Package services holds the cross-cutting contracts shared by pipeline
// collaborators: the failure taxonomy persisted on tasks, the fixed
// user-facing messages for each kind, and context helpers that carry task,
// owner, and stage identity into logs.
package services
