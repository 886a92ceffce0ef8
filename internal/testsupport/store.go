package testsupport

import (
	"context"
	"testing"

	"podcastforge/internal/config"
	"podcastforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustCreateTask inserts a task for owner with the given modality and source.
func MustCreateTask(t testing.TB, store *queue.Store, owner string, inputType queue.InputType, source string) *queue.Task {
	t.Helper()

	task, err := store.CreateTask(context.Background(), &queue.Task{
		OwnerID:         owner,
		InputType:       inputType,
		SourceReference: source,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}
