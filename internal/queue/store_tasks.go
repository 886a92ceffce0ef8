package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTask inserts a new pending task at stage queued. ID, status, stage
// and timestamps are assigned here.
func (s *Store) CreateTask(ctx context.Context, task *Task) (*Task, error) {
	if task == nil {
		return nil, errors.New("task is nil")
	}
	if strings.TrimSpace(task.OwnerID) == "" {
		return nil, errors.New("owner id required")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Mode == "" {
		task.Mode = ModeMedium
	}
	if task.Style == "" {
		task.Style = StyleCasual
	}
	now := time.Now().UTC()
	task.Status = StatusPending
	task.Stage = StageQueued
	task.ProgressPercent = 0
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := s.execWithRetry(ctx,
		`INSERT INTO tasks (
            id, owner_id, input_type, source_reference, mode, style, host1_voice_id, host2_voice_id,
            status, stage, progress_percent, progress_message, eta_seconds, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OwnerID, string(task.InputType), task.SourceReference, string(task.Mode), string(task.Style),
		nullableString(task.Host1VoiceID), nullableString(task.Host2VoiceID),
		string(task.Status), string(task.Stage), task.ProgressPercent, nullableString(task.ProgressMessage),
		nullableInt(task.ETASeconds), formatTime(now), formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, task.ID)
}

// GetTask fetches a task by identifier. A missing task yields (nil, nil).
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns an owner's tasks, newest first. A non-positive limit
// returns every task.
func (s *Store) ListTasks(ctx context.Context, ownerID string, limit int) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, id`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.listTasks(ctx, query, args...)
}

// ListByStatus returns tasks in any of the given statuses, oldest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Task, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status IN (` + strings.Join(placeholders, ",") + `) ORDER BY created_at, id`
	return s.listTasks(ctx, query, args...)
}

// FindActive returns a pending or processing task for the same owner, input
// type and source reference, if one exists.
func (s *Store) FindActive(ctx context.Context, ownerID string, inputType InputType, sourceReference string) (*Task, error) {
	row := s.queryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks
         WHERE owner_id = ? AND input_type = ? AND source_reference = ? AND status IN (?, ?)
         ORDER BY created_at DESC LIMIT 1`,
		ownerID, string(inputType), sourceReference, string(StatusPending), string(StatusProcessing),
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active task: %w", err)
	}
	return task, nil
}

// DeleteTask removes an owner's task. Highlights cascade. It reports whether
// a row was removed.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) listTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
