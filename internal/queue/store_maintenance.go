package queue

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat updates the heartbeat timestamp for a running task.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	if _, err := s.execWithRetry(ctx,
		`UPDATE tasks SET heartbeat_at = ? WHERE id = ? AND status = ?`,
		now, id, string(StatusProcessing),
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// FailStaleProcessing marks processing tasks whose heartbeat is older than
// cutoff (or missing) as failed. Orphaned runs are never reopened.
func (s *Store) FailStaleProcessing(ctx context.Context, cutoff time.Time, kind, message string) (int64, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks
         SET status = ?, stage = ?, error_kind = ?, error_message = ?, progress_message = ?,
             eta_seconds = NULL, heartbeat_at = NULL, updated_at = ?
         WHERE status = ? AND (heartbeat_at IS NULL OR heartbeat_at < ?)`,
		string(StatusFailed), string(StageFailed), kind, message, message, now,
		string(StatusProcessing), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale tasks: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of tasks grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.query(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates task state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		}
	}
	return health, nil
}

// CheckHealth pings the database and reports schema and row counts.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{Driver: s.driver, Location: s.location}
	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping task database: %w", err)
	}
	health.Readable = true

	if err := s.queryRow(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.queryRow(connCtx, "SELECT COUNT(*) FROM tasks").Scan(&health.TotalTasks); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count tasks: %w", err)
	}
	return health, nil
}
