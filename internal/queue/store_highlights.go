package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertHighlight persists a highlight. ID and CreatedAt are assigned when empty.
func (s *Store) InsertHighlight(ctx context.Context, h *Highlight) (*Highlight, error) {
	if h == nil {
		return nil, errors.New("highlight is nil")
	}
	if h.Duration <= 0 {
		return nil, fmt.Errorf("insert highlight: duration must be positive, got %v", h.Duration)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO highlights (`+highlightColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.TaskID, h.OwnerID, h.Title, nullableString(h.Description),
		h.StartTime, h.EndTime, h.Duration, h.TargetDuration,
		nullableString(h.TranscriptExcerpt), h.ClipAudioURL, h.ClipAssetKey, formatTime(h.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert highlight: %w", err)
	}
	return h, nil
}

// ListHighlights returns the highlights of a task in creation order.
func (s *Store) ListHighlights(ctx context.Context, taskID string) ([]*Highlight, error) {
	rows, err := s.query(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE task_id = ? ORDER BY created_at, target_duration`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	var highlights []*Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// GetHighlight fetches a highlight. A missing row yields (nil, nil).
func (s *Store) GetHighlight(ctx context.Context, id string) (*Highlight, error) {
	h, err := scanHighlight(s.queryRow(ctx, `SELECT `+highlightColumns+` FROM highlights WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get highlight: %w", err)
	}
	return h, nil
}

// DeleteHighlight removes an owner's highlight and reports whether it existed.
func (s *Store) DeleteHighlight(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM highlights WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete highlight: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete highlight: %w", err)
	}
	return affected > 0, nil
}
