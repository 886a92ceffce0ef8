package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveVoicePreference upserts an owner's default host voices.
func (s *Store) SaveVoicePreference(ctx context.Context, pref VoicePreference) error {
	if pref.OwnerID == "" || pref.Host1VoiceID == "" || pref.Host2VoiceID == "" {
		return errors.New("save voice preference: owner and both voices required")
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO voice_preferences (owner_id, host1_voice_id, host2_voice_id, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(owner_id) DO UPDATE SET
             host1_voice_id = excluded.host1_voice_id,
             host2_voice_id = excluded.host2_voice_id,
             updated_at = excluded.updated_at`,
		pref.OwnerID, pref.Host1VoiceID, pref.Host2VoiceID, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("save voice preference: %w", err)
	}
	return nil
}

// GetVoicePreference returns the owner's saved voices, or (nil, nil).
func (s *Store) GetVoicePreference(ctx context.Context, ownerID string) (*VoicePreference, error) {
	var (
		pref       VoicePreference
		updatedRaw string
	)
	err := s.queryRow(ctx,
		`SELECT owner_id, host1_voice_id, host2_voice_id, updated_at FROM voice_preferences WHERE owner_id = ?`,
		ownerID,
	).Scan(&pref.OwnerID, &pref.Host1VoiceID, &pref.Host2VoiceID, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get voice preference: %w", err)
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		pref.UpdatedAt = updated
	}
	return &pref, nil
}
