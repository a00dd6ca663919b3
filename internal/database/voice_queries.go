package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/studybot/internal/models"
)

const voiceSessionColumns = `session_id, user_id, guild_id, channel_id, start_time, end_time, duration_seconds`

func scanVoiceSession(row rowScanner) (*models.VoiceSession, error) {
	var s models.VoiceSession
	err := row.Scan(
		&s.SessionID,
		&s.UserID,
		&s.GuildID,
		&s.ChannelID,
		&s.StartTime,
		&s.EndTime,
		&s.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	if s.EndTime.Valid {
		s.EndTime.Time = s.EndTime.Time.UTC()
	}
	return &s, nil
}

// CreateVoiceSession inserts an open voice session and fills in its session ID
func (q *Queries) CreateVoiceSession(ctx context.Context, s *models.VoiceSession) error {
	query := `
		INSERT INTO voice_sessions (user_id, guild_id, channel_id, start_time)
		VALUES ($1, $2, $3, $4)
		RETURNING session_id
	`

	err := q.db.QueryRowContext(ctx, query,
		s.UserID,
		s.GuildID,
		s.ChannelID,
		s.StartTime,
	).Scan(&s.SessionID)
	if err != nil {
		return fmt.Errorf("failed to create voice session: %w", err)
	}

	return nil
}

// GetVoiceSession retrieves a voice session by its session ID
func (q *Queries) GetVoiceSession(ctx context.Context, sessionID int64) (*models.VoiceSession, error) {
	query := `SELECT ` + voiceSessionColumns + ` FROM voice_sessions WHERE session_id = $1`

	s, err := scanVoiceSession(q.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("voice session not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get voice session: %w", err)
	}

	return s, nil
}

// LockLatestOpenVoiceSession selects the most recently started open session
// of an owner in one channel and locks the row until the transaction ends.
func (q *Queries) LockLatestOpenVoiceSession(ctx context.Context, owner models.Owner, channelID int64) (*models.VoiceSession, error) {
	query := `
		SELECT ` + voiceSessionColumns + `
		FROM voice_sessions
		WHERE user_id = $1 AND guild_id = $2 AND channel_id = $3 AND end_time IS NULL
		ORDER BY start_time DESC, session_id DESC
		LIMIT 1
		FOR UPDATE
	`

	s, err := scanVoiceSession(q.db.QueryRowContext(ctx, query, owner.UserID, owner.GuildID, channelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open voice session not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get open voice session: %w", err)
	}

	return s, nil
}

// CloseVoiceSession persists the end time and duration of a closed session.
// Only a row that is still open is updated.
func (q *Queries) CloseVoiceSession(ctx context.Context, s *models.VoiceSession) error {
	query := `
		UPDATE voice_sessions
		SET end_time = $1, duration_seconds = $2
		WHERE session_id = $3 AND end_time IS NULL
	`

	result, err := q.db.ExecContext(ctx, query, s.EndTime, s.DurationSeconds, s.SessionID)
	if err != nil {
		return fmt.Errorf("failed to close voice session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("open voice session not found: %w", ErrNotFound)
	}

	return nil
}

// ListOpenVoiceSessions returns every open session of an owner across all
// channels, newest first
func (q *Queries) ListOpenVoiceSessions(ctx context.Context, owner models.Owner) ([]*models.VoiceSession, error) {
	query := `
		SELECT ` + voiceSessionColumns + `
		FROM voice_sessions
		WHERE user_id = $1 AND guild_id = $2 AND end_time IS NULL
		ORDER BY start_time DESC, session_id DESC
	`

	rows, err := q.db.QueryContext(ctx, query, owner.UserID, owner.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open voice sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.VoiceSession{}
	for rows.Next() {
		s, err := scanVoiceSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voice session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voice sessions: %w", err)
	}

	return sessions, nil
}

// SumVoiceSeconds totals the durations of an owner's closed voice sessions
func (q *Queries) SumVoiceSeconds(ctx context.Context, owner models.Owner) (int64, error) {
	query := `
		SELECT COALESCE(SUM(duration_seconds), 0)
		FROM voice_sessions
		WHERE user_id = $1 AND guild_id = $2 AND duration_seconds IS NOT NULL
	`

	var total int64
	if err := q.db.QueryRowContext(ctx, query, owner.UserID, owner.GuildID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum voice seconds: %w", err)
	}

	return total, nil
}
