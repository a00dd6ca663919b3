package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/studybot/internal/models"
)

const taskEventColumns = `event_id, user_id, guild_id, event_type, event_name, start_time, end_time, duration_seconds`

func scanTaskEvent(row rowScanner) (*models.TaskEvent, error) {
	var ev models.TaskEvent
	err := row.Scan(
		&ev.EventID,
		&ev.UserID,
		&ev.GuildID,
		&ev.EventType,
		&ev.EventName,
		&ev.StartTime,
		&ev.EndTime,
		&ev.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	ev.StartTime = ev.StartTime.UTC()
	if ev.EndTime.Valid {
		ev.EndTime.Time = ev.EndTime.Time.UTC()
	}
	return &ev, nil
}

// CreateTaskEvent inserts an open task interval and fills in its event ID
func (q *Queries) CreateTaskEvent(ctx context.Context, ev *models.TaskEvent) error {
	query := `
		INSERT INTO user_events (user_id, guild_id, event_type, event_name, start_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING event_id
	`

	err := q.db.QueryRowContext(ctx, query,
		ev.UserID,
		ev.GuildID,
		ev.EventType,
		ev.EventName,
		ev.StartTime,
	).Scan(&ev.EventID)
	if err != nil {
		return fmt.Errorf("failed to create task event: %w", err)
	}

	return nil
}

// GetTaskEvent retrieves a task interval by its event ID
func (q *Queries) GetTaskEvent(ctx context.Context, eventID int64) (*models.TaskEvent, error) {
	query := `SELECT ` + taskEventColumns + ` FROM user_events WHERE event_id = $1`

	ev, err := scanTaskEvent(q.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task event not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task event: %w", err)
	}

	return ev, nil
}

// LockLatestOpenTaskEvent selects the most recently started open interval of
// the given type for an owner and locks the row until the transaction ends.
func (q *Queries) LockLatestOpenTaskEvent(ctx context.Context, owner models.Owner, eventType string) (*models.TaskEvent, error) {
	query := `
		SELECT ` + taskEventColumns + `
		FROM user_events
		WHERE user_id = $1 AND guild_id = $2 AND event_type = $3 AND end_time IS NULL
		ORDER BY start_time DESC, event_id DESC
		LIMIT 1
		FOR UPDATE
	`

	ev, err := scanTaskEvent(q.db.QueryRowContext(ctx, query, owner.UserID, owner.GuildID, eventType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open task event not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get open task event: %w", err)
	}

	return ev, nil
}

// CloseTaskEvent persists the end time and duration of a closed interval.
// Only a row that is still open is updated.
func (q *Queries) CloseTaskEvent(ctx context.Context, ev *models.TaskEvent) error {
	query := `
		UPDATE user_events
		SET end_time = $1, duration_seconds = $2
		WHERE event_id = $3 AND end_time IS NULL
	`

	result, err := q.db.ExecContext(ctx, query, ev.EndTime, ev.DurationSeconds, ev.EventID)
	if err != nil {
		return fmt.Errorf("failed to close task event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("open task event not found: %w", ErrNotFound)
	}

	return nil
}

// ListOpenTaskEvents returns every open interval of the given type for an
// owner, newest first
func (q *Queries) ListOpenTaskEvents(ctx context.Context, owner models.Owner, eventType string) ([]*models.TaskEvent, error) {
	query := `
		SELECT ` + taskEventColumns + `
		FROM user_events
		WHERE user_id = $1 AND guild_id = $2 AND event_type = $3 AND end_time IS NULL
		ORDER BY start_time DESC, event_id DESC
	`

	rows, err := q.db.QueryContext(ctx, query, owner.UserID, owner.GuildID, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query open task events: %w", err)
	}
	defer rows.Close()

	events := []*models.TaskEvent{}
	for rows.Next() {
		ev, err := scanTaskEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task events: %w", err)
	}

	return events, nil
}

// SumTaskSeconds totals the durations of closed intervals of the given type
func (q *Queries) SumTaskSeconds(ctx context.Context, owner models.Owner, eventType string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(duration_seconds), 0)
		FROM user_events
		WHERE user_id = $1 AND guild_id = $2 AND event_type = $3 AND duration_seconds IS NOT NULL
	`

	var total int64
	if err := q.db.QueryRowContext(ctx, query, owner.UserID, owner.GuildID, eventType).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum task seconds: %w", err)
	}

	return total, nil
}
