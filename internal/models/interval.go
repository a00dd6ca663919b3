package models

import (
	"database/sql"
	"errors"
	"time"
)

// EventTypeTask is the user_events discriminator for manually timed tasks
const EventTypeTask = "task"

// ErrIntervalClosed is returned when closing an interval that already has an end time
var ErrIntervalClosed = errors.New("interval already closed")

// Interval is a start/stop timed span. DurationSeconds stays null until the
// interval is closed.
type Interval struct {
	StartTime       time.Time     `json:"start_time"`
	EndTime         sql.NullTime  `json:"end_time"`
	DurationSeconds sql.NullInt64 `json:"duration_seconds"`
}

// IsOpen reports whether the interval has not been stopped yet
func (iv *Interval) IsOpen() bool {
	return !iv.EndTime.Valid
}

// Close stops the interval at end. The duration is truncated to whole
// seconds and an end before the start counts as zero elapsed time.
func (iv *Interval) Close(end time.Time) error {
	if !iv.IsOpen() {
		return ErrIntervalClosed
	}
	if end.Before(iv.StartTime) {
		end = iv.StartTime
	}

	iv.EndTime = sql.NullTime{Time: end, Valid: true}
	iv.DurationSeconds = sql.NullInt64{Int64: int64(end.Sub(iv.StartTime) / time.Second), Valid: true}
	return nil
}

// Seconds returns the closed duration, or 0 for an open interval
func (iv *Interval) Seconds() int64 {
	if !iv.DurationSeconds.Valid {
		return 0
	}
	return iv.DurationSeconds.Int64
}

// TaskEvent is a named task interval stored in user_events
type TaskEvent struct {
	EventID   int64  `json:"event_id"`
	UserID    int64  `json:"user_id"`
	GuildID   int64  `json:"guild_id"`
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Interval
}

// Owner returns the ownership key of the event
func (e *TaskEvent) Owner() Owner {
	return Owner{UserID: e.UserID, GuildID: e.GuildID}
}

// VoiceSession is a voice-channel presence interval
type VoiceSession struct {
	SessionID int64 `json:"session_id"`
	UserID    int64 `json:"user_id"`
	GuildID   int64 `json:"guild_id"`
	ChannelID int64 `json:"channel_id"`
	Interval
}

// Owner returns the ownership key of the session
func (s *VoiceSession) Owner() Owner {
	return Owner{UserID: s.UserID, GuildID: s.GuildID}
}
