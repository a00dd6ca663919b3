package models

import (
	"database/sql"
	"fmt"
	"time"
)

// DateLayout is the calendar date format accepted for due dates
const DateLayout = "2006-01-02"

// Assignment is a due-dated work item with a one-way completion flag
type Assignment struct {
	AssignmentID int64     `json:"assignment_id"`
	UserID       int64     `json:"user_id"`
	GuildID      int64     `json:"guild_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"due_date"`
	IsCompleted  bool      `json:"is_completed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Owner returns the ownership key of the assignment
func (a *Assignment) Owner() Owner {
	return Owner{UserID: a.UserID, GuildID: a.GuildID}
}

// DueDateString formats the due date as YYYY-MM-DD
func (a *Assignment) DueDateString() string {
	return a.DueDate.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// LeaderboardEntry is one ranked user of a guild leaderboard
type LeaderboardEntry struct {
	UserID       int64          `json:"user_id"`
	DisplayName  sql.NullString `json:"display_name"`
	TaskSeconds  int64          `json:"task_seconds"`
	VoiceSeconds int64          `json:"voice_seconds"`
	TotalSeconds int64          `json:"total_seconds"`
}

// Name is the stored display name, or a placeholder built from the user ID
// when the name was never learned
func (e LeaderboardEntry) Name() string {
	if e.DisplayName.Valid && e.DisplayName.String != "" {
		return e.DisplayName.String
	}
	return fmt.Sprintf("User %d", e.UserID)
}
