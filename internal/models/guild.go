// Package models defines the persisted records of the study tracker.
package models

import (
	"database/sql"
	"time"
)

// Guild represents a Discord guild (server), the top-level tenancy boundary
type Guild struct {
	GuildID   int64          `json:"guild_id"`
	Name      sql.NullString `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
}

// Owner identifies the (user, guild) pair that owns intervals and assignments
type Owner struct {
	UserID  int64 `json:"user_id"`
	GuildID int64 `json:"guild_id"`
}

// User is a Discord user scoped to one guild
type User struct {
	UserID      int64          `json:"user_id"`
	GuildID     int64          `json:"guild_id"`
	DisplayName sql.NullString `json:"display_name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Owner returns the ownership key of the user
func (u *User) Owner() Owner {
	return Owner{UserID: u.UserID, GuildID: u.GuildID}
}

// NameOr returns the display name, or fallback when none is known
func (u *User) NameOr(fallback string) string {
	if u.DisplayName.Valid && u.DisplayName.String != "" {
		return u.DisplayName.String
	}
	return fallback
}

// NullableName converts an optional name into a sql.NullString.
// Empty strings are treated as unknown.
func NullableName(name string) sql.NullString {
	return sql.NullString{String: name, Valid: name != ""}
}
