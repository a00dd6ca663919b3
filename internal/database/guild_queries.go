package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/studybot/internal/models"
)

// EnsureGuild returns the stored guild, inserting it first when absent.
// An existing name is never overwritten.
func (q *Queries) EnsureGuild(ctx context.Context, guildID int64, name sql.NullString) (*models.Guild, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO guilds (guild_id, guild_name)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE
		SET guild_id = guilds.guild_id
		RETURNING guild_id, guild_name, created_at
	`

	var guild models.Guild
	err := q.db.QueryRowContext(ctx, query, guildID, name).Scan(
		&guild.GuildID,
		&guild.Name,
		&guild.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure guild: %w", err)
	}

	return &guild, nil
}

// GetGuild retrieves a guild by its Discord guild ID
func (q *Queries) GetGuild(ctx context.Context, guildID int64) (*models.Guild, error) {
	query := `
		SELECT guild_id, guild_name, created_at
		FROM guilds
		WHERE guild_id = $1
	`

	var guild models.Guild
	err := q.db.QueryRowContext(ctx, query, guildID).Scan(
		&guild.GuildID,
		&guild.Name,
		&guild.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("guild not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get guild: %w", err)
	}

	return &guild, nil
}

// EnsureUser returns the stored (user, guild) record, inserting it when absent.
// A stored null name is filled in from name; a known name is kept.
// The guild row must already exist.
func (q *Queries) EnsureUser(ctx context.Context, userID, guildID int64, name sql.NullString) (*models.User, error) {
	query := `
		INSERT INTO users (user_id, guild_id, discord_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, guild_id) DO UPDATE
		SET discord_name = COALESCE(users.discord_name, EXCLUDED.discord_name),
		    updated_at = CASE
		        WHEN users.discord_name IS NULL AND EXCLUDED.discord_name IS NOT NULL THEN NOW()
		        ELSE users.updated_at
		    END
		RETURNING user_id, guild_id, discord_name, created_at, updated_at
	`

	var user models.User
	err := q.db.QueryRowContext(ctx, query, userID, guildID, name).Scan(
		&user.UserID,
		&user.GuildID,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	return &user, nil
}

// GetUser retrieves a user by its composite key
func (q *Queries) GetUser(ctx context.Context, userID, guildID int64) (*models.User, error) {
	query := `
		SELECT user_id, guild_id, discord_name, created_at, updated_at
		FROM users
		WHERE user_id = $1 AND guild_id = $2
	`

	var user models.User
	err := q.db.QueryRowContext(ctx, query, userID, guildID).Scan(
		&user.UserID,
		&user.GuildID,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ListGuildUsers returns every user registered in a guild, ordered by user ID
func (q *Queries) ListGuildUsers(ctx context.Context, guildID int64) ([]*models.User, error) {
	query := `
		SELECT user_id, guild_id, discord_name, created_at, updated_at
		FROM users
		WHERE guild_id = $1
		ORDER BY user_id ASC
	`

	rows, err := q.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.UserID,
			&user.GuildID,
			&user.DisplayName,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
