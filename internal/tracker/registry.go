package tracker

import (
	"context"

	"github.com/parsascontentcorner/studybot/internal/database"
	"github.com/parsascontentcorner/studybot/internal/models"
)

// EnsureGuild returns the guild, creating it on first reference. An empty
// name means unknown; a stored name is never replaced.
func (s *Service) EnsureGuild(ctx context.Context, guildID int64, name string) (*models.Guild, error) {
	var guild *models.Guild
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		guild, err = q.EnsureGuild(ctx, guildID, models.NullableName(name))
		return err
	})
	if err != nil {
		return nil, err
	}
	return guild, nil
}

// EnsureUser returns the (user, guild) record, creating the guild and user
// as needed. A missing display name is filled in when one is supplied.
func (s *Service) EnsureUser(ctx context.Context, userID, guildID int64, displayName string) (*models.User, error) {
	var user *models.User
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		if _, err := q.EnsureGuild(ctx, guildID, models.NullableName("")); err != nil {
			return err
		}
		var err error
		user, err = q.EnsureUser(ctx, userID, guildID, models.NullableName(displayName))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
