package tracker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/database"
	"github.com/parsascontentcorner/studybot/internal/models"
)

// VoiceJoin opens a voice session in channelID at the current time
func (s *Service) VoiceJoin(ctx context.Context, userID, guildID, channelID int64) (*models.VoiceSession, error) {
	session := &models.VoiceSession{
		UserID:    userID,
		GuildID:   guildID,
		ChannelID: channelID,
		Interval:  models.Interval{StartTime: s.now()},
	}

	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		return q.CreateVoiceSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("voice session opened",
		zap.Int64("session_id", session.SessionID),
		zap.Int64("user_id", userID),
		zap.Int64("guild_id", guildID),
		zap.Int64("channel_id", channelID),
	)
	return session, nil
}

// VoiceLeave closes the newest open session of the user in channelID. It
// returns ErrNoOpenSession when there is none.
func (s *Service) VoiceLeave(ctx context.Context, userID, guildID, channelID int64) (*models.VoiceSession, error) {
	owner := models.Owner{UserID: userID, GuildID: guildID}

	var session *models.VoiceSession
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		session, err = q.LockLatestOpenVoiceSession(ctx, owner, channelID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return ErrNoOpenSession
			}
			return err
		}

		if err := session.Close(s.now()); err != nil {
			return err
		}
		return q.CloseVoiceSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("voice session closed",
		zap.Int64("session_id", session.SessionID),
		zap.Int64("user_id", userID),
		zap.Int64("guild_id", guildID),
		zap.Int64("channel_id", channelID),
		zap.Int64("duration_seconds", session.Seconds()),
	)
	return session, nil
}
