package tracker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/database"
	"github.com/parsascontentcorner/studybot/internal/models"
)

// StartTask opens a new named task interval at the current time. Already
// open tasks are left untouched.
func (s *Service) StartTask(ctx context.Context, userID, guildID int64, name string) (*models.TaskEvent, error) {
	ev := &models.TaskEvent{
		UserID:    userID,
		GuildID:   guildID,
		EventType: models.EventTypeTask,
		EventName: name,
		Interval:  models.Interval{StartTime: s.now()},
	}

	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		return q.CreateTaskEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task started",
		zap.Int64("event_id", ev.EventID),
		zap.Int64("user_id", userID),
		zap.Int64("guild_id", guildID),
		zap.String("event_name", name),
	)
	return ev, nil
}

// StopTask closes the owner's most recently started open task, whatever its
// name. It returns ErrNoActiveTask when nothing is open.
func (s *Service) StopTask(ctx context.Context, userID, guildID int64) (*models.TaskEvent, error) {
	owner := models.Owner{UserID: userID, GuildID: guildID}

	var ev *models.TaskEvent
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		ev, err = q.LockLatestOpenTaskEvent(ctx, owner, models.EventTypeTask)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return ErrNoActiveTask
			}
			return err
		}

		if err := ev.Close(s.now()); err != nil {
			return err
		}
		return q.CloseTaskEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task stopped",
		zap.Int64("event_id", ev.EventID),
		zap.Int64("user_id", userID),
		zap.Int64("guild_id", guildID),
		zap.Int64("duration_seconds", ev.Seconds()),
	)
	return ev, nil
}
