package tracker

import (
	"context"
	"sort"

	"github.com/parsascontentcorner/studybot/internal/database"
	"github.com/parsascontentcorner/studybot/internal/models"
)

// Stats are the closed-interval totals of one user in one guild
type Stats struct {
	TaskSeconds  int64
	VoiceSeconds int64
}

// TotalSeconds is the task and voice time combined
func (s Stats) TotalSeconds() int64 {
	return s.TaskSeconds + s.VoiceSeconds
}

// TotalTaskSeconds sums the owner's closed task intervals
func (s *Service) TotalTaskSeconds(ctx context.Context, userID, guildID int64) (int64, error) {
	var total int64
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		total, err = q.SumTaskSeconds(ctx, models.Owner{UserID: userID, GuildID: guildID}, models.EventTypeTask)
		return err
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// TotalVoiceSeconds sums the owner's closed voice sessions
func (s *Service) TotalVoiceSeconds(ctx context.Context, userID, guildID int64) (int64, error) {
	var total int64
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		total, err = q.SumVoiceSeconds(ctx, models.Owner{UserID: userID, GuildID: guildID})
		return err
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// UserStats reads both totals in one transaction
func (s *Service) UserStats(ctx context.Context, userID, guildID int64) (Stats, error) {
	var stats Stats
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		stats, err = userStats(ctx, q, models.Owner{UserID: userID, GuildID: guildID})
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// GuildLeaderboard ranks every registered user of the guild by total tracked
// time, highest first. Equal totals are ordered by ascending user ID.
func (s *Service) GuildLeaderboard(ctx context.Context, guildID int64) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		users, err := q.ListGuildUsers(ctx, guildID)
		if err != nil {
			return err
		}

		entries = make([]models.LeaderboardEntry, 0, len(users))
		for _, u := range users {
			stats, err := userStats(ctx, q, u.Owner())
			if err != nil {
				return err
			}
			entries = append(entries, models.LeaderboardEntry{
				UserID:       u.UserID,
				DisplayName:  u.DisplayName,
				TaskSeconds:  stats.TaskSeconds,
				VoiceSeconds: stats.VoiceSeconds,
				TotalSeconds: stats.TotalSeconds(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalSeconds != entries[j].TotalSeconds {
			return entries[i].TotalSeconds > entries[j].TotalSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}

func userStats(ctx context.Context, q *database.Queries, owner models.Owner) (Stats, error) {
	task, err := q.SumTaskSeconds(ctx, owner, models.EventTypeTask)
	if err != nil {
		return Stats{}, err
	}
	voice, err := q.SumVoiceSeconds(ctx, owner)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TaskSeconds: task, VoiceSeconds: voice}, nil
}
