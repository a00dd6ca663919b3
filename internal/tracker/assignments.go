package tracker

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/database"
	"github.com/parsascontentcorner/studybot/internal/models"
)

// ValidateAssignment checks a new assignment's title and due date and
// returns the parsed date. Callers that register the owner first run it
// before any write.
func ValidateAssignment(title, dueDate string) (time.Time, error) {
	if strings.TrimSpace(title) == "" {
		return time.Time{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	due, err := models.ParseDate(dueDate)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "due_date", Reason: "expected YYYY-MM-DD"}
	}
	return due, nil
}

// AddAssignment validates and stores a new incomplete assignment. dueDate
// must be a YYYY-MM-DD calendar date.
func (s *Service) AddAssignment(ctx context.Context, userID, guildID int64, title, description, dueDate string) (*models.Assignment, error) {
	due, err := ValidateAssignment(title, dueDate)
	if err != nil {
		return nil, err
	}

	a := &models.Assignment{
		UserID:      userID,
		GuildID:     guildID,
		Title:       title,
		Description: description,
		DueDate:     due,
	}

	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		return q.CreateAssignment(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("assignment added",
		zap.Int64("assignment_id", a.AssignmentID),
		zap.Int64("user_id", userID),
		zap.Int64("guild_id", guildID),
	)
	return a, nil
}

// ListAssignments returns the owner's assignments by due date. The result
// is empty, not nil, when there are none.
func (s *Service) ListAssignments(ctx context.Context, userID, guildID int64) ([]*models.Assignment, error) {
	var list []*models.Assignment
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		list, err = q.ListAssignments(ctx, models.Owner{UserID: userID, GuildID: guildID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CompleteAssignment marks an assignment completed. The lookup is by ID only
// and does not check who owns the assignment.
func (s *Service) CompleteAssignment(ctx context.Context, assignmentID int64) (*models.Assignment, error) {
	var a *models.Assignment
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		a, err = q.CompleteAssignment(ctx, assignmentID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ClearAssignments deletes every assignment of the owner and returns the count
func (s *Service) ClearAssignments(ctx context.Context, userID, guildID int64) (int64, error) {
	var deleted int64
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		deleted, err = q.DeleteAssignments(ctx, models.Owner{UserID: userID, GuildID: guildID})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("assignments cleared",
		zap.Int64("user_id", userID),
		zap.Int64("guild_id", guildID),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}
