package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/parsascontentcorner/studybot/internal/models"
)

const assignmentColumns = `assignment_id, user_id, guild_id, title, description, due_date, is_completed, created_at`

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(
		&a.AssignmentID,
		&a.UserID,
		&a.GuildID,
		&a.Title,
		&a.Description,
		&a.DueDate,
		&a.IsCompleted,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// DATE columns come back as midnight in the session zone; keep the calendar day.
	a.DueDate = dateOnly(a.DueDate)
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// CreateAssignment inserts an incomplete assignment and fills in its ID and
// creation time
func (q *Queries) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (user_id, guild_id, title, description, due_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING assignment_id, is_completed, created_at
	`

	err := q.db.QueryRowContext(ctx, query,
		a.UserID,
		a.GuildID,
		a.Title,
		a.Description,
		a.DueDateString(),
	).Scan(&a.AssignmentID, &a.IsCompleted, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()

	return nil
}

// GetAssignment retrieves an assignment by ID regardless of owner
func (q *Queries) GetAssignment(ctx context.Context, assignmentID int64) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE assignment_id = $1`

	a, err := scanAssignment(q.db.QueryRowContext(ctx, query, assignmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assignment not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return a, nil
}

// ListAssignments returns an owner's assignments ordered by due date, then ID
func (q *Queries) ListAssignments(ctx context.Context, owner models.Owner) ([]*models.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE user_id = $1 AND guild_id = $2
		ORDER BY due_date ASC, assignment_id ASC
	`

	rows, err := q.db.QueryContext(ctx, query, owner.UserID, owner.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := []*models.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// CompleteAssignment marks an assignment completed and returns it. The
// update is keyed by ID alone; completing twice is a no-op.
func (q *Queries) CompleteAssignment(ctx context.Context, assignmentID int64) (*models.Assignment, error) {
	query := `
		UPDATE assignments
		SET is_completed = TRUE
		WHERE assignment_id = $1
		RETURNING ` + assignmentColumns

	a, err := scanAssignment(q.db.QueryRowContext(ctx, query, assignmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assignment not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to complete assignment: %w", err)
	}

	return a, nil
}

// DeleteAssignments removes every assignment of an owner and reports how many
// rows were deleted
func (q *Queries) DeleteAssignments(ctx context.Context, owner models.Owner) (int64, error) {
	query := `DELETE FROM assignments WHERE user_id = $1 AND guild_id = $2`

	result, err := q.db.ExecContext(ctx, query, owner.UserID, owner.GuildID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
