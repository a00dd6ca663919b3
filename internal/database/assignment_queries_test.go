package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsascontentcorner/studybot/internal/database"
	"github.com/parsascontentcorner/studybot/internal/models"
	"github.com/parsascontentcorner/studybot/internal/testutil"
)

func TestCreateAssignment(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	owner := models.Owner{UserID: 1, GuildID: 2}
	a := testutil.GenerateAssignment(owner, "Essay", "2025-06-01")
	a.Description = "Five pages"

	require.NoError(t, db.CreateAssignment(ctx, a))
	assert.NotZero(t, a.AssignmentID)
	assert.False(t, a.IsCompleted)
	testutil.AssertTimeAlmostEqual(t, time.Now(), a.CreatedAt, time.Minute)

	stored, err := db.GetAssignment(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, "Essay", stored.Title)
	assert.Equal(t, "Five pages", stored.Description)
	assert.Equal(t, "2025-06-01", stored.DueDateString())
	assert.Equal(t, owner, stored.Owner())
}

func TestListAssignments_Ordering(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	owner := models.Owner{UserID: 1, GuildID: 2}

	empty, err := db.ListAssignments(ctx, owner)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, a := range []*models.Assignment{
		testutil.GenerateAssignment(owner, "late", "2025-07-01"),
		testutil.GenerateAssignment(owner, "early", "2025-05-01"),
		testutil.GenerateAssignment(owner, "tie", "2025-07-01"),
		testutil.GenerateAssignment(models.Owner{UserID: 1, GuildID: 3}, "other guild", "2025-01-01"),
	} {
		require.NoError(t, db.CreateAssignment(ctx, a))
	}

	list, err := db.ListAssignments(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "early", list[0].Title)
	assert.Equal(t, "late", list[1].Title)
	assert.Equal(t, "tie", list[2].Title)
}

func TestCompleteAssignment(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	a := testutil.GenerateAssignment(models.Owner{UserID: 1, GuildID: 2}, "Lab", "2025-06-01")
	require.NoError(t, db.CreateAssignment(ctx, a))

	done, err := db.CompleteAssignment(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)

	again, err := db.CompleteAssignment(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.True(t, again.IsCompleted)

	_, err = db.CompleteAssignment(ctx, a.AssignmentID+1000)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestDeleteAssignments(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	owner := models.Owner{UserID: 1, GuildID: 2}
	other := models.Owner{UserID: 2, GuildID: 2}
	require.NoError(t, db.CreateAssignment(ctx, testutil.GenerateAssignment(owner, "a", "2025-06-01")))
	require.NoError(t, db.CreateAssignment(ctx, testutil.GenerateAssignment(owner, "b", "2025-06-02")))
	require.NoError(t, db.CreateAssignment(ctx, testutil.GenerateAssignment(other, "c", "2025-06-03")))

	deleted, err := db.DeleteAssignments(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = db.DeleteAssignments(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	remaining, err := db.ListAssignments(ctx, other)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
