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

func TestCreateTaskEvent(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	owner := models.Owner{UserID: 1, GuildID: 2}
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	ev := testutil.GenerateTaskEvent(owner, "reading", start)
	require.NoError(t, db.CreateTaskEvent(ctx, ev))
	assert.NotZero(t, ev.EventID)

	stored, err := db.GetTaskEvent(ctx, ev.EventID)
	require.NoError(t, err)
	assert.Equal(t, "reading", stored.EventName)
	assert.Equal(t, models.EventTypeTask, stored.EventType)
	assert.True(t, stored.StartTime.Equal(start))
	assert.True(t, stored.IsOpen())
	assert.False(t, stored.DurationSeconds.Valid)

	_, err = db.GetTaskEvent(ctx, ev.EventID+1000)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCloseTaskEvent(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	owner := models.Owner{UserID: 1, GuildID: 2}
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	older := testutil.GenerateTaskEvent(owner, "older", start)
	require.NoError(t, db.CreateTaskEvent(ctx, older))
	newer := testutil.GenerateTaskEvent(owner, "newer", start.Add(time.Minute))
	require.NoError(t, db.CreateTaskEvent(ctx, newer))

	open, err := db.ListOpenTaskEvents(ctx, owner, models.EventTypeTask)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, newer.EventID, open[0].EventID)

	err = db.WithTx(ctx, func(q *database.Queries) error {
		ev, err := q.LockLatestOpenTaskEvent(ctx, owner, models.EventTypeTask)
		if err != nil {
			return err
		}
		assert.Equal(t, newer.EventID, ev.EventID)
		if err := ev.Close(start.Add(90 * time.Second)); err != nil {
			return err
		}
		return q.CloseTaskEvent(ctx, ev)
	})
	require.NoError(t, err)

	closed, err := db.GetTaskEvent(ctx, newer.EventID)
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, int64(30), closed.Seconds())

	// Closing the same row twice matches nothing
	err = db.CloseTaskEvent(ctx, closed)
	assert.ErrorIs(t, err, database.ErrNotFound)

	total, err := db.SumTaskSeconds(ctx, owner, models.EventTypeTask)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)

	ev, err := db.LockLatestOpenTaskEvent(ctx, owner, models.EventTypeTask)
	require.NoError(t, err)
	assert.Equal(t, older.EventID, ev.EventID)
}

func TestLockLatestOpenTaskEvent_NotFound(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	ev, err := db.LockLatestOpenTaskEvent(ctx, models.Owner{UserID: 1, GuildID: 1}, models.EventTypeTask)
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSumTaskSeconds_ScopedToOwner(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	owners := []models.Owner{{UserID: 1, GuildID: 1}, {UserID: 1, GuildID: 2}, {UserID: 2, GuildID: 1}}
	for i, owner := range owners {
		ev := testutil.GenerateTaskEvent(owner, "work", start)
		require.NoError(t, db.CreateTaskEvent(ctx, ev))
		require.NoError(t, ev.Close(start.Add(time.Duration(i+1)*time.Minute)))
		require.NoError(t, db.CloseTaskEvent(ctx, ev))
	}

	// An open interval never counts
	require.NoError(t, db.CreateTaskEvent(ctx, testutil.GenerateTaskEvent(owners[0], "open", start)))

	for i, owner := range owners {
		total, err := db.SumTaskSeconds(ctx, owner, models.EventTypeTask)
		require.NoError(t, err)
		assert.Equal(t, int64((i+1)*60), total)
	}

	total, err := db.SumTaskSeconds(ctx, models.Owner{UserID: 9, GuildID: 9}, models.EventTypeTask)
	require.NoError(t, err)
	assert.Zero(t, total)
}
