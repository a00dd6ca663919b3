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

func TestVoiceSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	owner := models.Owner{UserID: 5, GuildID: 6}
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	lounge := testutil.GenerateVoiceSession(owner, 100, start)
	require.NoError(t, db.CreateVoiceSession(ctx, lounge))
	library := testutil.GenerateVoiceSession(owner, 200, start.Add(time.Minute))
	require.NoError(t, db.CreateVoiceSession(ctx, library))

	open, err := db.ListOpenVoiceSessions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, library.SessionID, open[0].SessionID)

	// The lookup is scoped to the channel
	s, err := db.LockLatestOpenVoiceSession(ctx, owner, 100)
	require.NoError(t, err)
	assert.Equal(t, lounge.SessionID, s.SessionID)

	require.NoError(t, s.Close(start.Add(45*time.Minute)))
	require.NoError(t, db.CloseVoiceSession(ctx, s))

	stored, err := db.GetVoiceSession(ctx, lounge.SessionID)
	require.NoError(t, err)
	assert.False(t, stored.IsOpen())
	assert.Equal(t, int64(45*60), stored.Seconds())
	assert.True(t, stored.EndTime.Time.Equal(start.Add(45*time.Minute)))

	assert.ErrorIs(t, db.CloseVoiceSession(ctx, stored), database.ErrNotFound)

	_, err = db.LockLatestOpenVoiceSession(ctx, owner, 100)
	assert.ErrorIs(t, err, database.ErrNotFound)

	total, err := db.SumVoiceSeconds(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(45*60), total)
}

func TestGetVoiceSession_NotFound(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	s, err := db.GetVoiceSession(ctx, 1)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, database.ErrNotFound)

	total, err := db.SumVoiceSeconds(ctx, models.Owner{UserID: 1, GuildID: 1})
	require.NoError(t, err)
	assert.Zero(t, total)
}
