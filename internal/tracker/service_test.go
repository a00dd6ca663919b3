package tracker

import (
	"context"
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/database"
	"github.com/parsascontentcorner/studybot/internal/testutil"
)

type testEnv struct {
	svc   *Service
	clock *quartz.Mock
	db    *database.DB
}

// setupService starts a database container and returns a service whose
// clock is pinned to testutil.ClockStart.
func setupService(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	clock := quartz.NewMock(t)
	clock.Set(testutil.ClockStart)

	return &testEnv{
		svc:   NewService(db, clock, zap.NewNop()),
		clock: clock,
		db:    db,
	}
}

// reset clears every table. The clock keeps its current time.
func (e *testEnv) reset(t *testing.T) {
	t.Helper()
	require.NoError(t, testutil.TruncateTables(context.Background(), e.db))
}
