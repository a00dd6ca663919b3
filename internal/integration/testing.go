package integration

import (
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/parsascontentcorner/studybot/internal/database"
	grpcserver "github.com/parsascontentcorner/studybot/internal/grpc"
	httpapi "github.com/parsascontentcorner/studybot/internal/http"
	"github.com/parsascontentcorner/studybot/internal/ratelimit"
	"github.com/parsascontentcorner/studybot/internal/testutil"
	"github.com/parsascontentcorner/studybot/internal/tracker"
)

// testSuite is the full stack: Postgres, the tracker, and both request
// surfaces serving the same store
type testSuite struct {
	db         *database.DB
	clock      *quartz.Mock
	tracker    *tracker.Service
	httpServer *httptest.Server
	grpcServer *grpc.Server
	study      *grpcserver.StudyServiceClient
}

func setupTestSuite(t *testing.T) *testSuite {
	t.Helper()

	ctx := context.Background()
	db, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)

	cfg := testutil.GenerateTestConfig()
	require.NoError(t, cfg.Validate())
	limit := cfg.API.LeaderboardDefaultLimit

	logger := zap.NewNop()
	clock := quartz.NewMock(t)
	clock.Set(testutil.ClockStart)
	svc := tracker.NewService(db, clock, logger)

	// Rate limiting is disabled in the test config
	limiter := ratelimit.NewRateLimiter(cfg.API.RateLimitPerSecond, cfg.API.RateLimitBurst, clock, logger)
	httpSrv := httptest.NewServer(httpapi.NewRouter(httpapi.NewHandlers(svc, limit, logger), limiter, logger))

	grpcSrv := grpcserver.NewGRPCServer(grpcserver.NewStudyServer(svc, limit, logger), logger)
	listener, err := StartTestServer(grpcSrv)
	require.NoError(t, err)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		httpSrv.Close()
		grpcSrv.Stop()
		cleanup()
	})

	return &testSuite{
		db:         db,
		clock:      clock,
		tracker:    svc,
		httpServer: httpSrv,
		grpcServer: grpcSrv,
		study:      grpcserver.NewStudyServiceClient(conn),
	}
}

// StartTestServer starts a gRPC server on a random port for testing.
// Returns the listener so the test can get the address.
func StartTestServer(srv *grpc.Server) (net.Listener, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		// Serve returns once the server is stopped
		_ = srv.Serve(listener)
	}()

	return listener, nil
}
