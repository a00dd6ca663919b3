package grpc

import (
	"context"
	"errors"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/parsascontentcorner/studybot/internal/testutil"
	"github.com/parsascontentcorner/studybot/internal/tracker/trackertest"
)

type testStudyServer struct {
	client *StudyServiceClient
	fake   *trackertest.Fake
	clock  *quartz.Mock
}

// setupStudyServer serves the study service over an in-memory listener
func setupStudyServer(t *testing.T) *testStudyServer {
	t.Helper()

	clock := quartz.NewMock(t)
	clock.Set(testutil.ClockStart)
	fake := trackertest.NewFake(clock)

	lis := bufconn.Listen(1024 * 1024)
	srv := NewGRPCServer(NewStudyServer(fake, 2, zap.NewNop()), zap.NewNop())
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})

	return &testStudyServer{
		client: NewStudyServiceClient(conn),
		fake:   fake,
		clock:  clock,
	}
}

func ids(userID, guildID int64) map[string]interface{} {
	return map[string]interface{}{
		"user_id":  strconv.FormatInt(userID, 10),
		"guild_id": strconv.FormatInt(guildID, 10),
	}
}

func with(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func TestStudyService_Tasks(t *testing.T) {
	ts := setupStudyServer(t)
	ctx := context.Background()
	owner := ids(testutil.TestUserID, testutil.TestGuildID)

	resp, err := ts.client.Call(ctx, MethodStopTask, owner)
	require.NoError(t, err)
	assert.False(t, resp.Fields["found"].GetBoolValue())
	assert.Equal(t, "No active task", resp.Fields["event_name"].GetStringValue())

	resp, err = ts.client.Call(ctx, MethodStartTask, with(owner, map[string]interface{}{"name": "Read", "discord_name": "ada"}))
	require.NoError(t, err)
	assert.True(t, resp.Fields["ok"].GetBoolValue())
	assert.NotEmpty(t, resp.Fields["event_id"].GetStringValue())

	ts.clock.Advance(95 * time.Second)

	resp, err = ts.client.Call(ctx, MethodStopTask, owner)
	require.NoError(t, err)
	assert.True(t, resp.Fields["found"].GetBoolValue())
	assert.Equal(t, float64(95), resp.Fields["seconds"].GetNumberValue())
	assert.Equal(t, "Read", resp.Fields["event_name"].GetStringValue())

	resp, err = ts.client.Call(ctx, MethodGetStats, owner)
	require.NoError(t, err)
	assert.Equal(t, float64(95), resp.Fields["total_task_seconds"].GetNumberValue())
	assert.Equal(t, "0h 1m 35s", resp.Fields["total_task_time"].GetStringValue())
}

func TestStudyService_Voice(t *testing.T) {
	ts := setupStudyServer(t)
	ctx := context.Background()
	req := with(ids(testutil.TestUserID, testutil.TestGuildID), map[string]interface{}{
		"channel_id": strconv.FormatInt(testutil.TestVoiceChannelID, 10),
	})

	resp, err := ts.client.Call(ctx, MethodVoiceLeave, req)
	require.NoError(t, err)
	assert.False(t, resp.Fields["found"].GetBoolValue())

	_, err = ts.client.Call(ctx, MethodVoiceJoin, req)
	require.NoError(t, err)
	ts.clock.Advance(2 * time.Minute)

	resp, err = ts.client.Call(ctx, MethodVoiceLeave, req)
	require.NoError(t, err)
	assert.True(t, resp.Fields["found"].GetBoolValue())
	assert.Equal(t, float64(120), resp.Fields["duration_seconds"].GetNumberValue())
}

func TestStudyService_Assignments(t *testing.T) {
	ts := setupStudyServer(t)
	ctx := context.Background()
	owner := ids(testutil.TestUserID, testutil.TestGuildID)

	_, err := ts.client.Call(ctx, MethodAddAssignment, with(owner, map[string]interface{}{
		"title": "Essay", "due_date": "2025-13-40",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.client.Call(ctx, MethodAddAssignment, with(owner, map[string]interface{}{
		"title": "", "due_date": "2025-06-01",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	resp, err := ts.client.Call(ctx, MethodAddAssignment, with(owner, map[string]interface{}{
		"title": "Essay", "description": "Five pages", "due_date": "2025-06-01",
	}))
	require.NoError(t, err)
	id := resp.Fields["assignment_id"].GetStringValue()
	require.NotEmpty(t, id)

	resp, err = ts.client.Call(ctx, MethodListAssignments, owner)
	require.NoError(t, err)
	items := resp.Fields["assignments"].GetListValue().GetValues()
	require.Len(t, items, 1)
	item := items[0].GetStructValue().GetFields()
	assert.Equal(t, id, item["assignment_id"].GetStringValue())
	assert.Equal(t, "2025-06-01", item["due_date"].GetStringValue())
	assert.False(t, item["is_completed"].GetBoolValue())

	resp, err = ts.client.Call(ctx, MethodCompleteAssignment, map[string]interface{}{"assignment_id": id})
	require.NoError(t, err)
	assert.Equal(t, "Essay", resp.Fields["title"].GetStringValue())

	_, err = ts.client.Call(ctx, MethodCompleteAssignment, map[string]interface{}{"assignment_id": "999999"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err = ts.client.Call(ctx, MethodClearAssignments, owner)
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp.Fields["deleted"].GetNumberValue())

	resp, err = ts.client.Call(ctx, MethodListAssignments, owner)
	require.NoError(t, err)
	assert.Empty(t, resp.Fields["assignments"].GetListValue().GetValues())
}

func TestStudyService_RejectedAssignmentWritesNothing(t *testing.T) {
	ts := setupStudyServer(t)
	ctx := context.Background()
	owner := ids(testutil.TestUserID, testutil.TestGuildID)

	_, err := ts.client.Call(ctx, MethodAddAssignment, with(owner, map[string]interface{}{
		"title": " ", "due_date": "2025-06-01", "discord_name": "ada",
	}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "invalid title: must not be empty", status.Convert(err).Message())

	_, ok := ts.fake.Guild(testutil.TestGuildID)
	assert.False(t, ok)
}

func TestStudyService_Leaderboard(t *testing.T) {
	ts := setupStudyServer(t)
	ctx := context.Background()
	guild := testutil.TestGuildID

	for i, secs := range []time.Duration{10, 30, 20} {
		owner := ids(int64(i+1), guild)
		_, err := ts.client.Call(ctx, MethodStartTask, with(owner, map[string]interface{}{"name": "work"}))
		require.NoError(t, err)
		ts.clock.Advance(secs * time.Second)
		_, err = ts.client.Call(ctx, MethodStopTask, owner)
		require.NoError(t, err)
	}

	resp, err := ts.client.Call(ctx, MethodGetLeaderboard, map[string]interface{}{
		"guild_id": strconv.FormatInt(guild, 10),
	})
	require.NoError(t, err)
	rows := resp.Fields["leaderboard"].GetListValue().GetValues()
	require.Len(t, rows, 2, "default limit applies")
	first := rows[0].GetStructValue().GetFields()
	assert.Equal(t, float64(1), first["rank"].GetNumberValue())
	assert.Equal(t, "2", first["user_id"].GetStringValue())
	assert.Equal(t, "User 2", first["discord_name"].GetStringValue())
	assert.Equal(t, float64(30), first["total_seconds"].GetNumberValue())

	resp, err = ts.client.Call(ctx, MethodGetLeaderboard, map[string]interface{}{
		"guild_id": strconv.FormatInt(guild, 10),
		"limit":    5,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Fields["leaderboard"].GetListValue().GetValues(), 3)

	// Limits that do not fit a positive int fall back to the default
	for _, limit := range []float64{0, -3, 0.5, 1e300, math.Inf(1), math.NaN()} {
		resp, err = ts.client.Call(ctx, MethodGetLeaderboard, map[string]interface{}{
			"guild_id": strconv.FormatInt(guild, 10),
			"limit":    limit,
		})
		require.NoError(t, err)
		assert.Len(t, resp.Fields["leaderboard"].GetListValue().GetValues(), 2, "limit %v", limit)
	}
}

func TestStudyService_InvalidIDs(t *testing.T) {
	ts := setupStudyServer(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		fields map[string]interface{}
	}{
		{name: "missing user", fields: map[string]interface{}{"guild_id": "1"}},
		{name: "not a number", fields: map[string]interface{}{"user_id": "abc", "guild_id": "1"}},
		{name: "imprecise number", fields: map[string]interface{}{"user_id": float64(testutil.TestUserID), "guild_id": "1"}},
		{name: "wrong type", fields: map[string]interface{}{"user_id": true, "guild_id": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.client.Call(ctx, MethodStopTask, tt.fields)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}

	// Small numeric IDs are exact and accepted
	resp, err := ts.client.Call(ctx, MethodStopTask, map[string]interface{}{"user_id": 7, "guild_id": 8})
	require.NoError(t, err)
	assert.False(t, resp.Fields["found"].GetBoolValue())
}

func TestStudyService_StorageFailure(t *testing.T) {
	ts := setupStudyServer(t)
	ts.fake.Err = errors.New("connection refused")

	_, err := ts.client.Call(context.Background(), MethodGetStats, ids(1, 2))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	ts := setupStudyServer(t)

	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDKey, "req-42")
	var header metadata.MD
	_, err := ts.client.Call(ctx, MethodGetStats, ids(1, 2), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(RequestIDKey))

	header = nil
	_, err = ts.client.Call(context.Background(), MethodGetStats, ids(1, 2), grpc.Header(&header))
	require.NoError(t, err)
	require.Len(t, header.Get(RequestIDKey), 1)
	assert.NotEmpty(t, header.Get(RequestIDKey)[0])
}
