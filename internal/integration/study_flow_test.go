package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcserver "github.com/parsascontentcorner/studybot/internal/grpc"
	"github.com/parsascontentcorner/studybot/internal/testutil"
	"github.com/parsascontentcorner/studybot/internal/tracker"
)

// post sends body as JSON and decodes the JSON reply
func (ts *testSuite) post(t *testing.T, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	resp, err := http.Post(ts.httpServer.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (ts *testSuite) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := http.Get(ts.httpServer.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func owner(userID, guildID int64) map[string]interface{} {
	return map[string]interface{}{"user_id": userID, "guild_id": guildID}
}

func grpcOwner(userID, guildID int64) map[string]interface{} {
	return map[string]interface{}{
		"user_id":  strconv.FormatInt(userID, 10),
		"guild_id": strconv.FormatInt(guildID, 10),
	}
}

func TestStudyFlow_TasksAcrossSurfaces(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := setupTestSuite(t)
	ctx := context.Background()
	user, guild := testutil.TestUserID, testutil.TestGuildID

	// Start over HTTP
	code, body := ts.post(t, "/start", map[string]interface{}{
		"user_id": user, "guild_id": guild, "name": "Algebra", "discord_name": "ada",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])

	ts.clock.Advance(42 * time.Minute)

	// Stop over gRPC
	resp, err := ts.study.Call(ctx, grpcserver.MethodStopTask, grpcOwner(user, guild))
	require.NoError(t, err)
	assert.True(t, resp.Fields["found"].GetBoolValue())
	assert.Equal(t, "Algebra", resp.Fields["event_name"].GetStringValue())
	assert.Equal(t, float64(42*60), resp.Fields["seconds"].GetNumberValue())

	// Nothing left to stop on either surface
	code, body = ts.post(t, "/stop", owner(user, guild))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["found"])
	assert.Equal(t, "No active task", body["event_name"])

	code, body = ts.get(t, fmt.Sprintf("/stats/%d/%d", guild, user))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2520), body["total_task_seconds"])
	assert.Equal(t, "0h 42m 0s", body["total_task_time"])

	// Stats are per guild
	code, body = ts.get(t, fmt.Sprintf("/stats/%d/%d", testutil.TestOtherGuildID, user))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["total_task_seconds"])
}

func TestStudyFlow_VoiceSessions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := setupTestSuite(t)
	user, guild, channel := testutil.TestUserID, testutil.TestGuildID, testutil.TestVoiceChannelID
	req := map[string]interface{}{"user_id": user, "guild_id": guild, "channel_id": channel, "discord_name": "ada"}

	code, body := ts.post(t, "/voice/leave", req)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["found"])

	code, _ = ts.post(t, "/voice/join", req)
	require.Equal(t, http.StatusOK, code)
	ts.clock.Advance(25 * time.Minute)

	code, body = ts.post(t, "/voice/leave", req)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, float64(1500), body["duration_seconds"])

	stats, err := ts.tracker.UserStats(context.Background(), user, guild)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), stats.VoiceSeconds)
	assert.Equal(t, int64(0), stats.TaskSeconds)
}

func TestStudyFlow_Assignments(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := setupTestSuite(t)
	ctx := context.Background()
	user, guild := testutil.TestUserID, testutil.TestGuildID

	code, body := ts.post(t, "/assignments/add", map[string]interface{}{
		"user_id": user, "guild_id": guild, "title": "Essay", "due_date": "2025-02-30",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid date format. Use YYYY-MM-DD.", body["error"])

	code, body = ts.post(t, "/assignments/add", map[string]interface{}{
		"user_id": user, "guild_id": guild, "title": "Essay", "due_date": "2025-06-01", "description": "Five pages",
	})
	require.Equal(t, http.StatusOK, code)
	essayID := int64(body["assignment_id"].(float64))

	_, err := ts.study.Call(ctx, grpcserver.MethodAddAssignment, map[string]interface{}{
		"user_id":  strconv.FormatInt(user, 10),
		"guild_id": strconv.FormatInt(guild, 10),
		"title":    "Lab report",
		"due_date": "2025-05-20",
	})
	require.NoError(t, err)

	// Ordered by due date regardless of which surface added them
	code, body = ts.post(t, "/assignments/list", owner(user, guild))
	require.Equal(t, http.StatusOK, code)
	items := body["assignments"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "Lab report", items[0].(map[string]interface{})["title"])
	assert.Equal(t, "Essay", items[1].(map[string]interface{})["title"])

	resp, err := ts.study.Call(ctx, grpcserver.MethodCompleteAssignment, map[string]interface{}{
		"assignment_id": strconv.FormatInt(essayID, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, "Essay", resp.Fields["title"].GetStringValue())

	_, err = ts.study.Call(ctx, grpcserver.MethodCompleteAssignment, map[string]interface{}{"assignment_id": "987654"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	list, err := ts.tracker.ListAssignments(ctx, user, guild)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[1].IsCompleted)
	assert.False(t, list[0].IsCompleted)

	// Clearing is scoped to the owner
	_, err = ts.tracker.AddAssignment(ctx, testutil.TestOtherUserID, guild, "Other", "", "2025-06-02")
	require.NoError(t, err)

	code, body = ts.post(t, "/assignments/clear", owner(user, guild))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["deleted"])

	other, err := ts.tracker.ListAssignments(ctx, testutil.TestOtherUserID, guild)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestStudyFlow_Leaderboard(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := setupTestSuite(t)
	ctx := context.Background()
	guild := testutil.TestGuildID

	_, err := ts.tracker.EnsureUser(ctx, 1, guild, "alice")
	require.NoError(t, err)
	_, err = ts.tracker.EnsureUser(ctx, 2, guild, "bob")
	require.NoError(t, err)
	_, err = ts.tracker.EnsureUser(ctx, 3, testutil.TestOtherGuildID, "carol")
	require.NoError(t, err)

	// alice: 10 minutes of task time; bob: 20 minutes in voice
	_, err = ts.tracker.StartTask(ctx, 1, guild, "reading")
	require.NoError(t, err)
	_, err = ts.tracker.VoiceJoin(ctx, 2, guild, testutil.TestVoiceChannelID)
	require.NoError(t, err)
	ts.clock.Advance(10 * time.Minute)
	_, err = ts.tracker.StopTask(ctx, 1, guild)
	require.NoError(t, err)
	ts.clock.Advance(10 * time.Minute)
	_, err = ts.tracker.VoiceLeave(ctx, 2, guild, testutil.TestVoiceChannelID)
	require.NoError(t, err)

	code, body := ts.post(t, "/leaderboard", map[string]interface{}{"guild_id": guild})
	require.Equal(t, http.StatusOK, code)
	rows := body["leaderboard"].([]interface{})
	require.Len(t, rows, 2, "other guilds are excluded")

	first := rows[0].(map[string]interface{})
	assert.Equal(t, "bob", first["discord_name"])
	assert.Equal(t, float64(1200), first["total_seconds"])
	second := rows[1].(map[string]interface{})
	assert.Equal(t, "alice", second["discord_name"])
	assert.Equal(t, "0h 10m 0s", second["total_time"])

	resp, err := ts.study.Call(ctx, grpcserver.MethodGetLeaderboard, map[string]interface{}{
		"guild_id": strconv.FormatInt(guild, 10),
		"limit":    1,
	})
	require.NoError(t, err)
	require.Len(t, resp.Fields["leaderboard"].GetListValue().GetValues(), 1)
}

func TestStudyFlow_ConcurrentStopClosesOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := setupTestSuite(t)
	ctx := context.Background()
	user, guild := testutil.TestUserID, testutil.TestGuildID

	_, err := ts.tracker.StartTask(ctx, user, guild, "focus")
	require.NoError(t, err)
	ts.clock.Advance(time.Minute)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		stopped  int
		notFound int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.tracker.StopTask(ctx, user, guild)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stopped++
			case errors.Is(err, tracker.ErrNoActiveTask):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, stopped)
	assert.Equal(t, workers-1, notFound)

	stats, err := ts.tracker.UserStats(ctx, user, guild)
	require.NoError(t, err)
	assert.Equal(t, int64(60), stats.TaskSeconds)
}

func TestStudyFlow_HealthAndDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := setupTestSuite(t)

	resp, err := http.Get(ts.httpServer.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ts.db.Health(context.Background()))
}
