package grpc

import (
	"context"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/parsascontentcorner/studybot/internal/format"
	"github.com/parsascontentcorner/studybot/internal/models"
	"github.com/parsascontentcorner/studybot/internal/tracker"
)

// Tracker is the subset of tracker.Service the study service calls
type Tracker interface {
	EnsureUser(ctx context.Context, userID, guildID int64, displayName string) (*models.User, error)
	StartTask(ctx context.Context, userID, guildID int64, name string) (*models.TaskEvent, error)
	StopTask(ctx context.Context, userID, guildID int64) (*models.TaskEvent, error)
	UserStats(ctx context.Context, userID, guildID int64) (tracker.Stats, error)
	VoiceJoin(ctx context.Context, userID, guildID, channelID int64) (*models.VoiceSession, error)
	VoiceLeave(ctx context.Context, userID, guildID, channelID int64) (*models.VoiceSession, error)
	AddAssignment(ctx context.Context, userID, guildID int64, title, description, dueDate string) (*models.Assignment, error)
	ListAssignments(ctx context.Context, userID, guildID int64) ([]*models.Assignment, error)
	CompleteAssignment(ctx context.Context, assignmentID int64) (*models.Assignment, error)
	ClearAssignments(ctx context.Context, userID, guildID int64) (int64, error)
	GuildLeaderboard(ctx context.Context, guildID int64) ([]models.LeaderboardEntry, error)
}

// StudyServer implements StudyServiceServer on top of the tracker
type StudyServer struct {
	tracker          Tracker
	leaderboardLimit int
	logger           *zap.Logger
}

// NewStudyServer creates a new study service server
func NewStudyServer(t Tracker, leaderboardLimit int, logger *zap.Logger) *StudyServer {
	return &StudyServer{
		tracker:          t,
		leaderboardLimit: leaderboardLimit,
		logger:           logger,
	}
}

var _ StudyServiceServer = (*StudyServer)(nil)

// StartTask registers the user and opens a task interval
func (s *StudyServer) StartTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.tracker.EnsureUser(ctx, userID, guildID, stringField(req, "discord_name")); err != nil {
		return nil, s.toStatus("failed to ensure user", err)
	}

	ev, err := s.tracker.StartTask(ctx, userID, guildID, stringField(req, "name"))
	if err != nil {
		return nil, s.toStatus("failed to start task", err)
	}

	return s.respond(map[string]interface{}{
		"ok":       true,
		"event_id": idString(ev.EventID),
	})
}

// StopTask closes the newest open task. found is false when none was open.
func (s *StudyServer) StopTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}

	ev, err := s.tracker.StopTask(ctx, userID, guildID)
	if errors.Is(err, tracker.ErrNoActiveTask) {
		return s.respond(map[string]interface{}{
			"found":      false,
			"seconds":    0,
			"event_name": "No active task",
		})
	}
	if err != nil {
		return nil, s.toStatus("failed to stop task", err)
	}

	return s.respond(map[string]interface{}{
		"found":      true,
		"seconds":    ev.Seconds(),
		"event_name": ev.EventName,
	})
}

// GetStats returns a user's task and voice totals
func (s *StudyServer) GetStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}

	stats, err := s.tracker.UserStats(ctx, userID, guildID)
	if err != nil {
		return nil, s.toStatus("failed to get stats", err)
	}

	return s.respond(map[string]interface{}{
		"total_task_seconds":  stats.TaskSeconds,
		"total_voice_seconds": stats.VoiceSeconds,
		"total_task_time":     format.Seconds(stats.TaskSeconds),
		"total_voice_time":    format.Seconds(stats.VoiceSeconds),
	})
}

// VoiceJoin registers the user and opens a voice session
func (s *StudyServer) VoiceJoin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}
	channelID, err := int64Field(req, "channel_id")
	if err != nil {
		return nil, err
	}

	if _, err := s.tracker.EnsureUser(ctx, userID, guildID, stringField(req, "discord_name")); err != nil {
		return nil, s.toStatus("failed to ensure user", err)
	}

	session, err := s.tracker.VoiceJoin(ctx, userID, guildID, channelID)
	if err != nil {
		return nil, s.toStatus("failed to join voice", err)
	}

	return s.respond(map[string]interface{}{
		"ok":         true,
		"session_id": idString(session.SessionID),
	})
}

// VoiceLeave closes the newest open session in the channel
func (s *StudyServer) VoiceLeave(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}
	channelID, err := int64Field(req, "channel_id")
	if err != nil {
		return nil, err
	}

	if _, err := s.tracker.EnsureUser(ctx, userID, guildID, stringField(req, "discord_name")); err != nil {
		return nil, s.toStatus("failed to ensure user", err)
	}

	session, err := s.tracker.VoiceLeave(ctx, userID, guildID, channelID)
	if errors.Is(err, tracker.ErrNoOpenSession) {
		return s.respond(map[string]interface{}{"found": false, "duration_seconds": 0})
	}
	if err != nil {
		return nil, s.toStatus("failed to leave voice", err)
	}

	return s.respond(map[string]interface{}{"found": true, "duration_seconds": session.Seconds()})
}

// AddAssignment validates and stores an assignment
func (s *StudyServer) AddAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}

	title, dueDate := stringField(req, "title"), stringField(req, "due_date")
	if _, err := tracker.ValidateAssignment(title, dueDate); err != nil {
		var ve *tracker.ValidationError
		if errors.As(err, &ve) && ve.Field == "due_date" {
			return nil, status.Error(codes.InvalidArgument, "Invalid date format. Use YYYY-MM-DD.")
		}
		return nil, s.toStatus("invalid assignment", err)
	}

	if _, err := s.tracker.EnsureUser(ctx, userID, guildID, stringField(req, "discord_name")); err != nil {
		return nil, s.toStatus("failed to ensure user", err)
	}

	a, err := s.tracker.AddAssignment(ctx, userID, guildID, title, stringField(req, "description"), dueDate)
	if err != nil {
		return nil, s.toStatus("failed to add assignment", err)
	}

	return s.respond(map[string]interface{}{
		"ok":            true,
		"assignment_id": idString(a.AssignmentID),
		"title":         a.Title,
		"due_date":      a.DueDateString(),
	})
}

// ListAssignments returns the owner's assignments by due date
func (s *StudyServer) ListAssignments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}

	list, err := s.tracker.ListAssignments(ctx, userID, guildID)
	if err != nil {
		return nil, s.toStatus("failed to list assignments", err)
	}

	items := make([]interface{}, 0, len(list))
	for _, a := range list {
		items = append(items, map[string]interface{}{
			"assignment_id": idString(a.AssignmentID),
			"title":         a.Title,
			"description":   a.Description,
			"due_date":      a.DueDateString(),
			"is_completed":  a.IsCompleted,
		})
	}

	return s.respond(map[string]interface{}{"assignments": items})
}

// CompleteAssignment marks an assignment completed
func (s *StudyServer) CompleteAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	assignmentID, err := int64Field(req, "assignment_id")
	if err != nil {
		return nil, err
	}

	a, err := s.tracker.CompleteAssignment(ctx, assignmentID)
	if err != nil {
		return nil, s.toStatus("failed to complete assignment", err)
	}

	return s.respond(map[string]interface{}{
		"ok":            true,
		"assignment_id": idString(a.AssignmentID),
		"title":         a.Title,
	})
}

// ClearAssignments deletes all of the owner's assignments
func (s *StudyServer) ClearAssignments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, guildID, err := ownerFields(req)
	if err != nil {
		return nil, err
	}

	deleted, err := s.tracker.ClearAssignments(ctx, userID, guildID)
	if err != nil {
		return nil, s.toStatus("failed to clear assignments", err)
	}

	return s.respond(map[string]interface{}{"ok": true, "deleted": deleted})
}

// GetLeaderboard returns the top of the guild leaderboard
func (s *StudyServer) GetLeaderboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	guildID, err := int64Field(req, "guild_id")
	if err != nil {
		return nil, err
	}

	limit := s.leaderboardLimit
	if v, ok := req.GetFields()["limit"]; ok {
		if f := v.GetNumberValue(); f >= 1 && f <= math.MaxInt32 {
			limit = int(f)
		}
	}

	entries, err := s.tracker.GuildLeaderboard(ctx, guildID)
	if err != nil {
		return nil, s.toStatus("failed to build leaderboard", err)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]interface{}, 0, len(entries))
	for i, e := range entries {
		items = append(items, map[string]interface{}{
			"rank":          i + 1,
			"user_id":       idString(e.UserID),
			"discord_name":  e.Name(),
			"total_seconds": e.TotalSeconds,
			"total_time":    format.Seconds(e.TotalSeconds),
		})
	}

	return s.respond(map[string]interface{}{"leaderboard": items})
}

func (s *StudyServer) respond(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		s.logger.Error("failed to build response", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// toStatus maps tracker errors onto gRPC status codes
func (s *StudyServer) toStatus(msg string, err error) error {
	var ve *tracker.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case errors.Is(err, tracker.ErrAssignmentNotFound):
		return status.Error(codes.NotFound, "Assignment not found.")
	case errors.Is(err, tracker.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(msg, zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func ownerFields(req *structpb.Struct) (int64, int64, error) {
	userID, err := int64Field(req, "user_id")
	if err != nil {
		return 0, 0, err
	}
	guildID, err := int64Field(req, "guild_id")
	if err != nil {
		return 0, 0, err
	}
	return userID, guildID, nil
}

// int64Field reads a decimal-string ID. Numbers are accepted only while they
// are exact in a float64.
func int64Field(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing %s", name)
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		id, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
		}
		return id, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s: send large IDs as strings", name)
		}
		return int64(n), nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
	}
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
