package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/format"
	"github.com/parsascontentcorner/studybot/internal/models"
	"github.com/parsascontentcorner/studybot/internal/tracker"
)

// Tracker is the subset of tracker.Service the API calls
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

// Handlers contains all HTTP handlers
type Handlers struct {
	tracker          Tracker
	leaderboardLimit int
	logger           *zap.Logger
}

// NewHandlers creates a new handlers instance. leaderboardLimit applies when
// a leaderboard request does not name a positive limit.
func NewHandlers(t Tracker, leaderboardLimit int, logger *zap.Logger) *Handlers {
	return &Handlers{
		tracker:          t,
		leaderboardLimit: leaderboardLimit,
		logger:           logger,
	}
}

// HealthHandler handles health check requests
func (h *Handlers) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("failed to write health check response", zap.Error(err))
	}
}

// StartTaskHandler registers the user and opens a task interval
func (h *Handlers) StartTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req startTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.tracker.EnsureUser(r.Context(), req.UserID, req.GuildID, req.DiscordName); err != nil {
		h.fail(w, "failed to ensure user", err)
		return
	}

	ev, err := h.tracker.StartTask(r.Context(), req.UserID, req.GuildID, req.Name)
	if err != nil {
		h.fail(w, "failed to start task", err)
		return
	}

	h.writeJSON(w, http.StatusOK, startTaskResponse{OK: true, EventID: ev.EventID})
}

// StopTaskHandler closes the newest open task. Having nothing to stop is a
// normal outcome reported with found=false.
func (h *Handlers) StopTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if !h.decode(w, r, &req) {
		return
	}

	ev, err := h.tracker.StopTask(r.Context(), req.UserID, req.GuildID)
	if errors.Is(err, tracker.ErrNoActiveTask) {
		h.writeJSON(w, http.StatusOK, stopTaskResponse{Found: false, Seconds: 0, EventName: "No active task"})
		return
	}
	if err != nil {
		h.fail(w, "failed to stop task", err)
		return
	}

	h.writeJSON(w, http.StatusOK, stopTaskResponse{Found: true, Seconds: ev.Seconds(), EventName: ev.EventName})
}

// StatsHandler returns a user's task and voice totals
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	guildID, err := strconv.ParseInt(r.PathValue("guild_id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid guild_id"})
		return
	}
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user_id"})
		return
	}

	stats, err := h.tracker.UserStats(r.Context(), userID, guildID)
	if err != nil {
		h.fail(w, "failed to get stats", err)
		return
	}

	h.writeJSON(w, http.StatusOK, statsResponse{
		TotalTaskSeconds:  stats.TaskSeconds,
		TotalVoiceSeconds: stats.VoiceSeconds,
		TotalTaskTime:     format.Seconds(stats.TaskSeconds),
		TotalVoiceTime:    format.Seconds(stats.VoiceSeconds),
	})
}

// VoiceJoinHandler registers the user and opens a voice session
func (h *Handlers) VoiceJoinHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.tracker.EnsureUser(r.Context(), req.UserID, req.GuildID, req.DiscordName); err != nil {
		h.fail(w, "failed to ensure user", err)
		return
	}

	s, err := h.tracker.VoiceJoin(r.Context(), req.UserID, req.GuildID, req.ChannelID)
	if err != nil {
		h.fail(w, "failed to join voice", err)
		return
	}

	h.writeJSON(w, http.StatusOK, voiceJoinResponse{OK: true, SessionID: s.SessionID})
}

// VoiceLeaveHandler closes the newest open session in the channel
func (h *Handlers) VoiceLeaveHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.tracker.EnsureUser(r.Context(), req.UserID, req.GuildID, req.DiscordName); err != nil {
		h.fail(w, "failed to ensure user", err)
		return
	}

	s, err := h.tracker.VoiceLeave(r.Context(), req.UserID, req.GuildID, req.ChannelID)
	if errors.Is(err, tracker.ErrNoOpenSession) {
		h.writeJSON(w, http.StatusOK, voiceLeaveResponse{Found: false, DurationSeconds: 0})
		return
	}
	if err != nil {
		h.fail(w, "failed to leave voice", err)
		return
	}

	h.writeJSON(w, http.StatusOK, voiceLeaveResponse{Found: true, DurationSeconds: s.Seconds()})
}

// AddAssignmentHandler validates and stores an assignment
func (h *Handlers) AddAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	var req addAssignmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Validate before registering anyone
	if _, err := tracker.ValidateAssignment(req.Title, req.DueDate); err != nil {
		if isDueDateError(err) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid date format. Use YYYY-MM-DD."})
			return
		}
		h.fail(w, "invalid assignment", err)
		return
	}

	if _, err := h.tracker.EnsureUser(r.Context(), req.UserID, req.GuildID, req.DiscordName); err != nil {
		h.fail(w, "failed to ensure user", err)
		return
	}

	a, err := h.tracker.AddAssignment(r.Context(), req.UserID, req.GuildID, req.Title, req.Description, req.DueDate)
	if err != nil {
		h.fail(w, "failed to add assignment", err)
		return
	}

	h.writeJSON(w, http.StatusOK, addAssignmentResponse{
		OK:           true,
		AssignmentID: a.AssignmentID,
		Title:        a.Title,
		DueDate:      a.DueDateString(),
	})
}

// ListAssignmentsHandler returns the owner's assignments by due date
func (h *Handlers) ListAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if !h.decode(w, r, &req) {
		return
	}

	list, err := h.tracker.ListAssignments(r.Context(), req.UserID, req.GuildID)
	if err != nil {
		h.fail(w, "failed to list assignments", err)
		return
	}

	items := make([]assignmentItem, 0, len(list))
	for _, a := range list {
		items = append(items, assignmentItem{
			AssignmentID: a.AssignmentID,
			Title:        a.Title,
			Description:  a.Description,
			DueDate:      a.DueDateString(),
			IsCompleted:  a.IsCompleted,
		})
	}

	h.writeJSON(w, http.StatusOK, listAssignmentsResponse{Assignments: items})
}

// CompleteAssignmentHandler marks an assignment completed
func (h *Handlers) CompleteAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	var req completeAssignmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.tracker.CompleteAssignment(r.Context(), req.AssignmentID)
	if err != nil {
		h.fail(w, "failed to complete assignment", err)
		return
	}

	h.writeJSON(w, http.StatusOK, completeAssignmentResponse{OK: true, AssignmentID: a.AssignmentID, Title: a.Title})
}

// ClearAssignmentsHandler deletes all of the owner's assignments
func (h *Handlers) ClearAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if !h.decode(w, r, &req) {
		return
	}

	deleted, err := h.tracker.ClearAssignments(r.Context(), req.UserID, req.GuildID)
	if err != nil {
		h.fail(w, "failed to clear assignments", err)
		return
	}

	h.writeJSON(w, http.StatusOK, clearAssignmentsResponse{OK: true, Deleted: deleted})
}

// LeaderboardHandler returns the top of the guild leaderboard
func (h *Handlers) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	var req leaderboardRequest
	if !h.decode(w, r, &req) {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.leaderboardLimit
	}

	entries, err := h.tracker.GuildLeaderboard(r.Context(), req.GuildID)
	if err != nil {
		h.fail(w, "failed to build leaderboard", err)
		return
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]leaderboardItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, leaderboardItem{
			Rank:         i + 1,
			UserID:       e.UserID,
			DiscordName:  e.Name(),
			TotalSeconds: e.TotalSeconds,
			TotalTime:    format.Seconds(e.TotalSeconds),
		})
	}

	h.writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: items})
}

// decode reads a JSON body into dst and answers 400 when it is malformed
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("malformed request body", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return false
	}
	return true
}

// fail maps a tracker error onto a status code
func (h *Handlers) fail(w http.ResponseWriter, msg string, err error) {
	var ve *tracker.ValidationError
	switch {
	case errors.As(err, &ve):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error()})
	case errors.Is(err, tracker.ErrAssignmentNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "Assignment not found."})
	case errors.Is(err, tracker.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func isDueDateError(err error) bool {
	var ve *tracker.ValidationError
	return errors.As(err, &ve) && ve.Field == "due_date"
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
