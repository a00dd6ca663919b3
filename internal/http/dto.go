package http

type startTaskRequest struct {
	UserID      int64  `json:"user_id"`
	GuildID     int64  `json:"guild_id"`
	Name        string `json:"name"`
	DiscordName string `json:"discord_name"`
}

type startTaskResponse struct {
	OK      bool  `json:"ok"`
	EventID int64 `json:"event_id"`
}

type ownerRequest struct {
	UserID  int64 `json:"user_id"`
	GuildID int64 `json:"guild_id"`
}

type stopTaskResponse struct {
	Found     bool   `json:"found"`
	Seconds   int64  `json:"seconds"`
	EventName string `json:"event_name"`
}

type statsResponse struct {
	TotalTaskSeconds  int64  `json:"total_task_seconds"`
	TotalVoiceSeconds int64  `json:"total_voice_seconds"`
	TotalTaskTime     string `json:"total_task_time"`
	TotalVoiceTime    string `json:"total_voice_time"`
}

type voiceRequest struct {
	UserID      int64  `json:"user_id"`
	GuildID     int64  `json:"guild_id"`
	ChannelID   int64  `json:"channel_id"`
	DiscordName string `json:"discord_name"`
}

type voiceJoinResponse struct {
	OK        bool  `json:"ok"`
	SessionID int64 `json:"session_id"`
}

type voiceLeaveResponse struct {
	Found           bool  `json:"found"`
	DurationSeconds int64 `json:"duration_seconds"`
}

type addAssignmentRequest struct {
	UserID      int64  `json:"user_id"`
	GuildID     int64  `json:"guild_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	DiscordName string `json:"discord_name"`
}

type addAssignmentResponse struct {
	OK           bool   `json:"ok"`
	AssignmentID int64  `json:"assignment_id"`
	Title        string `json:"title"`
	DueDate      string `json:"due_date"`
}

type assignmentItem struct {
	AssignmentID int64  `json:"assignment_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	DueDate      string `json:"due_date"`
	IsCompleted  bool   `json:"is_completed"`
}

type listAssignmentsResponse struct {
	Assignments []assignmentItem `json:"assignments"`
}

type completeAssignmentRequest struct {
	AssignmentID int64 `json:"assignment_id"`
}

type completeAssignmentResponse struct {
	OK           bool   `json:"ok"`
	AssignmentID int64  `json:"assignment_id"`
	Title        string `json:"title"`
}

type clearAssignmentsResponse struct {
	OK      bool  `json:"ok"`
	Deleted int64 `json:"deleted"`
}

type leaderboardRequest struct {
	GuildID int64 `json:"guild_id"`
	Limit   int   `json:"limit"`
}

type leaderboardItem struct {
	Rank         int    `json:"rank"`
	UserID       int64  `json:"user_id"`
	DiscordName  string `json:"discord_name"`
	TotalSeconds int64  `json:"total_seconds"`
	TotalTime    string `json:"total_time"`
}

type leaderboardResponse struct {
	Leaderboard []leaderboardItem `json:"leaderboard"`
}

type errorResponse struct {
	Error string `json:"error"`
}
