package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/parsascontentcorner/studybot/internal/format"
	"github.com/parsascontentcorner/studybot/internal/tracker"
)

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Check that the bot is alive",
	},
	{
		Name:        "starttask",
		Description: "Name and start a task",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Task name",
				Required:    true,
			},
		},
	},
	{
		Name:        "stoptask",
		Description: "Stop your current running task",
	},
	{
		Name:        "addassignment",
		Description: "Add a new assignment",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "title",
				Description: "Assignment title",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "due_date",
				Description: "Due date in YYYY-MM-DD format",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "description",
				Description: "Assignment description (optional)",
			},
		},
	},
	{
		Name:        "assignments",
		Description: "List your assignments",
	},
	{
		Name:        "completeassignment",
		Description: "Mark an assignment as completed",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "assignment_id",
				Description: "ID of the assignment",
				Required:    true,
			},
		},
	},
	{
		Name:        "clearassignments",
		Description: "Delete all of your assignments",
	},
	{
		Name:        "mystats",
		Description: "Show your total task and study channel time",
	},
	{
		Name:        "leaderboard",
		Description: "Show the leaderboard for top users by total study time",
	},
}

// commandRequest is a slash command invocation with its IDs already parsed
type commandRequest struct {
	Name        string
	UserID      int64
	GuildID     int64
	DisplayName string
	Options     map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func newCommandRequest(i *discordgo.Interaction) (commandRequest, error) {
	data := i.ApplicationCommandData()

	userID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		return commandRequest{}, err
	}
	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		return commandRequest{}, err
	}

	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}

	return commandRequest{
		Name:        data.Name,
		UserID:      userID,
		GuildID:     guildID,
		DisplayName: memberName(i.Member),
		Options:     opts,
	}, nil
}

func (r commandRequest) str(name string) string {
	if o, ok := r.Options[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

func (r commandRequest) mention() string {
	return fmt.Sprintf("<@%d>", r.UserID)
}

// executeCommand runs a command and returns the reply text. Expected
// outcomes such as a missing task become replies; only unexpected failures
// are returned as errors.
func (b *Bot) executeCommand(ctx context.Context, req commandRequest) (string, error) {
	switch req.Name {
	case "ping":
		return "Pong! " + req.mention(), nil
	case "starttask":
		return b.startTask(ctx, req)
	case "stoptask":
		return b.stopTask(ctx, req)
	case "addassignment":
		return b.addAssignment(ctx, req)
	case "assignments":
		return b.listAssignments(ctx, req)
	case "completeassignment":
		return b.completeAssignment(ctx, req)
	case "clearassignments":
		return b.clearAssignments(ctx, req)
	case "mystats":
		return b.myStats(ctx, req)
	case "leaderboard":
		return b.leaderboard(ctx, req)
	default:
		return "Unknown command.", nil
	}
}

func (b *Bot) startTask(ctx context.Context, req commandRequest) (string, error) {
	name := strings.TrimSpace(req.str("name"))
	if name == "" {
		return "Please give the task a name.", nil
	}

	if _, err := b.tracker.EnsureUser(ctx, req.UserID, req.GuildID, req.DisplayName); err != nil {
		return "", err
	}
	if _, err := b.tracker.StartTask(ctx, req.UserID, req.GuildID, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Started task: **%s**", name), nil
}

func (b *Bot) stopTask(ctx context.Context, req commandRequest) (string, error) {
	ev, err := b.tracker.StopTask(ctx, req.UserID, req.GuildID)
	if errors.Is(err, tracker.ErrNoActiveTask) {
		return "No running task found.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Stopped **%s**, duration: %d seconds.", ev.EventName, ev.Seconds()), nil
}

func (b *Bot) addAssignment(ctx context.Context, req commandRequest) (string, error) {
	title, dueDate := req.str("title"), strings.TrimSpace(req.str("due_date"))

	var ve *tracker.ValidationError
	if _, err := tracker.ValidateAssignment(title, dueDate); errors.As(err, &ve) {
		if ve.Field == "due_date" {
			return "Invalid date format. Use YYYY-MM-DD.", nil
		}
		return fmt.Sprintf("Could not add assignment: %s.", ve.Error()), nil
	}

	if _, err := b.tracker.EnsureUser(ctx, req.UserID, req.GuildID, req.DisplayName); err != nil {
		return "", err
	}

	a, err := b.tracker.AddAssignment(ctx, req.UserID, req.GuildID, title, req.str("description"), dueDate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Assignment added: **%s** (ID: %d)", a.Title, a.AssignmentID), nil
}

func (b *Bot) listAssignments(ctx context.Context, req commandRequest) (string, error) {
	items, err := b.tracker.ListAssignments(ctx, req.UserID, req.GuildID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "You have no assignments yet.", nil
	}

	var sb strings.Builder
	sb.WriteString("**Your Assignments:**\n\n")
	for _, a := range items {
		state := "In Progress..."
		if a.IsCompleted {
			state = "Completed!"
		}
		fmt.Fprintf(&sb, "ID %d -- %s (due %s) %s\n", a.AssignmentID, a.Title, a.DueDateString(), state)
	}
	return sb.String(), nil
}

func (b *Bot) completeAssignment(ctx context.Context, req commandRequest) (string, error) {
	o, ok := req.Options["assignment_id"]
	if !ok || o.Type != discordgo.ApplicationCommandOptionInteger {
		return "Assignment not found.", nil
	}

	a, err := b.tracker.CompleteAssignment(ctx, o.IntValue())
	if errors.Is(err, tracker.ErrAssignmentNotFound) {
		return "Assignment not found.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Assignment **%d -- %s** marked as completed.", a.AssignmentID, a.Title), nil
}

func (b *Bot) clearAssignments(ctx context.Context, req commandRequest) (string, error) {
	if _, err := b.tracker.ClearAssignments(ctx, req.UserID, req.GuildID); err != nil {
		return "", err
	}
	return "All your assignments have been cleared.", nil
}

func (b *Bot) myStats(ctx context.Context, req commandRequest) (string, error) {
	stats, err := b.tracker.UserStats(ctx, req.UserID, req.GuildID)
	if err != nil {
		return "", err
	}
	if stats.TotalSeconds() == 0 {
		return "No stats found.", nil
	}
	return fmt.Sprintf("**Your Total Stats:**\n\nTotal Task Time: %s\n\nTotal Study Channel Time: %s\n",
		format.Seconds(stats.TaskSeconds), format.Seconds(stats.VoiceSeconds)), nil
}

func (b *Bot) leaderboard(ctx context.Context, req commandRequest) (string, error) {
	entries, err := b.tracker.GuildLeaderboard(ctx, req.GuildID)
	if err != nil {
		return "", err
	}
	if b.limit > 0 && len(entries) > b.limit {
		entries = entries[:b.limit]
	}
	if len(entries) == 0 {
		return "No leaderboard data found.", nil
	}

	var sb strings.Builder
	sb.WriteString("**Leaderboard - Top Study Time:**\n\n")
	for idx, e := range entries {
		fmt.Fprintf(&sb, "%d. **%s** -- %s\n", idx+1, e.Name(), format.Seconds(e.TotalSeconds))
	}
	return sb.String(), nil
}
