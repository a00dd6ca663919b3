// Package bot connects the study tracker to Discord: slash commands for
// tasks, assignments and stats, and voice-state updates for channel time.
package bot

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/config"
	"github.com/parsascontentcorner/studybot/internal/models"
	"github.com/parsascontentcorner/studybot/internal/ratelimit"
	"github.com/parsascontentcorner/studybot/internal/tracker"
)

// handlerTimeout bounds the tracker work done for a single gateway event
const handlerTimeout = 10 * time.Second

// Tracker is the subset of tracker.Service the bot calls
type Tracker interface {
	EnsureGuild(ctx context.Context, guildID int64, name string) (*models.Guild, error)
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

// Session is the part of the Discord REST API the handlers use.
// *discordgo.Session satisfies it.
type Session interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Bot owns the gateway connection and dispatches events to the tracker
type Bot struct {
	gateway *discordgo.Session
	api     Session
	tracker Tracker
	cfg     config.DiscordConfig
	limit   int
	limiter *ratelimit.RateLimiter
	logger  *zap.Logger

	mu         sync.Mutex
	wg         sync.WaitGroup
	isShutdown bool
}

// New creates a bot for the configured token. It does not connect until Open.
// limiter throttles commands per user and may be nil.
func New(cfg config.DiscordConfig, t Tracker, leaderboardLimit int, limiter *ratelimit.RateLimiter, logger *zap.Logger) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b := newBot(session, cfg, t, leaderboardLimit, logger)
	b.gateway = session
	b.limiter = limiter

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onVoiceStateUpdate)

	return b, nil
}

func newBot(api Session, cfg config.DiscordConfig, t Tracker, leaderboardLimit int, logger *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		tracker: t,
		cfg:     cfg,
		limit:   leaderboardLimit,
		logger:  logger,
	}
}

// Open connects to the gateway. Commands are registered once Ready arrives.
func (b *Bot) Open() error {
	if err := b.gateway.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.logger.Info("discord session opened")
	return nil
}

// Close waits for in-flight handlers and disconnects. It is safe to call
// more than once.
func (b *Bot) Close() error {
	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		return nil
	}
	b.isShutdown = true
	b.mu.Unlock()

	b.wg.Wait()

	if b.gateway == nil {
		return nil
	}
	if err := b.gateway.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	b.logger.Info("discord session closed")
	return nil
}

// track marks a handler as in flight; it reports false once Close has begun
func (b *Bot) track() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isShutdown {
		return false
	}
	b.wg.Add(1)
	return true
}

// registerCommands replaces the application's global command set
func (b *Bot) registerCommands(appID string) error {
	if b.cfg.ApplicationID != "" {
		appID = b.cfg.ApplicationID
	}
	registered, err := b.api.ApplicationCommandBulkOverwrite(appID, "", commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.logger.Info("registered slash commands", zap.Int("count", len(registered)))
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if !b.track() {
		return
	}
	defer b.wg.Done()

	var appID string
	if r.User != nil {
		appID = r.User.ID
		b.logger.Info("discord bot ready",
			zap.String("user", r.User.Username),
			zap.Int("guilds", len(r.Guilds)),
		)
	}

	if err := b.registerCommands(appID); err != nil {
		b.logger.Error("command registration failed", zap.Error(err))
	}
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if !b.track() {
		return
	}
	defer b.wg.Done()

	b.handleGuildCreate(g.Guild)
}

func (b *Bot) handleGuildCreate(g *discordgo.Guild) {
	guildID, err := parseSnowflake(g.ID)
	if err != nil {
		b.logger.Warn("ignoring guild with invalid id", zap.String("guild_id", g.ID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if _, err := b.tracker.EnsureGuild(ctx, guildID, g.Name); err != nil {
		b.logger.Error("failed to register guild", zap.Int64("guild_id", guildID), zap.Error(err))
		return
	}
	b.logger.Debug("guild registered", zap.Int64("guild_id", guildID), zap.String("name", g.Name))
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if !b.track() {
		return
	}
	defer b.wg.Done()

	b.handleInteraction(i.Interaction)
}

// handleInteraction answers one slash command. Panics are logged and turned
// into a generic reply.
func (b *Bot) handleInteraction(i *discordgo.Interaction) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			b.logger.Error("panic in command handler",
				zap.Any("panic", r),
				zap.String("stack", string(buf[:n])),
			)
			b.reply(i, "An internal error occurred.", true)
		}
	}()

	data := i.ApplicationCommandData()

	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		b.reply(i, fmt.Sprintf("The `/%s` command can only be used in a server.", data.Name), true)
		return
	}

	req, err := newCommandRequest(i)
	if err != nil {
		b.logger.Warn("malformed interaction", zap.Error(err))
		b.reply(i, "An internal error occurred.", true)
		return
	}

	if wait, ok := b.limiter.Reserve(i.Member.User.ID); !ok {
		b.reply(i, fmt.Sprintf("You're sending commands too quickly. Try again in %d seconds.", int(wait.Round(time.Second)/time.Second)), true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	content, err := b.executeCommand(ctx, req)
	if err != nil {
		b.logger.Error("command failed",
			zap.String("command", req.Name),
			zap.Int64("user_id", req.UserID),
			zap.Int64("guild_id", req.GuildID),
			zap.Error(err),
		)
		b.reply(i, "Something went wrong, please try again later.", true)
		return
	}

	b.reply(i, content, false)
}

func (b *Bot) reply(i *discordgo.Interaction, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("failed to respond to interaction", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

// memberName is the name shown for a guild member: the nickname when set,
// otherwise the account username
func memberName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		return m.User.Username
	}
	return ""
}

func parseSnowflake(id string) (int64, error) {
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	return v, nil
}
