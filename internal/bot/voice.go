package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/tracker"
)

func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if !b.track() {
		return
	}
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	b.handleVoiceState(ctx, v)
}

// handleVoiceState turns a voice state transition into tracker calls. Only
// channel changes matter; mute and deafen updates keep the same channel and
// are ignored. A move is a leave of the old channel then a join of the new.
func (b *Bot) handleVoiceState(ctx context.Context, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil {
		return
	}

	var before string
	if v.BeforeUpdate != nil {
		before = v.BeforeUpdate.ChannelID
	}
	after := v.ChannelID
	if before == after {
		return
	}

	userID, err := parseSnowflake(v.UserID)
	if err != nil {
		b.logger.Warn("ignoring voice update with invalid user id", zap.String("user_id", v.UserID))
		return
	}
	guildID, err := parseSnowflake(v.GuildID)
	if err != nil {
		b.logger.Warn("ignoring voice update with invalid guild id", zap.String("guild_id", v.GuildID))
		return
	}
	mention := fmt.Sprintf("<@%s>", v.UserID)

	if before != "" {
		b.voiceLeave(ctx, userID, guildID, before, mention)
	}
	if after != "" {
		b.voiceJoin(ctx, userID, guildID, after, memberName(v.Member), mention)
	}
}

func (b *Bot) voiceJoin(ctx context.Context, userID, guildID int64, channel, name, mention string) {
	channelID, err := parseSnowflake(channel)
	if err != nil {
		b.logger.Warn("ignoring voice join with invalid channel id", zap.String("channel_id", channel))
		return
	}

	if _, err := b.tracker.EnsureUser(ctx, userID, guildID, name); err != nil {
		b.logger.Error("failed to register voice user", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if _, err := b.tracker.VoiceJoin(ctx, userID, guildID, channelID); err != nil {
		b.logger.Error("failed to record voice join",
			zap.Int64("user_id", userID),
			zap.Int64("channel_id", channelID),
			zap.Error(err),
		)
		return
	}

	b.announce(channel, mention+" joined the voice channel.")
}

func (b *Bot) voiceLeave(ctx context.Context, userID, guildID int64, channel, mention string) {
	channelID, err := parseSnowflake(channel)
	if err != nil {
		b.logger.Warn("ignoring voice leave with invalid channel id", zap.String("channel_id", channel))
		return
	}

	s, err := b.tracker.VoiceLeave(ctx, userID, guildID, channelID)
	if errors.Is(err, tracker.ErrNoOpenSession) {
		// Joined before the bot was running
		b.logger.Debug("voice leave without open session",
			zap.Int64("user_id", userID),
			zap.Int64("channel_id", channelID),
		)
		return
	}
	if err != nil {
		b.logger.Error("failed to record voice leave",
			zap.Int64("user_id", userID),
			zap.Int64("channel_id", channelID),
			zap.Error(err),
		)
		return
	}

	b.announce(channel, fmt.Sprintf("%s left the voice channel, Duration %d seconds.", mention, s.Seconds()))
}

func (b *Bot) announce(channelID, content string) {
	if !b.cfg.AnnounceVoice {
		return
	}
	if _, err := b.api.ChannelMessageSend(channelID, content); err != nil {
		b.logger.Warn("failed to announce voice change", zap.String("channel_id", channelID), zap.Error(err))
	}
}
