package testutil

import (
	"time"

	"github.com/parsascontentcorner/studybot/internal/config"
	"github.com/parsascontentcorner/studybot/internal/models"
)

// Snowflake-sized IDs so tests exercise the full int64 range the platform uses
const (
	TestGuildID        int64 = 1100000000000000001
	TestOtherGuildID   int64 = 1100000000000000002
	TestUserID         int64 = 1200000000000000001
	TestOtherUserID    int64 = 1200000000000000002
	TestVoiceChannelID int64 = 1300000000000000001
)

// ClockStart is a fixed instant tests set their mock clocks to
var ClockStart = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// GenerateTaskEvent creates an open task interval for the owner.
func GenerateTaskEvent(owner models.Owner, name string, start time.Time) *models.TaskEvent {
	return &models.TaskEvent{
		UserID:    owner.UserID,
		GuildID:   owner.GuildID,
		EventType: models.EventTypeTask,
		EventName: name,
		Interval:  models.Interval{StartTime: start},
	}
}

// GenerateVoiceSession creates an open voice session for the owner.
func GenerateVoiceSession(owner models.Owner, channelID int64, start time.Time) *models.VoiceSession {
	return &models.VoiceSession{
		UserID:    owner.UserID,
		GuildID:   owner.GuildID,
		ChannelID: channelID,
		Interval:  models.Interval{StartTime: start},
	}
}

// GenerateAssignment creates an incomplete assignment. due must be YYYY-MM-DD;
// an invalid date panics since fixtures are fixed at compile time.
func GenerateAssignment(owner models.Owner, title, due string) *models.Assignment {
	date, err := models.ParseDate(due)
	if err != nil {
		panic("invalid fixture due date: " + due)
	}
	return &models.Assignment{
		UserID:  owner.UserID,
		GuildID: owner.GuildID,
		Title:   title,
		DueDate: date,
	}
}

// GenerateTestConfig creates a test configuration with valid values.
// The bot is disabled so servers can start without Discord credentials.
func GenerateTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			HTTPPort: "8080",
			GRPCPort: "50051",
			Host:     "localhost",
			Env:      "test",
		},
		Discord: config.DiscordConfig{
			Enabled:       false,
			AnnounceVoice: false,
		},
		Database: config.DatabaseConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "studybot",
			Password:     "studybot",
			Name:         "studybot_test",
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "console",
		},
		API: config.APIConfig{
			LeaderboardDefaultLimit: 10,
			RateLimitPerSecond:      0,
			RateLimitBurst:          10,
		},
	}
}
