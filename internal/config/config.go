// Package config provides application configuration management using environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Discord  DiscordConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	API      APIConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPPort string
	GRPCPort string
	Host     string
	Env      string
}

// DiscordConfig holds the bot connection settings
type DiscordConfig struct {
	Enabled       bool
	BotToken      string
	ApplicationID string
	// AnnounceVoice posts join/leave notices into the voice channel's chat.
	AnnounceVoice bool
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// APIConfig holds request-surface defaults
type APIConfig struct {
	LeaderboardDefaultLimit int
	// RateLimitPerSecond is the sustained rate allowed per caller on the
	// HTTP API and per user on bot commands. Zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load loads configuration from environment variables
// It optionally loads from a .env file if it exists
func Load() (*Config, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server = ServerConfig{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "50051"),
		Host:     getEnv("SERVER_HOST", "localhost"),
		Env:      getEnv("ENVIRONMENT", "development"),
	}

	botEnabled, err := getEnvBool("DISCORD_BOT_ENABLED", true)
	if err != nil {
		return nil, err
	}
	announceVoice, err := getEnvBool("DISCORD_ANNOUNCE_VOICE", true)
	if err != nil {
		return nil, err
	}

	cfg.Discord = DiscordConfig{
		Enabled:       botEnabled,
		BotToken:      getEnv("DISCORD_BOT_TOKEN", ""),
		ApplicationID: getEnv("DISCORD_APPLICATION_ID", ""),
		AnnounceVoice: announceVoice,
	}

	maxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))

	cfg.Database = DatabaseConfig{
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         getEnv("DB_PORT", "5432"),
		User:         getEnv("DB_USER", "studybot"),
		Password:     getEnv("DB_PASSWORD", ""),
		Name:         getEnv("DB_NAME", "studybot_db"),
		SSLMode:      getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns: maxOpenConns,
		MaxIdleConns: maxIdleConns,
	}

	cfg.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	leaderboardLimit, err := strconv.Atoi(getEnv("LEADERBOARD_DEFAULT_LIMIT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_DEFAULT_LIMIT: %w", err)
	}
	rateLimit, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SECOND: %w", err)
	}
	rateBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	cfg.API = APIConfig{
		LeaderboardDefaultLimit: leaderboardLimit,
		RateLimitPerSecond:      rateLimit,
		RateLimitBurst:          rateBurst,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Discord.Enabled {
		if c.Discord.BotToken == "" {
			return fmt.Errorf("DISCORD_BOT_TOKEN is required when the bot is enabled")
		}
		if c.Discord.ApplicationID == "" {
			return fmt.Errorf("DISCORD_APPLICATION_ID is required when the bot is enabled")
		}
	}

	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	if c.API.LeaderboardDefaultLimit <= 0 {
		return fmt.Errorf("LEADERBOARD_DEFAULT_LIMIT must be positive")
	}
	if c.API.RateLimitPerSecond < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must not be negative")
	}
	if c.API.RateLimitPerSecond > 0 && c.API.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
