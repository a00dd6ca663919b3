// Package main is the entry point for the StudyBot server.
// It starts the HTTP and gRPC surfaces over the study tracker and, when
// enabled, the Discord bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/bot"
	"github.com/parsascontentcorner/studybot/internal/config"
	"github.com/parsascontentcorner/studybot/internal/database"
	grpcserver "github.com/parsascontentcorner/studybot/internal/grpc"
	httpserver "github.com/parsascontentcorner/studybot/internal/http"
	"github.com/parsascontentcorner/studybot/internal/ratelimit"
	"github.com/parsascontentcorner/studybot/internal/tracker"
	"github.com/parsascontentcorner/studybot/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		// Sync errors on stdout/stderr are expected and can be safely ignored
		// for non-syncable file descriptors (pipes, terminals, etc.)
		_ = log.Sync()
	}()

	log.Info("starting StudyBot",
		zap.String("environment", cfg.Server.Env),
		zap.String("http_port", cfg.Server.HTTPPort),
		zap.String("grpc_port", cfg.Server.GRPCPort),
		zap.Bool("discord_enabled", cfg.Discord.Enabled),
	)

	// Initialize database connection
	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	clock := quartz.NewReal()
	svc := tracker.NewService(db, clock, log)
	limit := cfg.API.LeaderboardDefaultLimit

	// HTTP clients and bot users are throttled independently
	httpLimiter := ratelimit.NewRateLimiter(cfg.API.RateLimitPerSecond, cfg.API.RateLimitBurst, clock, log)
	botLimiter := ratelimit.NewRateLimiter(cfg.API.RateLimitPerSecond, cfg.API.RateLimitBurst, clock, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pruneLimiters(ctx, clock, log, httpLimiter, botLimiter)

	// Initialize gRPC server
	grpcServer, err := grpcserver.NewServer(grpcserver.NewStudyServer(svc, limit, log), cfg.Server.GRPCPort, log)
	if err != nil {
		log.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Initialize HTTP server
	httpServer := httpserver.NewServer(httpserver.NewHandlers(svc, limit, log), httpLimiter, cfg.Server.HTTPPort, log)

	// Start servers in goroutines
	grpcErrChan := make(chan error, 1)
	httpErrChan := make(chan error, 1)

	go func() {
		if err := grpcServer.Serve(); err != nil {
			grpcErrChan <- err
		}
	}()

	go func() {
		if err := httpServer.Serve(); err != nil {
			httpErrChan <- err
		}
	}()

	// Start the Discord bot
	var discordBot *bot.Bot
	if cfg.Discord.Enabled {
		discordBot, err = bot.New(cfg.Discord, svc, limit, botLimiter, log)
		if err != nil {
			log.Fatal("failed to create discord bot", zap.Error(err))
		}
		if err := discordBot.Open(); err != nil {
			log.Fatal("failed to start discord bot", zap.Error(err))
		}
	}

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-grpcErrChan:
		log.Error("gRPC server error", zap.Error(err))
	case err := <-httpErrChan:
		log.Error("HTTP server error", zap.Error(err))
	case sig := <-sigChan:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	log.Info("shutting down...")
	cancel()

	if discordBot != nil {
		if err := discordBot.Close(); err != nil {
			log.Error("failed to close discord bot", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	grpcServer.GracefulStop()

	log.Info("shut down successfully")
}

// pruneLimiters drops idle rate limit buckets until ctx is done
func pruneLimiters(ctx context.Context, clock quartz.Clock, log *zap.Logger, limiters ...*ratelimit.RateLimiter) {
	ticker := clock.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, l := range limiters {
				removed += l.Prune(30 * time.Minute)
			}
			if removed > 0 {
				log.Debug("pruned idle rate limit buckets", zap.Int("removed", removed))
			}
		}
	}
}
