// Package tracker implements the study tracking operations: the identity
// registry, task and voice timers, the assignment tracker and the guild
// leaderboard. Every operation runs in its own database transaction.
package tracker

import (
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/studybot/internal/database"
)

// Service is shared by the bot, HTTP and gRPC surfaces. It holds no state of
// its own besides its dependencies and is safe for concurrent use.
type Service struct {
	db     *database.DB
	clock  quartz.Clock
	logger *zap.Logger
}

// NewService creates a tracker service. A nil clock uses the wall clock.
func NewService(db *database.DB, clock quartz.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Service{
		db:     db,
		clock:  clock,
		logger: logger,
	}
}

// now truncates to microseconds, the resolution PostgreSQL stores
func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}
