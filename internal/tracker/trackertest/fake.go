// Package trackertest provides an in-memory stand-in for tracker.Service so
// request surfaces can be tested without a database.
package trackertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/parsascontentcorner/studybot/internal/models"
	"github.com/parsascontentcorner/studybot/internal/tracker"
)

// Fake mirrors the observable behavior of tracker.Service. Set Err to make
// every call fail with that error.
type Fake struct {
	mu     sync.Mutex
	clock  quartz.Clock
	nextID int64

	guilds      map[int64]*models.Guild
	users       map[models.Owner]*models.User
	tasks       []*models.TaskEvent
	sessions    []*models.VoiceSession
	assignments []*models.Assignment

	Err error
}

// NewFake returns an empty Fake reading time from clock
func NewFake(clock quartz.Clock) *Fake {
	return &Fake{
		clock:  clock,
		guilds: make(map[int64]*models.Guild),
		users:  make(map[models.Owner]*models.User),
	}
}

func (f *Fake) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *Fake) now() time.Time {
	return f.clock.Now().UTC()
}

// EnsureGuild implements tracker.Service.EnsureGuild
func (f *Fake) EnsureGuild(_ context.Context, guildID int64, name string) (*models.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ensureGuild(guildID, name), nil
}

// Guild returns the stored guild, if any
func (f *Fake) Guild(guildID int64) (*models.Guild, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, false
	}
	copied := *g
	return &copied, true
}

func (f *Fake) ensureGuild(guildID int64, name string) *models.Guild {
	g, ok := f.guilds[guildID]
	if !ok {
		g = &models.Guild{GuildID: guildID, Name: models.NullableName(name), CreatedAt: f.now()}
		f.guilds[guildID] = g
	}
	copied := *g
	return &copied
}

// EnsureUser implements tracker.Service.EnsureUser
func (f *Fake) EnsureUser(_ context.Context, userID, guildID int64, displayName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	f.ensureGuild(guildID, "")
	key := models.Owner{UserID: userID, GuildID: guildID}
	u, ok := f.users[key]
	if !ok {
		u = &models.User{UserID: userID, GuildID: guildID, CreatedAt: f.now(), UpdatedAt: f.now()}
		f.users[key] = u
	}
	if !u.DisplayName.Valid && displayName != "" {
		u.DisplayName = models.NullableName(displayName)
		u.UpdatedAt = f.now()
	}
	copied := *u
	return &copied, nil
}

// StartTask implements tracker.Service.StartTask
func (f *Fake) StartTask(_ context.Context, userID, guildID int64, name string) (*models.TaskEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	ev := &models.TaskEvent{
		EventID:   f.id(),
		UserID:    userID,
		GuildID:   guildID,
		EventType: models.EventTypeTask,
		EventName: name,
		Interval:  models.Interval{StartTime: f.now()},
	}
	f.tasks = append(f.tasks, ev)
	copied := *ev
	return &copied, nil
}

// StopTask implements tracker.Service.StopTask
func (f *Fake) StopTask(_ context.Context, userID, guildID int64) (*models.TaskEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	var latest *models.TaskEvent
	for _, ev := range f.tasks {
		if ev.UserID != userID || ev.GuildID != guildID || !ev.IsOpen() {
			continue
		}
		if latest == nil || !ev.StartTime.Before(latest.StartTime) {
			latest = ev
		}
	}
	if latest == nil {
		return nil, tracker.ErrNoActiveTask
	}
	if err := latest.Close(f.now()); err != nil {
		return nil, err
	}
	copied := *latest
	return &copied, nil
}

// VoiceJoin implements tracker.Service.VoiceJoin
func (f *Fake) VoiceJoin(_ context.Context, userID, guildID, channelID int64) (*models.VoiceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	s := &models.VoiceSession{
		SessionID: f.id(),
		UserID:    userID,
		GuildID:   guildID,
		ChannelID: channelID,
		Interval:  models.Interval{StartTime: f.now()},
	}
	f.sessions = append(f.sessions, s)
	copied := *s
	return &copied, nil
}

// VoiceLeave implements tracker.Service.VoiceLeave
func (f *Fake) VoiceLeave(_ context.Context, userID, guildID, channelID int64) (*models.VoiceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	var latest *models.VoiceSession
	for _, s := range f.sessions {
		if s.UserID != userID || s.GuildID != guildID || s.ChannelID != channelID || !s.IsOpen() {
			continue
		}
		if latest == nil || !s.StartTime.Before(latest.StartTime) {
			latest = s
		}
	}
	if latest == nil {
		return nil, tracker.ErrNoOpenSession
	}
	if err := latest.Close(f.now()); err != nil {
		return nil, err
	}
	copied := *latest
	return &copied, nil
}

// AddAssignment implements tracker.Service.AddAssignment
func (f *Fake) AddAssignment(_ context.Context, userID, guildID int64, title, description, dueDate string) (*models.Assignment, error) {
	due, err := tracker.ValidateAssignment(title, dueDate)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	a := &models.Assignment{
		AssignmentID: f.id(),
		UserID:       userID,
		GuildID:      guildID,
		Title:        title,
		Description:  description,
		DueDate:      due,
		CreatedAt:    f.now(),
	}
	f.assignments = append(f.assignments, a)
	copied := *a
	return &copied, nil
}

// ListAssignments implements tracker.Service.ListAssignments
func (f *Fake) ListAssignments(_ context.Context, userID, guildID int64) ([]*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	list := []*models.Assignment{}
	for _, a := range f.assignments {
		if a.UserID == userID && a.GuildID == guildID {
			copied := *a
			list = append(list, &copied)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].DueDate.Equal(list[j].DueDate) {
			return list[i].DueDate.Before(list[j].DueDate)
		}
		return list[i].AssignmentID < list[j].AssignmentID
	})
	return list, nil
}

// CompleteAssignment implements tracker.Service.CompleteAssignment
func (f *Fake) CompleteAssignment(_ context.Context, assignmentID int64) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	for _, a := range f.assignments {
		if a.AssignmentID == assignmentID {
			a.IsCompleted = true
			copied := *a
			return &copied, nil
		}
	}
	return nil, tracker.ErrAssignmentNotFound
}

// ClearAssignments implements tracker.Service.ClearAssignments
func (f *Fake) ClearAssignments(_ context.Context, userID, guildID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}

	kept := f.assignments[:0]
	var deleted int64
	for _, a := range f.assignments {
		if a.UserID == userID && a.GuildID == guildID {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	f.assignments = kept
	return deleted, nil
}

// UserStats implements tracker.Service.UserStats
func (f *Fake) UserStats(_ context.Context, userID, guildID int64) (tracker.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return tracker.Stats{}, f.Err
	}
	return f.stats(models.Owner{UserID: userID, GuildID: guildID}), nil
}

func (f *Fake) stats(owner models.Owner) tracker.Stats {
	var s tracker.Stats
	for _, ev := range f.tasks {
		if ev.Owner() == owner {
			s.TaskSeconds += ev.Seconds()
		}
	}
	for _, vs := range f.sessions {
		if vs.Owner() == owner {
			s.VoiceSeconds += vs.Seconds()
		}
	}
	return s
}

// GuildLeaderboard implements tracker.Service.GuildLeaderboard
func (f *Fake) GuildLeaderboard(_ context.Context, guildID int64) ([]models.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	entries := []models.LeaderboardEntry{}
	for owner, u := range f.users {
		if owner.GuildID != guildID {
			continue
		}
		s := f.stats(owner)
		entries = append(entries, models.LeaderboardEntry{
			UserID:       u.UserID,
			DisplayName:  u.DisplayName,
			TaskSeconds:  s.TaskSeconds,
			VoiceSeconds: s.VoiceSeconds,
			TotalSeconds: s.TotalSeconds(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalSeconds != entries[j].TotalSeconds {
			return entries[i].TotalSeconds > entries[j].TotalSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}
