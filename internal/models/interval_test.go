package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval_NewIsOpen(t *testing.T) {
	iv := Interval{StartTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	assert.True(t, iv.IsOpen())
	assert.False(t, iv.DurationSeconds.Valid)
	assert.Equal(t, int64(0), iv.Seconds())
}

func TestInterval_Close(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		end      time.Time
		expected int64
	}{
		{"whole seconds", start.Add(90 * time.Second), 90},
		{"truncates fractional seconds", start.Add(5*time.Second + 999*time.Millisecond), 5},
		{"same instant", start, 0},
		{"sub-second", start.Add(400 * time.Millisecond), 0},
		{"hours", start.Add(2*time.Hour + 3*time.Minute + 4*time.Second), 7384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := Interval{StartTime: start}

			require.NoError(t, iv.Close(tt.end))

			assert.False(t, iv.IsOpen())
			assert.True(t, iv.EndTime.Time.Equal(tt.end))
			assert.Equal(t, tt.expected, iv.Seconds())
		})
	}
}

func TestInterval_CloseBeforeStartIsZero(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	iv := Interval{StartTime: start}

	require.NoError(t, iv.Close(start.Add(-time.Minute)))

	assert.Equal(t, int64(0), iv.Seconds())
	assert.True(t, iv.EndTime.Time.Equal(start))
}

func TestInterval_CloseTwice(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	iv := Interval{StartTime: start}
	require.NoError(t, iv.Close(start.Add(time.Minute)))

	err := iv.Close(start.Add(time.Hour))

	assert.ErrorIs(t, err, ErrIntervalClosed)
	assert.Equal(t, int64(60), iv.Seconds(), "closed interval must not be re-closed")
}

func TestTaskEvent_EmbedsInterval(t *testing.T) {
	ev := &TaskEvent{
		EventID:   1,
		UserID:    10,
		GuildID:   20,
		EventType: EventTypeTask,
		EventName: "Read",
		Interval:  Interval{StartTime: time.Now()},
	}

	assert.True(t, ev.IsOpen())
	assert.Equal(t, Owner{UserID: 10, GuildID: 20}, ev.Owner())
}

func TestVoiceSession_Owner(t *testing.T) {
	vs := &VoiceSession{SessionID: 3, UserID: 10, GuildID: 20, ChannelID: 5}

	assert.Equal(t, Owner{UserID: 10, GuildID: 20}, vs.Owner())
}
