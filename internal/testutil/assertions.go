package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/parsascontentcorner/studybot/internal/models"
)

// AssertIntervalClosed checks that an interval was stopped at end with the
// expected whole-second duration.
func AssertIntervalClosed(t *testing.T, iv models.Interval, end time.Time, seconds int64) {
	t.Helper()

	assert.False(t, iv.IsOpen(), "interval should be closed")
	assert.True(t, iv.DurationSeconds.Valid, "duration should be set")
	assert.Equal(t, seconds, iv.DurationSeconds.Int64, "duration should match")
	AssertTimeAlmostEqual(t, end, iv.EndTime.Time, time.Millisecond)
}

// AssertIntervalOpen checks that an interval has neither end time nor duration.
func AssertIntervalOpen(t *testing.T, iv models.Interval) {
	t.Helper()

	assert.True(t, iv.IsOpen(), "interval should be open")
	assert.False(t, iv.DurationSeconds.Valid, "open interval should have no duration")
}

// AssertAssignmentEqual compares the user-visible fields of two assignments.
// Ignores CreatedAt as it is set by the database.
func AssertAssignmentEqual(t *testing.T, expected, actual *models.Assignment) {
	t.Helper()

	assert.Equal(t, expected.AssignmentID, actual.AssignmentID, "AssignmentID should match")
	assert.Equal(t, expected.Owner(), actual.Owner(), "owner should match")
	assert.Equal(t, expected.Title, actual.Title, "Title should match")
	assert.Equal(t, expected.Description, actual.Description, "Description should match")
	assert.Equal(t, expected.DueDateString(), actual.DueDateString(), "DueDate should match")
	assert.Equal(t, expected.IsCompleted, actual.IsCompleted, "IsCompleted should match")
}

// AssertTimeAlmostEqual checks if two times are within a specified delta.
// Useful for timestamp comparisons where exact equality isn't expected.
func AssertTimeAlmostEqual(t *testing.T, expected, actual time.Time, delta time.Duration) {
	t.Helper()

	diff := expected.Sub(actual)
	if diff < 0 {
		diff = -diff
	}

	assert.True(t,
		diff <= delta,
		"Times should be within %v of each other. Expected: %v, Actual: %v, Diff: %v",
		delta, expected, actual, diff,
	)
}
