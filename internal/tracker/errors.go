package tracker

import (
	"errors"
	"fmt"
)

// ErrNotFound is the common cause of every "nothing to act on" result
var ErrNotFound = errors.New("not found")

var (
	// ErrNoActiveTask is returned by StopTask when the owner has no open task
	ErrNoActiveTask = fmt.Errorf("no active task: %w", ErrNotFound)
	// ErrNoOpenSession is returned by VoiceLeave when no session is open in the channel
	ErrNoOpenSession = fmt.Errorf("no open voice session: %w", ErrNotFound)
	// ErrAssignmentNotFound is returned when an assignment ID matches nothing
	ErrAssignmentNotFound = fmt.Errorf("assignment not found: %w", ErrNotFound)
)

// ValidationError reports malformed input rejected before any write
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is or wraps a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
