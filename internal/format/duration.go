// Package format renders tracked durations for people.
package format

import (
	"fmt"
	"time"
)

// Seconds renders a whole number of seconds as "Hh Mm Ss". Hours are not
// folded into days. Negative input renders as zero.
func Seconds(total int64) string {
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// Duration renders d truncated to whole seconds
func Duration(d time.Duration) string {
	return Seconds(int64(d / time.Second))
}
