// Package duration parses the human-authored duration strings accepted by
// ban and suspension commands: an integer followed by a single unit letter,
// e.g. "60s", "30m", "24h", "180d".
package duration

import (
	"math"
	"strconv"
	"time"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

// Parse converts a duration string into a time.Duration. It returns
// domain.ErrInvalidDuration for an empty string, a non-integer prefix, an
// unknown unit, a non-positive value, or a value too large to represent as
// nanoseconds. Callers must treat anything but a positive duration as a
// rejection, never as "zero time".
func Parse(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, domain.ErrInvalidDuration
	}

	value, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || value <= 0 {
		return 0, domain.ErrInvalidDuration
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 's', 'S':
		unit = time.Second
	case 'm', 'M':
		unit = time.Minute
	case 'h', 'H':
		unit = time.Hour
	case 'd', 'D':
		unit = 24 * time.Hour
	default:
		return 0, domain.ErrInvalidDuration
	}

	if value > math.MaxInt64/int64(unit) {
		return 0, domain.ErrInvalidDuration
	}
	return time.Duration(value) * unit, nil
}
