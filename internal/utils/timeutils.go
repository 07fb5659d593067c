package utils

import (
	"fmt"
	"math"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
// Fractional seconds are accepted.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// FromEpochMillis converts a millisecond Unix timestamp. ok is false for
// values that are not finite.
func FromEpochMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}
