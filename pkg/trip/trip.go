// Package trip holds the pure route/time arithmetic shared by the booking
// and availability services. Nothing here performs I/O or fails: estimation
// is total, and window computation always produces a non-empty interval.
package trip

import (
	"strconv"
	"time"

	apperrors "fleetlink/pkg/errors"
)

const (
	// FallbackDurationHours is used when a route endpoint is not numeric.
	FallbackDurationHours = 1

	// MinDurationHours is the floor applied to computed windows. A booking
	// window is half-open [start, end) and must never be empty.
	MinDurationHours = 1
)

// Window is the half-open interval [Start, End) a vehicle is reserved for.
type Window struct {
	Start time.Time
	End   time.Time
	Hours int
}

// EstimateDurationHours maps a route to an estimated trip duration in hours.
// Both pincodes are parsed as base-10 integers; if either fails to parse the
// fallback of 1 hour is returned, otherwise |a-b| mod 24. The result may be
// zero; callers building a window must go through ComputeWindow, which
// applies the one-hour floor.
func EstimateDurationHours(fromPincode, toPincode string) int {
	a, errA := strconv.Atoi(fromPincode)
	b, errB := strconv.Atoi(toPincode)
	if errA != nil || errB != nil {
		return FallbackDurationHours
	}

	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff % 24
}

// ComputeWindow derives the reservation window for a trip starting at start.
// A zero estimate is floored to MinDurationHours so the window is never empty.
func ComputeWindow(start time.Time, fromPincode, toPincode string) Window {
	hours := EstimateDurationHours(fromPincode, toPincode)
	if hours < MinDurationHours {
		hours = MinDurationHours
	}

	return Window{
		Start: start,
		End:   start.Add(time.Duration(hours) * time.Hour),
		Hours: hours,
	}
}

// ParseTimestamp parses an absolute, timezone-qualified timestamp. Naive
// local-time strings (no zone offset) are rejected rather than guessed at.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(
			"invalid timestamp, must be RFC3339 with a timezone offset (e.g., 2025-09-07T10:30:00Z)")
	}
	return t, nil
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2) share
// at least one instant. Boundary-touching intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
