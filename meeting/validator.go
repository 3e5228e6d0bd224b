package meeting

import (
	"fmt"
	"sort"
	"time"
)

// DefaultDurations lists the meeting lengths offered when none are configured, in minutes.
var DefaultDurations = []int{30, 60, 90, 120, 180}

// Validator rejects schedule requests with invalid or past time ranges and
// derives the scheduled end from the requested duration.
type Validator struct {
	durations map[int]struct{}
}

// NewValidator builds a Validator accepting the given durations in minutes.
// Non-positive entries are ignored; an empty list falls back to DefaultDurations.
func NewValidator(allowed []int) *Validator {
	v := &Validator{durations: make(map[int]struct{}, len(allowed))}
	for _, d := range allowed {
		if d > 0 {
			v.durations[d] = struct{}{}
		}
	}
	if len(v.durations) == 0 {
		for _, d := range DefaultDurations {
			v.durations[d] = struct{}{}
		}
	}
	return v
}

// Durations returns the allow-list in ascending order.
func (v *Validator) Durations() []int {
	out := make([]int, 0, len(v.durations))
	for d := range v.durations {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// Validate checks start against now and returns start + durationMinutes.
// now must come from the server clock.
func (v *Validator) Validate(start time.Time, durationMinutes int, now time.Time) (time.Time, error) {
	if start.IsZero() {
		return time.Time{}, fmt.Errorf("%w: start", ErrMissingField)
	}
	if !start.After(now) {
		return time.Time{}, ErrPastSchedule
	}
	if durationMinutes <= 0 {
		return time.Time{}, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}
	if _, ok := v.durations[durationMinutes]; !ok {
		return time.Time{}, fmt.Errorf("%w: %d minutes not in %v", ErrInvalidDuration, durationMinutes, v.Durations())
	}
	return start.Add(time.Duration(durationMinutes) * time.Minute), nil
}
