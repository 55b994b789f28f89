// Package clock provides the time source abstraction used by the
// orchestration core. All "days since" and day-rollover computations go
// through a Clock so tests can advance virtual time instead of sleeping.
// This is part of the platform layer and contains no business logic.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source consumed by the core. It is satisfied by both
// clockwork.NewRealClock and clockwork.NewFakeClock.
type Clock = clockwork.Clock

// NewReal returns a wall-clock backed Clock.
func NewReal() Clock {
	return clockwork.NewRealClock()
}

// SameDay reports whether two instants fall on the same calendar day in
// the local timezone of a.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// DaysSince returns the number of whole 24h periods elapsed between then
// and now. Negative spans clamp to zero.
func DaysSince(now, then time.Time) int {
	if then.After(now) {
		return 0
	}
	return int(now.Sub(then) / (24 * time.Hour))
}

// NextMidnight returns the first instant of the next calendar day after now.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
