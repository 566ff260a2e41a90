package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// It feeds elapsed-time logging and chart valid-time truncation only;
// pipeline ordering is always driven by asset timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current minute from the active clock.
func Now() Timestamp {
	return TimestampOf(clock.Now())
}
