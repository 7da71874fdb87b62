package clock

import "time"

// Timer is a handle to a scheduled single-shot callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call stopped the timer
	// before it fired.
	Stop() bool
}

// Clock is the time source used by machine instances to arm delayed transitions.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules f to run once after d. The callback runs on a goroutine
	// owned by the clock and must do its own synchronisation.
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock backed by the time package.
type Real struct{}

// New returns the wall clock.
func New() Clock {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
