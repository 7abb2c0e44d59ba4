package common

import "time"

// Clock is the time source for server-assigned timestamps.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns UTC wall time truncated to the millisecond, the precision every timestamp is stored with.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NextTimestamp returns the timestamp for a write that follows last in the same scope.
// It never goes backwards, even when the wall clock does.
func NextTimestamp(now, last time.Time) time.Time {
	now = now.UTC().Truncate(time.Millisecond)
	if floor := last.Add(time.Millisecond); !last.IsZero() && now.Before(floor) {
		return floor.UTC()
	}
	return now
}
