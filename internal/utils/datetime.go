package utils

import "time"

// Now returns the current UTC time, truncated to microseconds so values
// round-trip through postgres timestamp columns unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func NowPtr() *time.Time {
	now := Now()
	return &now
}
