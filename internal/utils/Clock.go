package utils

import "time"

type Clock interface {
	Now() time.Time
}

// SystemClock reports the local wall-clock time as a UTC value, the same
// representation the calendar uses for its zone-less date-times.
type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
}

type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}
