package reminder

import (
	"fmt"
	"time"
)

// Due is the next upcoming occurrence with a reminder attached.
type Due struct {
	EventId       int
	Title         string
	StartTime     time.Time
	MinutesBefore int
	// MinutesLeft is the whole number of minutes from now until StartTime.
	MinutesLeft int
}

// IsDue reports whether the reminder window of the occurrence has opened.
func (d Due) IsDue() bool {
	return d.MinutesLeft <= d.MinutesBefore
}

func (d Due) Message() string {
	return fmt.Sprintf("Your next event is coming soon in %s: %s", formatMinutes(d.MinutesLeft), d.Title)
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
