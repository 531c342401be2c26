package calendar

import (
	"context"
	"time"
)

// Reader is the read-only view of the calendar used by stats, reminders and exports.
type Reader interface {
	ListEventDetails(ctx context.Context) ([]EventDetails, error)
	OccurrencesBetween(ctx context.Context, from, to time.Time) (map[time.Time][]Occurrence, error)
	CountRecurrences(ctx context.Context) (int, error)
	CountReminders(ctx context.Context) (int, error)
}
