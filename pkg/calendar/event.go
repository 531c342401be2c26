package calendar

import (
	"time"

	"github.com/klokku/planner/pkg/recurrence"
)

// Event start and end are naive local date-times; no timezone conversion is ever applied.
type Event struct {
	Id          int
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
}

// Occurrence is one concrete instance of an event, recomputed on every query.
type Occurrence struct {
	EventId   int
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

func (o Occurrence) Duration() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}

// EventDetails is an event together with its optional rule and reminder.
type EventDetails struct {
	Event           Event
	Recurrence      recurrence.Optional
	ReminderMinutes *int
}

// Scheduled pairs a stored event with its optional rule for conflict detection.
type Scheduled struct {
	Event Event
	Rule  recurrence.Optional
}

// Snapshot is the full persisted state of a calendar.
type Snapshot struct {
	Events    []Event
	Rules     []recurrence.Rule
	Reminders map[int]int
}
