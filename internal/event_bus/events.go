package event_bus

import "time"

const (
	CalendarChangedType EventType = "calendar.changed"
	ReminderDueType     EventType = "reminder.due"
)

type ChangeKind string

const (
	EventCreated  ChangeKind = "created"
	EventUpdated  ChangeKind = "updated"
	EventDeleted  ChangeKind = "deleted"
	CalendarReset ChangeKind = "restored"
)

// CalendarChanged is published after a calendar mutation has been persisted.
// EventId is 0 for restores, which may touch many events.
type CalendarChanged struct {
	Kind    ChangeKind
	EventId int
}

type ReminderDue struct {
	EventId       int
	Title         string
	StartTime     time.Time
	MinutesBefore int
	MinutesLeft   int
	Message       string
}
