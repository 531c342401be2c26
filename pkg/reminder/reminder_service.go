package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	calendar    calendar.Reader
	clock       utils.Clock
	horizonDays int
}

func NewService(calendar calendar.Reader, clock utils.Clock, horizonDays int) *Service {
	return &Service{calendar: calendar, clock: clock, horizonDays: horizonDays}
}

// Next finds the earliest occurrence between now and the end of the horizon whose event
// has a reminder, whether or not its reminder window is open yet.
func (s *Service) Next(ctx context.Context) (Due, bool, error) {
	now := s.clock.Now()
	today := recurrence.DateOf(now)

	events, err := s.calendar.ListEventDetails(ctx)
	if err != nil {
		return Due{}, false, fmt.Errorf("failed to list events: %w", err)
	}
	reminders := make(map[int]int)
	for _, details := range events {
		if details.ReminderMinutes != nil {
			reminders[details.Event.Id] = *details.ReminderMinutes
		}
	}
	if len(reminders) == 0 {
		return Due{}, false, nil
	}

	grouped, err := s.calendar.OccurrencesBetween(ctx, today, today.AddDate(0, 0, s.horizonDays))
	if err != nil {
		return Due{}, false, fmt.Errorf("failed to expand occurrences: %w", err)
	}

	var next Due
	found := false
	for _, occurrence := range calendar.Flatten(grouped) {
		minutes, ok := reminders[occurrence.EventId]
		if !ok || occurrence.StartTime.Before(now) {
			continue
		}
		if found && !occurrence.StartTime.Before(next.StartTime) {
			continue
		}
		next = Due{
			EventId:       occurrence.EventId,
			Title:         occurrence.Title,
			StartTime:     occurrence.StartTime,
			MinutesBefore: minutes,
			MinutesLeft:   int(occurrence.StartTime.Sub(now) / time.Minute),
		}
		found = true
	}
	return next, found, nil
}

// NextDue returns the next reminder only when its window has opened.
func (s *Service) NextDue(ctx context.Context) (Due, bool, error) {
	next, found, err := s.Next(ctx)
	if err != nil || !found {
		return Due{}, false, err
	}
	if !next.IsDue() {
		log.Tracef("next reminder for event %d opens in %d minutes", next.EventId, next.MinutesLeft-next.MinutesBefore)
		return Due{}, false, nil
	}
	return next, true, nil
}
