package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type StatsService interface {
	GetStats(ctx context.Context, days int) (Summary, error)
}

type StatsServiceImpl struct {
	calendar calendar.Reader
	clock    utils.Clock
}

func NewStatsServiceImpl(calendar calendar.Reader, clock utils.Clock) *StatsServiceImpl {
	return &StatsServiceImpl{calendar: calendar, clock: clock}
}

// GetStats summarizes the occurrences between today and today plus days, both inclusive.
func (s *StatsServiceImpl) GetStats(ctx context.Context, days int) (Summary, error) {
	if days < 0 {
		return Summary{}, fmt.Errorf("days must not be negative, got %d", days)
	}
	today := recurrence.DateOf(s.clock.Now())
	summary := Summary{
		From:         today,
		To:           today.AddDate(0, 0, days),
		BusiestDay:   time.Sunday,
		LongestTitle: "-",
	}

	events, err := s.calendar.ListEventDetails(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list events: %w", err)
	}
	summary.TotalEvents = len(events)
	if summary.RecurringRules, err = s.calendar.CountRecurrences(ctx); err != nil {
		return Summary{}, fmt.Errorf("failed to count recurrences: %w", err)
	}
	if summary.EventsWithReminders, err = s.calendar.CountReminders(ctx); err != nil {
		return Summary{}, fmt.Errorf("failed to count reminders: %w", err)
	}

	grouped, err := s.calendar.OccurrencesBetween(ctx, summary.From, summary.To)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to expand occurrences: %w", err)
	}

	var totalMinutes int64
	for _, occurrence := range calendar.Flatten(grouped) {
		summary.UpcomingOccurrences++
		duration := occurrence.Duration().Truncate(time.Minute)
		totalMinutes += int64(duration / time.Minute)
		if duration > summary.LongestDuration {
			summary.LongestDuration = duration
			summary.LongestTitle = occurrence.Title
		}
		summary.DayCounts[occurrence.StartTime.Weekday()]++
	}
	for weekday := time.Monday; weekday <= time.Saturday; weekday++ {
		if summary.DayCounts[weekday] > summary.DayCounts[summary.BusiestDay] {
			summary.BusiestDay = weekday
		}
	}
	if summary.UpcomingOccurrences > 0 {
		summary.AverageDuration = time.Duration(totalMinutes/int64(summary.UpcomingOccurrences)) * time.Minute
	}

	log.Debugf("stats for %s..%s: %d occurrences", summary.From.Format(recurrence.DateLayout),
		summary.To.Format(recurrence.DateLayout), summary.UpcomingOccurrences)
	return summary, nil
}
