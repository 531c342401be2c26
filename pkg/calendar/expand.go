package calendar

import (
	"time"

	"github.com/klokku/planner/pkg/recurrence"
)

// ExpandOccurrences returns the occurrences of event under rule whose start date lies in
// the inclusive date window [from, to]. Time of day is ignored for window membership.
// Results are in chronological order.
func ExpandOccurrences(event Event, rule recurrence.Optional, from, to time.Time) []Occurrence {
	r, recurring := rule.Get()
	if recurring && r.IntervalCount < 1 {
		recurring = false
	}

	occurrences := make([]Occurrence, 0)
	start := event.StartTime
	end := event.EndTime
	produced := 0
	for {
		if recurrence.DaysBetween(from, start) >= 0 && recurrence.DaysBetween(start, to) >= 0 {
			occurrences = append(occurrences, Occurrence{
				EventId:   event.Id,
				Title:     event.Title,
				StartTime: start,
				EndTime:   end,
			})
		}

		produced++
		if !recurring {
			break
		}
		if r.Times > 0 && produced >= r.Times {
			break
		}
		start = r.Advance(start, 1)
		end = r.Advance(end, 1)
		// the end date only bounds rules without a repeat count
		if r.Times == 0 && r.HasEndDate() && recurrence.DaysBetween(r.EndDate, start) > 0 {
			break
		}
		// every later start is past the window as well
		if recurrence.DaysBetween(start, to) < 0 {
			break
		}
	}
	return occurrences
}
