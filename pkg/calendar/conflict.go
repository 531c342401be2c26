package calendar

import (
	"time"

	"github.com/klokku/planner/pkg/recurrence"
)

// Conflict is the first overlapping pair found by FindConflict.
type Conflict struct {
	Candidate Occurrence
	Existing  Occurrence
}

// Overlaps reports whether two occurrences overlap as half-open intervals,
// so an occurrence ending exactly when the other starts does not overlap.
func Overlaps(a, b Occurrence) bool {
	return a.StartTime.Before(b.EndTime) && a.EndTime.After(b.StartTime)
}

// ConflictRangeEnd returns the last date any occurrence of candidate under rule can touch.
// A rule end date later than the count-based last occurrence widens the range even when
// the repeat count is positive, although expansion ignores it in that case.
func ConflictRangeEnd(candidate Event, rule recurrence.Optional) time.Time {
	startDate := recurrence.DateOf(candidate.StartTime)
	endDate := recurrence.DateOf(candidate.EndTime)
	rangeEnd := startDate
	if endDate.After(startDate) {
		rangeEnd = endDate
	}

	r, ok := rule.Get()
	if !ok {
		return rangeEnd
	}

	lastStart := startDate
	if r.Times > 0 && r.IntervalCount > 0 {
		lastStart = r.Advance(startDate, r.Times-1)
	}
	if r.HasEndDate() && recurrence.DaysBetween(lastStart, r.EndDate) > 0 {
		lastStart = time.Date(r.EndDate.Year(), r.EndDate.Month(), r.EndDate.Day(), 0, 0, 0, 0, startDate.Location())
	}
	lastEnd := lastStart
	if span := recurrence.DaysBetween(startDate, endDate); span > 0 {
		lastEnd = lastStart.AddDate(0, 0, span)
	}
	if lastEnd.After(rangeEnd) {
		rangeEnd = lastEnd
	}
	return rangeEnd
}

// FindConflict expands candidate and every existing event except ignoreId over the
// candidate's range and returns the first overlapping pair.
func FindConflict(ignoreId int, candidate Event, rule recurrence.Optional, existing []Scheduled) (Conflict, bool) {
	rangeStart := recurrence.DateOf(candidate.StartTime)
	rangeEnd := ConflictRangeEnd(candidate, rule)

	candidateOccurrences := ExpandOccurrences(candidate, rule, rangeStart, rangeEnd)
	if len(candidateOccurrences) == 0 {
		return Conflict{}, false
	}
	for _, other := range existing {
		if other.Event.Id == ignoreId {
			continue
		}
		for _, existingOccurrence := range ExpandOccurrences(other.Event, other.Rule, rangeStart, rangeEnd) {
			for _, candidateOccurrence := range candidateOccurrences {
				if Overlaps(existingOccurrence, candidateOccurrence) {
					return Conflict{Candidate: candidateOccurrence, Existing: existingOccurrence}, true
				}
			}
		}
	}
	return Conflict{}, false
}

func HasConflict(ignoreId int, candidate Event, rule recurrence.Optional, existing []Scheduled) bool {
	_, found := FindConflict(ignoreId, candidate, rule, existing)
	return found
}
