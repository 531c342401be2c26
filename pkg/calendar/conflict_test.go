package calendar

import (
	"testing"
	"time"

	"github.com/klokku/planner/pkg/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occurrence(start, end time.Time) Occurrence {
	return Occurrence{EventId: 1, Title: "o", StartTime: start, EndTime: end}
}

func TestOverlaps(t *testing.T) {
	testCases := []struct {
		name string
		a, b Occurrence
		want bool
	}{
		{"partial overlap", occurrence(at(2024, 3, 1, 10, 0), at(2024, 3, 1, 11, 0)), occurrence(at(2024, 3, 1, 10, 30), at(2024, 3, 1, 11, 30)), true},
		{"contained", occurrence(at(2024, 3, 1, 9, 0), at(2024, 3, 1, 12, 0)), occurrence(at(2024, 3, 1, 10, 0), at(2024, 3, 1, 10, 15)), true},
		{"identical", occurrence(at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 0)), occurrence(at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 0)), true},
		{"touching", occurrence(at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 0)), occurrence(at(2024, 3, 1, 10, 0), at(2024, 3, 1, 11, 0)), false},
		{"disjoint", occurrence(at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 0)), occurrence(at(2024, 3, 2, 9, 0), at(2024, 3, 2, 10, 0)), false},
		{"across midnight", occurrence(at(2024, 3, 1, 23, 0), at(2024, 3, 2, 1, 0)), occurrence(at(2024, 3, 2, 0, 30), at(2024, 3, 2, 2, 0)), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, Overlaps(tc.b, tc.a))
		})
	}
}

func TestFindConflict_SingleEvents(t *testing.T) {
	// given
	existing := []Scheduled{{
		Event: Event{Id: 1, Title: "Meeting", StartTime: at(2024, 3, 1, 10, 30), EndTime: at(2024, 3, 1, 11, 30)},
		Rule:  recurrence.None(),
	}}
	candidate := Event{Title: "Call", StartTime: at(2024, 3, 1, 10, 0), EndTime: at(2024, 3, 1, 11, 0)}

	// when
	conflict, found := FindConflict(0, candidate, recurrence.None(), existing)

	// then
	require.True(t, found)
	assert.Equal(t, "Call", conflict.Candidate.Title)
	assert.Equal(t, 1, conflict.Existing.EventId)
	assert.Equal(t, at(2024, 3, 1, 10, 30), conflict.Existing.StartTime)
}

func TestHasConflict(t *testing.T) {
	weekly := Scheduled{
		Event: Event{Id: 1, Title: "Weekly sync", StartTime: at(2024, 1, 1, 10, 0), EndTime: at(2024, 1, 1, 11, 0)},
		Rule:  recurrence.Some(recurrence.Rule{EventId: 1, IntervalCount: 1, Unit: recurrence.Week, EndDate: day(2024, 1, 22)}),
	}
	testCases := []struct {
		name      string
		ignoreId  int
		candidate Event
		rule      recurrence.Optional
		want      bool
	}{
		{
			name:      "touching the end of an occurrence",
			candidate: Event{Title: "After", StartTime: at(2024, 1, 8, 11, 0), EndTime: at(2024, 1, 8, 12, 0)},
			rule:      recurrence.None(),
			want:      false,
		},
		{
			name:      "overlapping a later occurrence",
			candidate: Event{Title: "Clash", StartTime: at(2024, 1, 15, 10, 45), EndTime: at(2024, 1, 15, 11, 15)},
			rule:      recurrence.None(),
			want:      true,
		},
		{
			name:      "after the rule end date",
			candidate: Event{Title: "Free", StartTime: at(2024, 1, 29, 10, 0), EndTime: at(2024, 1, 29, 11, 0)},
			rule:      recurrence.None(),
			want:      false,
		},
		{
			name:      "recurring candidate reaching an occurrence",
			candidate: Event{Title: "Daily", StartTime: at(2023, 12, 30, 10, 30), EndTime: at(2023, 12, 30, 10, 45)},
			rule:      recurrence.Some(recurrence.Rule{IntervalCount: 1, Unit: recurrence.Day, Times: 3}),
			want:      true,
		},
		{
			name:      "recurring candidate stopping before the first occurrence",
			candidate: Event{Title: "Daily", StartTime: at(2023, 12, 30, 10, 30), EndTime: at(2023, 12, 30, 10, 45)},
			rule:      recurrence.Some(recurrence.Rule{IntervalCount: 1, Unit: recurrence.Day, Times: 2}),
			want:      false,
		},
		{
			name:      "editing itself",
			ignoreId:  1,
			candidate: Event{Id: 1, Title: "Weekly sync", StartTime: at(2024, 1, 1, 10, 0), EndTime: at(2024, 1, 1, 11, 0)},
			rule:      weekly.Rule,
			want:      false,
		},
		{
			name:      "identical range under another id",
			ignoreId:  2,
			candidate: Event{Id: 2, Title: "Copy", StartTime: at(2024, 1, 1, 10, 0), EndTime: at(2024, 1, 1, 11, 0)},
			rule:      recurrence.None(),
			want:      true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := HasConflict(tc.ignoreId, tc.candidate, tc.rule, []Scheduled{weekly})

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHasConflict_MonthlyUsesCalendarMonths(t *testing.T) {
	// Jan 31, Feb 29, Mar 29
	rent := Scheduled{
		Event: Event{Id: 1, Title: "Rent", StartTime: at(2024, 1, 31, 10, 0), EndTime: at(2024, 1, 31, 11, 0)},
		Rule:  recurrence.Some(recurrence.Rule{EventId: 1, IntervalCount: 1, Unit: recurrence.Month, Times: 3}),
	}

	t.Run("clamped february occurrence conflicts", func(t *testing.T) {
		candidate := Event{Title: "Leap day", StartTime: at(2024, 2, 29, 10, 30), EndTime: at(2024, 2, 29, 11, 30)}

		assert.True(t, HasConflict(0, candidate, recurrence.None(), []Scheduled{rent}))
	})

	t.Run("thirty days later is not an occurrence", func(t *testing.T) {
		candidate := Event{Title: "March 1st", StartTime: at(2024, 3, 1, 10, 30), EndTime: at(2024, 3, 1, 11, 30)}

		assert.False(t, HasConflict(0, candidate, recurrence.None(), []Scheduled{rent}))
	})

	t.Run("two monthly rules meeting in february", func(t *testing.T) {
		candidate := Event{Title: "Bills", StartTime: at(2023, 12, 29, 10, 15), EndTime: at(2023, 12, 29, 10, 45)}
		rule := recurrence.Some(recurrence.Rule{IntervalCount: 2, Unit: recurrence.Month, Times: 2})

		assert.True(t, HasConflict(0, candidate, rule, []Scheduled{rent}))
	})
}

func TestConflictRangeEnd(t *testing.T) {
	candidate := Event{Title: "Night shift", StartTime: at(2024, 1, 1, 22, 0), EndTime: at(2024, 1, 2, 6, 0)}
	testCases := []struct {
		name string
		rule recurrence.Optional
		want time.Time
	}{
		{"no rule uses the end date", recurrence.None(), day(2024, 1, 2)},
		{"repeat count projects the last start", recurrence.Some(recurrence.Rule{IntervalCount: 1, Unit: recurrence.Week, Times: 3}), day(2024, 1, 16)},
		{"end date projects the last start", recurrence.Some(recurrence.Rule{IntervalCount: 1, Unit: recurrence.Day, EndDate: day(2024, 1, 10)}), day(2024, 1, 11)},
		{"later end date widens a counted rule", recurrence.Some(recurrence.Rule{IntervalCount: 1, Unit: recurrence.Day, Times: 2, EndDate: day(2024, 2, 1)}), day(2024, 2, 2)},
		{"earlier end date does not shrink a counted rule", recurrence.Some(recurrence.Rule{IntervalCount: 1, Unit: recurrence.Day, Times: 5, EndDate: day(2024, 1, 2)}), day(2024, 1, 6)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ConflictRangeEnd(candidate, tc.rule))
		})
	}
}

func TestFindConflict_EndDateIgnoredByCountedCandidate(t *testing.T) {
	// The end date widens the window but expansion still stops after Times occurrences.
	existing := []Scheduled{{
		Event: Event{Id: 1, Title: "Late", StartTime: at(2024, 1, 20, 9, 0), EndTime: at(2024, 1, 20, 10, 0)},
		Rule:  recurrence.None(),
	}}
	candidate := Event{Title: "Short run", StartTime: at(2024, 1, 1, 9, 0), EndTime: at(2024, 1, 1, 10, 0)}
	rule := recurrence.Some(recurrence.Rule{IntervalCount: 1, Unit: recurrence.Day, Times: 2, EndDate: day(2024, 1, 31)})

	_, found := FindConflict(0, candidate, rule, existing)

	assert.False(t, found)
}
