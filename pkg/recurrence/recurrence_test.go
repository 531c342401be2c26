package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		interval string
		times    int
		endDate  string
		want     Rule
	}{
		{
			name:     "days with repeat count",
			interval: "1d",
			times:    5,
			endDate:  "0",
			want:     Rule{EventId: 7, IntervalCount: 1, Unit: Day, Times: 5},
		},
		{
			name:     "weeks with end date",
			interval: "2w",
			times:    0,
			endDate:  "2024-01-22",
			want:     Rule{EventId: 7, IntervalCount: 2, Unit: Week, EndDate: date(2024, 1, 22)},
		},
		{
			name:     "upper case unit and surrounding spaces",
			interval: " 3M ",
			times:    4,
			endDate:  "",
			want:     Rule{EventId: 7, IntervalCount: 3, Unit: Month, Times: 4},
		},
		{
			name:     "end date kept even with repeat count",
			interval: "10d",
			times:    2,
			endDate:  "2024-03-01",
			want:     Rule{EventId: 7, IntervalCount: 10, Unit: Day, Times: 2, EndDate: date(2024, 3, 1)},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			rule, err := Parse(7, tc.interval, tc.times, tc.endDate)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.want, rule)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		interval string
		times    int
		endDate  string
		wantErr  error
	}{
		{name: "unknown unit", interval: "2y", times: 1, endDate: "0", wantErr: ErrInvalidFormat},
		{name: "missing count", interval: "d", times: 1, endDate: "0", wantErr: ErrInvalidFormat},
		{name: "non numeric count", interval: "xd", times: 1, endDate: "0", wantErr: ErrInvalidFormat},
		{name: "empty interval", interval: "", times: 1, endDate: "0", wantErr: ErrInvalidFormat},
		{name: "malformed end date", interval: "1d", times: 0, endDate: "22/01/2024", wantErr: ErrInvalidFormat},
		{name: "unbounded rule", interval: "1d", times: 0, endDate: "0", wantErr: ErrInvalidRule},
		{name: "zero interval", interval: "0w", times: 3, endDate: "", wantErr: ErrInvalidRule},
		{name: "negative repeat count", interval: "1m", times: -1, endDate: "2024-01-01", wantErr: ErrInvalidRule},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(1, tc.interval, tc.times, tc.endDate)

			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRule_IntervalTextRoundTrip(t *testing.T) {
	for _, unit := range []Unit{Day, Week, Month} {
		t.Run(unit.String(), func(t *testing.T) {
			// given
			rule := Rule{EventId: 3, IntervalCount: 12, Unit: unit, Times: 4}

			// when
			parsed, err := Parse(rule.EventId, rule.IntervalText(), rule.Times, rule.EndDateText())

			// then
			require.NoError(t, err)
			assert.Equal(t, rule, parsed)
			assert.Equal(t, "12"+unit.Code(), rule.IntervalText())
		})
	}
}

func TestRule_EndDateTextRoundTrip(t *testing.T) {
	rule := Rule{EventId: 1, IntervalCount: 1, Unit: Week, EndDate: date(2024, 1, 22)}

	parsed, err := Parse(rule.EventId, rule.IntervalText(), rule.Times, rule.EndDateText())

	require.NoError(t, err)
	assert.Equal(t, rule, parsed)
	assert.Equal(t, "2024-01-22", rule.EndDateText())
}

func TestRule_Advance(t *testing.T) {
	start := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)
	testCases := []struct {
		name  string
		rule  Rule
		steps int
		want  time.Time
	}{
		{"one day", Rule{IntervalCount: 1, Unit: Day}, 1, time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)},
		{"three days twice", Rule{IntervalCount: 3, Unit: Day}, 2, time.Date(2024, 2, 6, 9, 30, 0, 0, time.UTC)},
		{"two weeks", Rule{IntervalCount: 2, Unit: Week}, 1, time.Date(2024, 2, 14, 9, 30, 0, 0, time.UTC)},
		{"month clamps to leap february", Rule{IntervalCount: 1, Unit: Month}, 1, time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC)},
		{"two months keeps the 31st", Rule{IntervalCount: 1, Unit: Month}, 2, time.Date(2024, 3, 31, 9, 30, 0, 0, time.UTC)},
		{"month across year end", Rule{IntervalCount: 11, Unit: Month}, 1, time.Date(2024, 12, 31, 9, 30, 0, 0, time.UTC)},
		{"zero steps", Rule{IntervalCount: 1, Unit: Month}, 0, start},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rule.Advance(start, tc.steps))
		})
	}
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, date(2023, 2, 28), AddMonths(date(2023, 1, 31), 1))
	assert.Equal(t, date(2024, 4, 30), AddMonths(date(2024, 3, 31), 1))
	assert.Equal(t, date(2025, 1, 15), AddMonths(date(2024, 12, 15), 1))
	assert.Equal(t, date(2023, 11, 30), AddMonths(date(2024, 1, 30), -2))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, DaysBetween(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, DaysBetween(date(2024, 2, 1), date(2024, 3, 1)))
	assert.Equal(t, -3, DaysBetween(date(2024, 1, 4), date(2024, 1, 1)))
}

func TestOptional(t *testing.T) {
	rule := Rule{EventId: 1, IntervalCount: 1, Unit: Day, Times: 2}

	got, ok := Some(rule).Get()
	assert.True(t, ok)
	assert.Equal(t, rule, got)

	_, ok = None().Get()
	assert.False(t, ok)
	assert.False(t, Optional{}.IsPresent())
}
