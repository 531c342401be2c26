package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidFormat = errors.New("invalid recurrence format")
var ErrInvalidRule = errors.New("invalid recurrence rule")

const DateLayout = "2006-01-02"

type Unit int

const (
	Day Unit = iota
	Week
	Month
)

func (u Unit) Code() string {
	switch u {
	case Day:
		return "d"
	case Week:
		return "w"
	case Month:
		return "m"
	}
	return "?"
}

func (u Unit) String() string {
	switch u {
	case Day:
		return "DAY"
	case Week:
		return "WEEK"
	case Month:
		return "MONTH"
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// UnitFromCode maps a single-letter code (d, w, m) to its Unit, ignoring case.
func UnitFromCode(code string) (Unit, error) {
	switch strings.ToLower(code) {
	case "d":
		return Day, nil
	case "w":
		return Week, nil
	case "m":
		return Month, nil
	}
	return 0, fmt.Errorf("%w: unknown recurrence unit %q", ErrInvalidFormat, code)
}

// Rule describes how an event repeats. Times > 0 bounds the number of occurrences,
// otherwise EndDate (a calendar date, zero when absent) bounds the last occurrence start.
type Rule struct {
	EventId       int
	IntervalCount int
	Unit          Unit
	Times         int
	EndDate       time.Time
}

func (r Rule) HasEndDate() bool {
	return !r.EndDate.IsZero()
}

func (r Rule) IntervalText() string {
	return strconv.Itoa(r.IntervalCount) + r.Unit.Code()
}

func (r Rule) EndDateText() string {
	if !r.HasEndDate() {
		return "0"
	}
	return r.EndDate.Format(DateLayout)
}

func (r Rule) Validate() error {
	if r.IntervalCount < 1 {
		return fmt.Errorf("%w: interval count must be positive, got %d", ErrInvalidRule, r.IntervalCount)
	}
	if r.Unit < Day || r.Unit > Month {
		return fmt.Errorf("%w: unknown unit %d", ErrInvalidRule, int(r.Unit))
	}
	if r.Times < 0 {
		return fmt.Errorf("%w: repeat count must not be negative, got %d", ErrInvalidRule, r.Times)
	}
	if r.Times == 0 && !r.HasEndDate() {
		return fmt.Errorf("%w: end date is required when repeat count is 0", ErrInvalidRule)
	}
	return nil
}

// Advance moves t forward by steps intervals of the rule.
func (r Rule) Advance(t time.Time, steps int) time.Time {
	n := r.IntervalCount * steps
	switch r.Unit {
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return AddMonths(t, n)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Parse builds a rule from its textual form: interval like "2w", a repeat count and an
// end date ("0" or "" for none).
func Parse(eventId int, interval string, times int, endDate string) (Rule, error) {
	trimmed := strings.ToLower(strings.TrimSpace(interval))
	if len(trimmed) < 2 {
		return Rule{}, fmt.Errorf("%w: interval %q", ErrInvalidFormat, interval)
	}
	unit, err := UnitFromCode(trimmed[len(trimmed)-1:])
	if err != nil {
		return Rule{}, err
	}
	count, err := strconv.Atoi(trimmed[:len(trimmed)-1])
	if err != nil {
		return Rule{}, fmt.Errorf("%w: interval count %q", ErrInvalidFormat, trimmed[:len(trimmed)-1])
	}

	rule := Rule{
		EventId:       eventId,
		IntervalCount: count,
		Unit:          unit,
		Times:         times,
	}
	endDate = strings.TrimSpace(endDate)
	if endDate != "" && endDate != "0" {
		rule.EndDate, err = time.Parse(DateLayout, endDate)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: end date %q", ErrInvalidFormat, endDate)
		}
	}

	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// AddMonths adds n calendar months, clamping the day to the last day of the target month
// (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOf truncates t to midnight of its calendar day.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	from := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
