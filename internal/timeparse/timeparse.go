// Package timeparse parses user supplied dates and date-times against an ordered
// list of layouts. Values carry no zone: they are returned as wall-clock times in UTC.
package timeparse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidFormat = errors.New("invalid date format")

var DateLayouts = []string{
	"2006-01-02",
}

var DateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

func ParseDate(value string) (time.Time, error) {
	return Parse(value, DateLayouts...)
}

func ParseDateTime(value string) (time.Time, error) {
	return Parse(value, DateTimeLayouts...)
}

// Parse tries each layout in order and returns the first match. When none matches,
// the error wraps ErrInvalidFormat and every layout failure.
func Parse(value string, layouts ...string) (time.Time, error) {
	value = strings.TrimSpace(value)
	attempts := make([]error, 0, len(layouts))
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return wallClock(parsed), nil
		}
		attempts = append(attempts, err)
	}
	return time.Time{}, fmt.Errorf("%w: %q does not match any of [%s]: %w",
		ErrInvalidFormat, value, strings.Join(layouts, ", "), errors.Join(attempts...))
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayouts[0])
}

func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayouts[0])
}
