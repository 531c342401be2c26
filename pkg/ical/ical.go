// Package ical exports the calendar as an RFC 5545 iCalendar document.
package ical

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/recurrence"
	"github.com/teambition/rrule-go"
)

const (
	productId = "-//klokku//planner//EN"
	// Floating date-times carry no zone, matching how events are stored.
	floatingLayout = "20060102T150405"
	// Months clamp to their last day beyond this, which RRULE cannot express.
	lastSafeMonthDay = 28
)

var propertyRdate = ics.ComponentProperty("RDATE")

// Export renders every event as a VEVENT. stamp becomes DTSTAMP of each event.
func Export(items []calendar.EventDetails, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productId)

	for _, item := range items {
		event := item.Event
		vevent := cal.AddEvent(UID(event.Id))
		vevent.SetDtStampTime(stamp)
		vevent.SetProperty(ics.ComponentPropertyDtStart, event.StartTime.Format(floatingLayout))
		vevent.SetProperty(ics.ComponentPropertyDtEnd, event.EndTime.Format(floatingLayout))
		vevent.SetSummary(event.Title)
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
		if item.ReminderMinutes != nil {
			alarm := vevent.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", *item.ReminderMinutes))
			alarm.SetProperty(ics.ComponentPropertyDescription, event.Title)
		}

		rule, ok := item.Recurrence.Get()
		if !ok || rule.IntervalCount < 1 {
			continue
		}
		if rule.Unit == recurrence.Month && event.StartTime.Day() > lastSafeMonthDay {
			for _, start := range explicitDates(event, rule) {
				vevent.AddProperty(propertyRdate, start.Format(floatingLayout))
			}
			continue
		}
		vevent.AddRrule(RRule(rule))
	}
	return cal.Serialize()
}

// UID is stable per event id, so re-imports update instead of duplicating.
func UID(eventId int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("planner:event:%d", eventId))).String()
}

// RRule renders rule as an RRULE value. A rule bounded by its end date repeats until
// the end of that day. UNTIL stays floating like DTSTART.
func RRule(rule recurrence.Rule) string {
	option := rrule.ROption{
		Interval: rule.IntervalCount,
	}
	switch rule.Unit {
	case recurrence.Week:
		option.Freq = rrule.WEEKLY
	case recurrence.Month:
		option.Freq = rrule.MONTHLY
	default:
		option.Freq = rrule.DAILY
	}
	if rule.Times > 0 {
		option.Count = rule.Times
		return option.RRuleString()
	}
	// rrule-go always writes UNTIL in UTC.
	end := rule.EndDate
	until := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
	return option.RRuleString() + ";UNTIL=" + until.Format(floatingLayout)
}

// explicitDates lists the starts after the first one for rules RRULE would get wrong.
func explicitDates(event calendar.Event, rule recurrence.Rule) []time.Time {
	occurrences := calendar.ExpandOccurrences(event, recurrence.Some(rule),
		recurrence.DateOf(event.StartTime), calendar.ConflictRangeEnd(event, recurrence.Some(rule)))
	dates := make([]time.Time, 0, len(occurrences))
	for _, occurrence := range occurrences {
		if occurrence.StartTime.Equal(event.StartTime) {
			continue
		}
		dates = append(dates, occurrence.StartTime)
	}
	return dates
}
