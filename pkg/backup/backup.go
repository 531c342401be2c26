// Package backup reads and writes the calendar as a single CSV file split into
// #EVENTS, #RECURRENCES and #REMINDERS sections.
package backup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/klokku/planner/internal/timeparse"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidBackup = errors.New("invalid backup")

const (
	eventsSection      = "#EVENTS"
	recurrencesSection = "#RECURRENCES"
	remindersSection   = "#REMINDERS"
)

var (
	eventsHeader      = []string{"eventId", "title", "description", "startDateTime", "endDateTime"}
	recurrencesHeader = []string{"eventId", "recurrentInterval", "recurrentTimes", "recurrentEndDate"}
	remindersHeader   = []string{"eventId", "minutesBefore"}
)

// Write stores snapshot in backup format. Events are written by start time and
// reminders by event id.
func Write(w io.Writer, snapshot calendar.Snapshot) error {
	writer := csv.NewWriter(w)

	rows := [][]string{{eventsSection}, eventsHeader}
	for _, event := range snapshot.Events {
		rows = append(rows, []string{
			strconv.Itoa(event.Id),
			event.Title,
			event.Description,
			timeparse.FormatDateTime(event.StartTime),
			timeparse.FormatDateTime(event.EndTime),
		})
	}

	rows = append(rows, []string{recurrencesSection}, recurrencesHeader)
	for _, rule := range snapshot.Rules {
		rows = append(rows, []string{
			strconv.Itoa(rule.EventId),
			rule.IntervalText(),
			strconv.Itoa(rule.Times),
			rule.EndDateText(),
		})
	}

	rows = append(rows, []string{remindersSection}, remindersHeader)
	eventIds := make([]int, 0, len(snapshot.Reminders))
	for eventId := range snapshot.Reminders {
		eventIds = append(eventIds, eventId)
	}
	slices.Sort(eventIds)
	for _, eventId := range eventIds {
		rows = append(rows, []string{strconv.Itoa(eventId), strconv.Itoa(snapshot.Reminders[eventId])})
	}

	if err := writer.WriteAll(rows); err != nil {
		log.Errorf("Error writing backup: %v", err)
		return err
	}
	return nil
}

// Read parses a backup. Rows before the first section marker and header rows are ignored.
func Read(r io.Reader) (calendar.Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	snapshot := calendar.Snapshot{Reminders: make(map[int]int)}
	section := ""
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return calendar.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
		}
		line, _ := reader.FieldPos(0)

		if len(record) == 1 {
			switch record[0] {
			case eventsSection, recurrencesSection, remindersSection:
				section = record[0]
				continue
			case "":
				continue
			}
		}
		if section == "" || record[0] == "eventId" {
			continue
		}

		switch section {
		case eventsSection:
			event, err := parseEvent(record)
			if err != nil {
				return calendar.Snapshot{}, fmt.Errorf("%w: line %d: %w", ErrInvalidBackup, line, err)
			}
			snapshot.Events = append(snapshot.Events, event)
		case recurrencesSection:
			rule, err := parseRecurrence(record)
			if err != nil {
				return calendar.Snapshot{}, fmt.Errorf("%w: line %d: %w", ErrInvalidBackup, line, err)
			}
			snapshot.Rules = append(snapshot.Rules, rule)
		case remindersSection:
			eventId, minutes, err := parseReminder(record)
			if err != nil {
				return calendar.Snapshot{}, fmt.Errorf("%w: line %d: %w", ErrInvalidBackup, line, err)
			}
			snapshot.Reminders[eventId] = minutes
		}
	}
	return snapshot, nil
}

func parseEvent(record []string) (calendar.Event, error) {
	if len(record) != len(eventsHeader) {
		return calendar.Event{}, fmt.Errorf("expected %d event fields, got %d", len(eventsHeader), len(record))
	}
	id, err := strconv.Atoi(record[0])
	if err != nil {
		return calendar.Event{}, fmt.Errorf("event id %q: %w", record[0], err)
	}
	start, err := timeparse.Parse(record[3], timeparse.DateTimeLayouts[:2]...)
	if err != nil {
		return calendar.Event{}, err
	}
	end, err := timeparse.Parse(record[4], timeparse.DateTimeLayouts[:2]...)
	if err != nil {
		return calendar.Event{}, err
	}
	return calendar.Event{
		Id:          id,
		Title:       record[1],
		Description: record[2],
		StartTime:   start,
		EndTime:     end,
	}, nil
}

func parseRecurrence(record []string) (recurrence.Rule, error) {
	if len(record) != len(recurrencesHeader) {
		return recurrence.Rule{}, fmt.Errorf("expected %d recurrence fields, got %d", len(recurrencesHeader), len(record))
	}
	eventId, err := strconv.Atoi(record[0])
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("event id %q: %w", record[0], err)
	}
	times, err := strconv.Atoi(record[2])
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("repeat count %q: %w", record[2], err)
	}
	return recurrence.Parse(eventId, record[1], times, record[3])
}

func parseReminder(record []string) (int, int, error) {
	if len(record) != len(remindersHeader) {
		return 0, 0, fmt.Errorf("expected %d reminder fields, got %d", len(remindersHeader), len(record))
	}
	eventId, err := strconv.Atoi(record[0])
	if err != nil {
		return 0, 0, fmt.Errorf("event id %q: %w", record[0], err)
	}
	minutes, err := strconv.Atoi(record[1])
	if err != nil {
		return 0, 0, fmt.Errorf("reminder minutes %q: %w", record[1], err)
	}
	return eventId, minutes, nil
}
