package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/klokku/planner/pkg/recurrence"
)

// Store owns the in-memory events, rules and reminders of one calendar.
// It does no locking; callers must not mutate it while a query is reading it.
type Store struct {
	events      map[int]Event
	recurrences map[int]recurrence.Rule
	reminders   map[int]int
	nextId      int
}

func NewStore() *Store {
	return &Store{
		events:      make(map[int]Event),
		recurrences: make(map[int]recurrence.Rule),
		reminders:   make(map[int]int),
		nextId:      1,
	}
}

// Load replaces the contents of the store. The id counter continues after the highest loaded id.
func (s *Store) Load(snapshot Snapshot) {
	s.events = make(map[int]Event, len(snapshot.Events))
	s.recurrences = make(map[int]recurrence.Rule, len(snapshot.Rules))
	s.reminders = make(map[int]int, len(snapshot.Reminders))
	s.nextId = 1
	for _, event := range snapshot.Events {
		s.events[event.Id] = event
		if event.Id >= s.nextId {
			s.nextId = event.Id + 1
		}
	}
	for _, rule := range snapshot.Rules {
		s.recurrences[rule.EventId] = rule
	}
	for eventId, minutes := range snapshot.Reminders {
		s.reminders[eventId] = minutes
	}
}

// Replace loads snapshot in place of the current contents. Ids already handed out in this
// session stay reserved, so the counter never moves backwards.
func (s *Store) Replace(snapshot Snapshot) {
	next := s.nextId
	s.Load(snapshot)
	if next > s.nextId {
		s.nextId = next
	}
}

func (s *Store) Snapshot() Snapshot {
	snapshot := Snapshot{
		Events:    s.ListEvents(),
		Rules:     s.ListRecurrences(),
		Reminders: make(map[int]int, len(s.reminders)),
	}
	for eventId, minutes := range s.reminders {
		snapshot.Reminders[eventId] = minutes
	}
	return snapshot
}

func (s *Store) CreateEvent(title, description string, start, end time.Time) Event {
	event := Event{
		Id:          s.allocateId(),
		Title:       title,
		Description: description,
		StartTime:   start,
		EndTime:     end,
	}
	s.put(event)
	return event
}

func (s *Store) allocateId() int {
	id := s.nextId
	s.nextId++
	return id
}

func (s *Store) put(event Event) {
	s.events[event.Id] = event
	if event.Id >= s.nextId {
		s.nextId = event.Id + 1
	}
}

func (s *Store) FindEvent(id int) (Event, bool) {
	event, ok := s.events[id]
	return event, ok
}

// ListEvents returns all events ordered by start time, then id.
func (s *Store) ListEvents() []Event {
	events := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].Id < events[j].Id
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events
}

func (s *Store) UpdateEvent(event Event) error {
	if _, ok := s.events[event.Id]; !ok {
		return fmt.Errorf("%w: %d", ErrEventNotFound, event.Id)
	}
	s.events[event.Id] = event
	return nil
}

// DeleteEvent removes the event with its rule and reminder. Its id is not handed out again.
func (s *Store) DeleteEvent(id int) {
	delete(s.events, id)
	delete(s.recurrences, id)
	delete(s.reminders, id)
}

func (s *Store) SetRecurrence(rule recurrence.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	s.recurrences[rule.EventId] = rule
	return nil
}

func (s *Store) ClearRecurrence(eventId int) {
	delete(s.recurrences, eventId)
}

func (s *Store) FindRecurrence(eventId int) recurrence.Optional {
	if rule, ok := s.recurrences[eventId]; ok {
		return recurrence.Some(rule)
	}
	return recurrence.None()
}

func (s *Store) ListRecurrences() []recurrence.Rule {
	rules := make([]recurrence.Rule, 0, len(s.recurrences))
	for _, rule := range s.recurrences {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].EventId < rules[j].EventId
	})
	return rules
}

func (s *Store) SetReminderMinutes(eventId int, minutes int) {
	s.reminders[eventId] = minutes
}

func (s *Store) ClearReminder(eventId int) {
	delete(s.reminders, eventId)
}

func (s *Store) FindReminderMinutes(eventId int) (int, bool) {
	minutes, ok := s.reminders[eventId]
	return minutes, ok
}

func (s *Store) ReminderCount() int {
	return len(s.reminders)
}

// OccurrencesBetween expands every stored event over [from, to] and groups the occurrences
// by the calendar date of their start. Each day is ordered by start time.
func (s *Store) OccurrencesBetween(from, to time.Time) map[time.Time][]Occurrence {
	result := make(map[time.Time][]Occurrence)
	for _, event := range s.events {
		for _, occurrence := range ExpandOccurrences(event, s.FindRecurrence(event.Id), from, to) {
			date := recurrence.DateOf(occurrence.StartTime)
			result[date] = append(result[date], occurrence)
		}
	}
	for _, day := range result {
		sort.SliceStable(day, func(i, j int) bool {
			if day[i].StartTime.Equal(day[j].StartTime) {
				return day[i].EventId < day[j].EventId
			}
			return day[i].StartTime.Before(day[j].StartTime)
		})
	}
	return result
}

// HasConflict checks candidate against every stored event except ignoreId.
func (s *Store) HasConflict(ignoreId int, candidate Event, rule recurrence.Optional) bool {
	_, found := s.FindConflict(ignoreId, candidate, rule)
	return found
}

func (s *Store) FindConflict(ignoreId int, candidate Event, rule recurrence.Optional) (Conflict, bool) {
	return FindConflict(ignoreId, candidate, rule, s.scheduled())
}

func (s *Store) scheduled() []Scheduled {
	events := s.ListEvents()
	scheduled := make([]Scheduled, 0, len(events))
	for _, event := range events {
		scheduled = append(scheduled, Scheduled{Event: event, Rule: s.FindRecurrence(event.Id)})
	}
	return scheduled
}

// SortedDates returns the keys of a grouped occurrence map in ascending order.
func SortedDates(grouped map[time.Time][]Occurrence) []time.Time {
	dates := make([]time.Time, 0, len(grouped))
	for date := range grouped {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}

// Flatten returns all grouped occurrences ordered by start time.
func Flatten(grouped map[time.Time][]Occurrence) []Occurrence {
	flattened := make([]Occurrence, 0)
	for _, date := range SortedDates(grouped) {
		flattened = append(flattened, grouped[date]...)
	}
	return flattened
}
