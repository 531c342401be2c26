package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klokku/planner/internal/event_bus"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

var ErrEventNotFound = errors.New("event not found")
var ErrConflict = errors.New("event conflicts with an existing event")
var ErrInvalidEvent = errors.New("invalid event")

type RecurrenceAction int

const (
	KeepRecurrence RecurrenceAction = iota
	RemoveRecurrence
	SetRecurrence
)

// RecurrenceChange says what happens to an event's rule on create or update.
// On create, keeping means no rule.
type RecurrenceChange struct {
	Action   RecurrenceAction
	Interval string
	Times    int
	EndDate  string
}

func Keep() RecurrenceChange {
	return RecurrenceChange{Action: KeepRecurrence}
}

func Remove() RecurrenceChange {
	return RecurrenceChange{Action: RemoveRecurrence}
}

func Set(interval string, times int, endDate string) RecurrenceChange {
	return RecurrenceChange{Action: SetRecurrence, Interval: interval, Times: times, EndDate: endDate}
}

type EventInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Recurrence  RecurrenceChange
	// ReminderMinutes replaces the reminder when set. A nil value keeps the current one
	// unless RemoveReminder is true.
	ReminderMinutes *int
	RemoveReminder  bool
}

func (in EventInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if in.EndTime.Before(in.StartTime) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidEvent, in.EndTime, in.StartTime)
	}
	if in.ReminderMinutes != nil && *in.ReminderMinutes < 0 {
		return fmt.Errorf("%w: reminder minutes must not be negative", ErrInvalidEvent)
	}
	return nil
}

type Filter struct {
	From          time.Time
	To            time.Time
	Title         string
	Description   string
	RecurringOnly bool
}

// Service guards a Store with a read/write lock and persists every mutation
// through the Repository before applying it in memory.
type Service struct {
	mu       sync.RWMutex
	store    *Store
	repo     Repository
	eventBus *event_bus.EventBus
}

func NewService(repo Repository, eventBus *event_bus.EventBus) *Service {
	return &Service{
		store:    NewStore(),
		repo:     repo,
		eventBus: eventBus,
	}
}

func (s *Service) Load(ctx context.Context) error {
	snapshot, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load calendar: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Load(snapshot)
	log.Infof("loaded %d events, %d recurrence rules and %d reminders",
		len(snapshot.Events), len(snapshot.Rules), len(snapshot.Reminders))
	return nil
}

func (s *Service) CreateEvent(ctx context.Context, input EventInput) (EventDetails, error) {
	if err := input.validate(); err != nil {
		return EventDetails{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule, err := s.resolveRule(0, input.Recurrence)
	if err != nil {
		return EventDetails{}, err
	}
	event := Event{
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
	}
	if conflict, found := s.store.FindConflict(0, event, rule); found {
		log.Debugf("rejecting new event %q: %v", event.Title, conflict)
		return EventDetails{}, conflictError(conflict)
	}

	event.Id = s.store.allocateId()
	if r, ok := rule.Get(); ok {
		r.EventId = event.Id
		rule = recurrence.Some(r)
	}

	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		if err := repo.StoreEvent(ctx, event); err != nil {
			return err
		}
		if r, ok := rule.Get(); ok {
			if err := repo.StoreRecurrence(ctx, r); err != nil {
				return err
			}
		}
		if input.ReminderMinutes != nil {
			return repo.StoreReminder(ctx, event.Id, *input.ReminderMinutes)
		}
		return nil
	})
	if err != nil {
		return EventDetails{}, fmt.Errorf("failed to store event: %w", err)
	}

	s.store.put(event)
	if r, ok := rule.Get(); ok {
		s.store.recurrences[event.Id] = r
	}
	if input.ReminderMinutes != nil {
		s.store.SetReminderMinutes(event.Id, *input.ReminderMinutes)
	}
	s.publish(ctx, event_bus.EventCreated, event.Id)

	return s.details(event), nil
}

func (s *Service) UpdateEvent(ctx context.Context, eventId int, input EventInput) (EventDetails, error) {
	if err := input.validate(); err != nil {
		return EventDetails{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.store.FindEvent(eventId); !ok {
		return EventDetails{}, fmt.Errorf("%w: %d", ErrEventNotFound, eventId)
	}
	rule, err := s.resolveRule(eventId, input.Recurrence)
	if err != nil {
		return EventDetails{}, err
	}
	event := Event{
		Id:          eventId,
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
	}
	if conflict, found := s.store.FindConflict(eventId, event, rule); found {
		log.Debugf("rejecting update of event %d: %v", eventId, conflict)
		return EventDetails{}, conflictError(conflict)
	}

	reminder, hasReminder := s.store.FindReminderMinutes(eventId)
	if input.ReminderMinutes != nil {
		reminder, hasReminder = *input.ReminderMinutes, true
	} else if input.RemoveReminder {
		hasReminder = false
	}

	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		if err := repo.UpdateEvent(ctx, event); err != nil {
			return err
		}
		if r, ok := rule.Get(); ok {
			if err := repo.StoreRecurrence(ctx, r); err != nil {
				return err
			}
		} else if err := repo.DeleteRecurrence(ctx, eventId); err != nil {
			return err
		}
		if hasReminder {
			return repo.StoreReminder(ctx, eventId, reminder)
		}
		return repo.DeleteReminder(ctx, eventId)
	})
	if err != nil {
		return EventDetails{}, fmt.Errorf("failed to update event: %w", err)
	}

	s.store.events[eventId] = event
	if r, ok := rule.Get(); ok {
		s.store.recurrences[eventId] = r
	} else {
		s.store.ClearRecurrence(eventId)
	}
	if hasReminder {
		s.store.SetReminderMinutes(eventId, reminder)
	} else {
		s.store.ClearReminder(eventId)
	}
	s.publish(ctx, event_bus.EventUpdated, eventId)

	return s.details(event), nil
}

func (s *Service) DeleteEvent(ctx context.Context, eventId int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.store.FindEvent(eventId); !ok {
		return fmt.Errorf("%w: %d", ErrEventNotFound, eventId)
	}
	if err := s.repo.DeleteEvent(ctx, eventId); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	s.store.DeleteEvent(eventId)
	s.publish(ctx, event_bus.EventDeleted, eventId)
	return nil
}

func (s *Service) GetEvent(ctx context.Context, eventId int) (EventDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.store.FindEvent(eventId)
	if !ok {
		return EventDetails{}, fmt.Errorf("%w: %d", ErrEventNotFound, eventId)
	}
	return s.details(event), nil
}

func (s *Service) ListEventDetails(ctx context.Context) ([]EventDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.store.ListEvents()
	result := make([]EventDetails, 0, len(events))
	for _, event := range events {
		result = append(result, s.details(event))
	}
	return result, nil
}

func (s *Service) OccurrencesBetween(ctx context.Context, from, to time.Time) (map[time.Time][]Occurrence, error) {
	if recurrence.DaysBetween(from, to) < 0 {
		return map[time.Time][]Occurrence{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.OccurrencesBetween(from, to), nil
}

// Search returns the occurrences within the filter window whose event matches every
// given criterion, ordered by start. Text criteria are case-insensitive substrings.
func (s *Service) Search(ctx context.Context, filter Filter) ([]Occurrence, error) {
	if recurrence.DaysBetween(filter.From, filter.To) < 0 {
		return []Occurrence{}, nil
	}
	title := strings.ToLower(strings.TrimSpace(filter.Title))
	description := strings.ToLower(strings.TrimSpace(filter.Description))

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Occurrence, 0)
	for _, occurrence := range Flatten(s.store.OccurrencesBetween(filter.From, filter.To)) {
		event, _ := s.store.FindEvent(occurrence.EventId)
		if title != "" && !strings.Contains(strings.ToLower(event.Title), title) {
			continue
		}
		if description != "" && !strings.Contains(strings.ToLower(event.Description), description) {
			continue
		}
		if filter.RecurringOnly && !s.store.FindRecurrence(event.Id).IsPresent() {
			continue
		}
		result = append(result, occurrence)
	}
	return result, nil
}

// CheckConflict reports the first conflict input would cause, ignoring ignoreId.
// Keeping the recurrence uses the current rule of ignoreId, if any.
func (s *Service) CheckConflict(ctx context.Context, ignoreId int, input EventInput) (Conflict, bool, error) {
	if err := input.validate(); err != nil {
		return Conflict{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, err := s.resolveRule(ignoreId, input.Recurrence)
	if err != nil {
		return Conflict{}, false, err
	}
	candidate := Event{
		Id:          ignoreId,
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
	}
	conflict, found := s.store.FindConflict(ignoreId, candidate, rule)
	return conflict, found, nil
}

func (s *Service) CountRecurrences(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store.recurrences), nil
}

func (s *Service) CountReminders(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ReminderCount(), nil
}

func (s *Service) Snapshot(ctx context.Context) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Snapshot()
}

// Restore writes snapshot to the repository and the store. With replace the calendar
// is cleared first, otherwise events, rules and reminders are upserted by event id.
func (s *Service) Restore(ctx context.Context, snapshot Snapshot, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateSnapshot(snapshot, replace); err != nil {
		return err
	}

	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		if replace {
			if err := repo.DeleteAll(ctx); err != nil {
				return err
			}
		}
		for _, event := range snapshot.Events {
			var err error
			if _, exists := s.store.FindEvent(event.Id); exists && !replace {
				err = repo.UpdateEvent(ctx, event)
			} else {
				err = repo.StoreEvent(ctx, event)
			}
			if err != nil {
				return err
			}
		}
		for _, rule := range snapshot.Rules {
			if err := repo.StoreRecurrence(ctx, rule); err != nil {
				return err
			}
		}
		for eventId, minutes := range snapshot.Reminders {
			if err := repo.StoreReminder(ctx, eventId, minutes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to restore calendar: %w", err)
	}

	if replace {
		s.store.Replace(snapshot)
	} else {
		for _, event := range snapshot.Events {
			s.store.put(event)
		}
		for _, rule := range snapshot.Rules {
			s.store.recurrences[rule.EventId] = rule
		}
		for eventId, minutes := range snapshot.Reminders {
			s.store.SetReminderMinutes(eventId, minutes)
		}
	}
	log.Infof("restored %d events (replace: %t)", len(snapshot.Events), replace)
	s.publish(ctx, event_bus.CalendarReset, 0)
	return nil
}

func (s *Service) validateSnapshot(snapshot Snapshot, replace bool) error {
	known := make(map[int]bool, len(snapshot.Events))
	for _, event := range snapshot.Events {
		if event.Id < 1 {
			return fmt.Errorf("%w: event id %d", ErrInvalidEvent, event.Id)
		}
		if event.EndTime.Before(event.StartTime) {
			return fmt.Errorf("%w: event %d ends before it starts", ErrInvalidEvent, event.Id)
		}
		known[event.Id] = true
	}
	exists := func(eventId int) bool {
		if known[eventId] {
			return true
		}
		_, ok := s.store.FindEvent(eventId)
		return ok && !replace
	}
	for _, rule := range snapshot.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("recurrence of event %d: %w", rule.EventId, err)
		}
		if !exists(rule.EventId) {
			return fmt.Errorf("%w: recurrence references event %d", ErrEventNotFound, rule.EventId)
		}
	}
	for eventId, minutes := range snapshot.Reminders {
		if minutes < 0 {
			return fmt.Errorf("%w: reminder of event %d is negative", ErrInvalidEvent, eventId)
		}
		if !exists(eventId) {
			return fmt.Errorf("%w: reminder references event %d", ErrEventNotFound, eventId)
		}
	}
	return nil
}

// resolveRule turns a change request into the rule the event will carry.
func (s *Service) resolveRule(eventId int, change RecurrenceChange) (recurrence.Optional, error) {
	switch change.Action {
	case RemoveRecurrence:
		return recurrence.None(), nil
	case SetRecurrence:
		rule, err := recurrence.Parse(eventId, change.Interval, change.Times, change.EndDate)
		if err != nil {
			return recurrence.None(), err
		}
		return recurrence.Some(rule), nil
	default:
		return s.store.FindRecurrence(eventId), nil
	}
}

func (s *Service) details(event Event) EventDetails {
	details := EventDetails{
		Event:      event,
		Recurrence: s.store.FindRecurrence(event.Id),
	}
	if minutes, ok := s.store.FindReminderMinutes(event.Id); ok {
		details.ReminderMinutes = &minutes
	}
	return details
}

func (s *Service) publish(ctx context.Context, kind event_bus.ChangeKind, eventId int) {
	if s.eventBus == nil {
		return
	}
	// The change is already persisted, so a failing subscriber does not fail the mutation.
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.CalendarChangedType, event_bus.CalendarChanged{
		Kind:    kind,
		EventId: eventId,
	}))
	if err != nil {
		log.Errorf("failed to publish calendar change: %v", err)
	}
}

func conflictError(conflict Conflict) error {
	return fmt.Errorf("%w: %q on %s overlaps %q on %s",
		ErrConflict,
		conflict.Candidate.Title, conflict.Candidate.StartTime.Format("2006-01-02 15:04"),
		conflict.Existing.Title, conflict.Existing.StartTime.Format("2006-01-02 15:04"))
}
