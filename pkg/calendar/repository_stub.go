package calendar

import (
	"context"
	"sync"

	"github.com/klokku/planner/pkg/recurrence"
)

type RepositoryStub struct {
	mu        sync.Mutex
	events    map[int]Event
	rules     map[int]recurrence.Rule
	reminders map[int]int
	// Err, when set, is returned by every write.
	Err error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		events:    make(map[int]Event),
		rules:     make(map[int]recurrence.Rule),
		reminders: make(map[int]int),
	}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	// Create a copy of the current state for rollback
	original := r.snapshot()
	r.mu.Unlock()

	err := fn(r)
	if err != nil {
		r.mu.Lock()
		r.restore(original)
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) LoadAll(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events[event.Id] = event
	return nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.events[event.Id]; !ok {
		return ErrEventNotFound
	}
	r.events[event.Id] = event
	return nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, eventId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.events, eventId)
	delete(r.rules, eventId)
	delete(r.reminders, eventId)
	return nil
}

func (r *RepositoryStub) StoreRecurrence(ctx context.Context, rule recurrence.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.rules[rule.EventId] = rule
	return nil
}

func (r *RepositoryStub) DeleteRecurrence(ctx context.Context, eventId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.rules, eventId)
	return nil
}

func (r *RepositoryStub) StoreReminder(ctx context.Context, eventId int, minutes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.reminders[eventId] = minutes
	return nil
}

func (r *RepositoryStub) DeleteReminder(ctx context.Context, eventId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.reminders, eventId)
	return nil
}

func (r *RepositoryStub) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.restore(Snapshot{})
	return nil
}

func (r *RepositoryStub) snapshot() Snapshot {
	snapshot := Snapshot{Reminders: make(map[int]int, len(r.reminders))}
	for _, event := range r.events {
		snapshot.Events = append(snapshot.Events, event)
	}
	for _, rule := range r.rules {
		snapshot.Rules = append(snapshot.Rules, rule)
	}
	for eventId, minutes := range r.reminders {
		snapshot.Reminders[eventId] = minutes
	}
	return snapshot
}

func (r *RepositoryStub) restore(snapshot Snapshot) {
	r.events = make(map[int]Event)
	r.rules = make(map[int]recurrence.Rule)
	r.reminders = make(map[int]int)
	for _, event := range snapshot.Events {
		r.events[event.Id] = event
	}
	for _, rule := range snapshot.Rules {
		r.rules[rule.EventId] = rule
	}
	for eventId, minutes := range snapshot.Reminders {
		r.reminders[eventId] = minutes
	}
}
