package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klokku/planner/internal/event_bus"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type notified struct {
	eventId int
	start   time.Time
}

// Scheduler checks for due reminders on a cron schedule and whenever it is notified,
// publishing event_bus.ReminderDue at most once per occurrence.
type Scheduler struct {
	service  *Service
	eventBus *event_bus.EventBus
	schedule string

	mu       sync.Mutex
	notified map[notified]bool
	cron     *cron.Cron
	nudge    chan struct{}
	done     chan struct{}
	unsub    func()
}

func NewScheduler(service *Service, eventBus *event_bus.EventBus, schedule string) *Scheduler {
	return &Scheduler{
		service:  service,
		eventBus: eventBus,
		schedule: schedule,
		notified: make(map[notified]bool),
		nudge:    make(chan struct{}, 1),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Check(ctx) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	s.done = make(chan struct{})
	if s.eventBus != nil {
		s.unsub = event_bus.SubscribeTyped(s.eventBus, event_bus.CalendarChangedType,
			func(e event_bus.EventT[event_bus.CalendarChanged]) error {
				s.Notify()
				return nil
			})
	}

	go s.loop(ctx)
	c.Start()
	log.Infof("reminder scheduler started with schedule %q", s.schedule)

	// Startup check, so a reminder that is already due shows up right away.
	s.Notify()
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		select {
		case <-s.nudge:
			s.Check(ctx)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Notify asks for a check without blocking. Calendar changes are published while the
// calendar is locked, so the check itself runs on the scheduler goroutine.
func (s *Scheduler) Notify() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	if s.unsub != nil {
		s.unsub()
	}
	<-s.cron.Stop().Done()
	close(s.done)
	s.cron = nil
	log.Info("reminder scheduler stopped")
}

// Check publishes the next due reminder unless it was already published. It reports
// whether a reminder was published.
func (s *Scheduler) Check(ctx context.Context) bool {
	due, found, err := s.service.NextDue(ctx)
	if err != nil {
		log.Errorf("failed to check reminders: %v", err)
		return false
	}
	if !found {
		return false
	}

	key := notified{eventId: due.EventId, start: due.StartTime}
	s.mu.Lock()
	if s.notified[key] {
		s.mu.Unlock()
		return false
	}
	s.notified[key] = true
	for k := range s.notified {
		if k.start.Before(due.StartTime) {
			delete(s.notified, k)
		}
	}
	s.mu.Unlock()

	log.Info(due.Message())
	if s.eventBus == nil {
		return true
	}
	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.ReminderDueType, event_bus.ReminderDue{
		EventId:       due.EventId,
		Title:         due.Title,
		StartTime:     due.StartTime,
		MinutesBefore: due.MinutesBefore,
		MinutesLeft:   due.MinutesLeft,
		Message:       due.Message(),
	}))
	if err != nil {
		log.Errorf("failed to publish reminder for event %d: %v", due.EventId, err)
	}
	return true
}
