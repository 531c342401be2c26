package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	LoadAll(ctx context.Context) (Snapshot, error)
	StoreEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	// DeleteEvent removes the event together with its rule and reminder.
	DeleteEvent(ctx context.Context, eventId int) error
	StoreRecurrence(ctx context.Context, rule recurrence.Rule) error
	DeleteRecurrence(ctx context.Context, eventId int) error
	StoreReminder(ctx context.Context, eventId int, minutes int) error
	DeleteReminder(ctx context.Context, eventId int) error
	DeleteAll(ctx context.Context) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &RepositoryImpl{db: r.db, tx: tx}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) LoadAll(ctx context.Context) (Snapshot, error) {
	events, err := r.loadEvents(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	rules, err := r.loadRules(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	reminders, err := r.loadReminders(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Events: events, Rules: rules, Reminders: reminders}, nil
}

func (r *RepositoryImpl) loadEvents(ctx context.Context) ([]Event, error) {
	query := `SELECT id, title, description, start_time, end_time FROM calendar_event ORDER BY start_time, id`
	rows, err := r.getQueryer().Query(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.Id, &event.Title, &event.Description, &event.StartTime, &event.EndTime); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *RepositoryImpl) loadRules(ctx context.Context) ([]recurrence.Rule, error) {
	query := `SELECT event_id, interval_count, unit, times, end_date FROM recurrence_rule ORDER BY event_id`
	rows, err := r.getQueryer().Query(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query recurrence rules: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	rules := make([]recurrence.Rule, 0, 10)
	for rows.Next() {
		var rule recurrence.Rule
		var unitCode string
		var endDate *time.Time
		if err := rows.Scan(&rule.EventId, &rule.IntervalCount, &unitCode, &rule.Times, &endDate); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		rule.Unit, err = recurrence.UnitFromCode(unitCode)
		if err != nil {
			return nil, fmt.Errorf("recurrence rule of event %d: %w", rule.EventId, err)
		}
		if endDate != nil {
			rule.EndDate = *endDate
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *RepositoryImpl) loadReminders(ctx context.Context) (map[int]int, error) {
	query := `SELECT event_id, minutes_before FROM reminder`
	rows, err := r.getQueryer().Query(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query reminders: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	reminders := make(map[int]int)
	for rows.Next() {
		var eventId, minutes int
		if err := rows.Scan(&eventId, &minutes); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		reminders[eventId] = minutes
	}
	return reminders, rows.Err()
}

func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) error {
	query := `INSERT INTO calendar_event (id, title, description, start_time, end_time)
			  VALUES ($1, $2, $3, $4, $5)`
	_, err := r.getQueryer().Exec(ctx, query, event.Id, event.Title, event.Description, event.StartTime, event.EndTime)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, event Event) error {
	query := `UPDATE calendar_event SET title = $1, description = $2, start_time = $3, end_time = $4 WHERE id = $5`
	tag, err := r.getQueryer().Exec(ctx, query, event.Title, event.Description, event.StartTime, event.EndTime, event.Id)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrEventNotFound, event.Id)
	}
	return nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, eventId int) error {
	query := `DELETE FROM calendar_event WHERE id = $1`
	_, err := r.getQueryer().Exec(ctx, query, eventId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) StoreRecurrence(ctx context.Context, rule recurrence.Rule) error {
	query := `INSERT INTO recurrence_rule (event_id, interval_count, unit, times, end_date)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (event_id) DO UPDATE SET
			      interval_count = EXCLUDED.interval_count,
			      unit = EXCLUDED.unit,
			      times = EXCLUDED.times,
			      end_date = EXCLUDED.end_date`
	var endDate *time.Time
	if rule.HasEndDate() {
		endDate = &rule.EndDate
	}
	_, err := r.getQueryer().Exec(ctx, query, rule.EventId, rule.IntervalCount, rule.Unit.Code(), rule.Times, endDate)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteRecurrence(ctx context.Context, eventId int) error {
	_, err := r.getQueryer().Exec(ctx, `DELETE FROM recurrence_rule WHERE event_id = $1`, eventId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) StoreReminder(ctx context.Context, eventId int, minutes int) error {
	query := `INSERT INTO reminder (event_id, minutes_before) VALUES ($1, $2)
			  ON CONFLICT (event_id) DO UPDATE SET minutes_before = EXCLUDED.minutes_before`
	_, err := r.getQueryer().Exec(ctx, query, eventId, minutes)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteReminder(ctx context.Context, eventId int) error {
	_, err := r.getQueryer().Exec(ctx, `DELETE FROM reminder WHERE event_id = $1`, eventId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteAll(ctx context.Context) error {
	// rules and reminders cascade
	_, err := r.getQueryer().Exec(ctx, `DELETE FROM calendar_event`)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	return nil
}
