package calendar

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/planner/internal/test_utils"
	"github.com/klokku/planner/pkg/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	dbOnce      sync.Once
	pgContainer *postgres.PostgresContainer
	openDb      func() (*pgxpool.Pool, error)
	dbErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()
	test_utils.Terminate(pgContainer)
	os.Exit(code)
}

// setupTestRepository starts the shared container on first use and restores the
// migrated snapshot after each test.
func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl) {
	t.Helper()
	dbOnce.Do(func() {
		pgContainer, openDb, dbErr = test_utils.TestWithDB()
	})
	if dbErr != nil {
		t.Skipf("postgres container not available: %v", dbErr)
	}

	ctx := context.Background()
	db, err := openDb()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, NewRepository(db)
}

func TestRepositoryImpl_StoreAndLoad(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	standup := Event{Id: 1, Title: "Standup", Description: "daily", StartTime: at(2024, 1, 1, 9, 0), EndTime: at(2024, 1, 1, 9, 15)}
	review := Event{Id: 2, Title: "Review", StartTime: at(2024, 1, 3, 14, 0), EndTime: at(2024, 1, 3, 15, 0)}
	daily := recurrence.Rule{EventId: 1, IntervalCount: 1, Unit: recurrence.Day, Times: 5}
	monthly := recurrence.Rule{EventId: 2, IntervalCount: 1, Unit: recurrence.Month, EndDate: day(2024, 6, 30)}

	// when
	err := repo.WithTransaction(ctx, func(repo Repository) error {
		require.NoError(t, repo.StoreEvent(ctx, review))
		require.NoError(t, repo.StoreEvent(ctx, standup))
		require.NoError(t, repo.StoreRecurrence(ctx, daily))
		require.NoError(t, repo.StoreRecurrence(ctx, monthly))
		return repo.StoreReminder(ctx, 1, 10)
	})
	require.NoError(t, err)
	snapshot, err := repo.LoadAll(ctx)

	// then
	require.NoError(t, err)
	assert.Equal(t, []Event{standup, review}, snapshot.Events)
	assert.Equal(t, []recurrence.Rule{daily, monthly}, snapshot.Rules)
	assert.Equal(t, map[int]int{1: 10}, snapshot.Reminders)
}

func TestRepositoryImpl_Upserts(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	event := Event{Id: 4, Title: "Gym", StartTime: at(2024, 2, 1, 18, 0), EndTime: at(2024, 2, 1, 19, 0)}
	require.NoError(t, repo.StoreEvent(ctx, event))
	require.NoError(t, repo.StoreRecurrence(ctx, recurrence.Rule{EventId: 4, IntervalCount: 1, Unit: recurrence.Week, Times: 3}))
	require.NoError(t, repo.StoreReminder(ctx, 4, 5))

	// when
	updatedRule := recurrence.Rule{EventId: 4, IntervalCount: 2, Unit: recurrence.Day, EndDate: day(2024, 3, 1)}
	require.NoError(t, repo.StoreRecurrence(ctx, updatedRule))
	require.NoError(t, repo.StoreReminder(ctx, 4, 30))
	event.Title = "Gym (legs)"
	require.NoError(t, repo.UpdateEvent(ctx, event))

	// then
	snapshot, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Event{event}, snapshot.Events)
	assert.Equal(t, []recurrence.Rule{updatedRule}, snapshot.Rules)
	assert.Equal(t, map[int]int{4: 30}, snapshot.Reminders)
}

func TestRepositoryImpl_UpdateMissingEvent(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	err := repo.UpdateEvent(ctx, Event{Id: 99, Title: "Ghost", StartTime: at(2024, 1, 1, 9, 0), EndTime: at(2024, 1, 1, 10, 0)})

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepositoryImpl_DeleteCascades(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	require.NoError(t, repo.StoreEvent(ctx, Event{Id: 1, Title: "A", StartTime: at(2024, 1, 1, 9, 0), EndTime: at(2024, 1, 1, 10, 0)}))
	require.NoError(t, repo.StoreEvent(ctx, Event{Id: 2, Title: "B", StartTime: at(2024, 1, 2, 9, 0), EndTime: at(2024, 1, 2, 10, 0)}))
	require.NoError(t, repo.StoreRecurrence(ctx, recurrence.Rule{EventId: 1, IntervalCount: 1, Unit: recurrence.Day, Times: 2}))
	require.NoError(t, repo.StoreReminder(ctx, 1, 15))
	require.NoError(t, repo.StoreReminder(ctx, 2, 15))

	// when
	require.NoError(t, repo.DeleteEvent(ctx, 1))

	// then
	snapshot, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Events, 1)
	assert.Equal(t, 2, snapshot.Events[0].Id)
	assert.Empty(t, snapshot.Rules)
	assert.Equal(t, map[int]int{2: 15}, snapshot.Reminders)

	// and when everything is removed
	require.NoError(t, repo.DeleteAll(ctx))
	snapshot, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Events)
	assert.Empty(t, snapshot.Reminders)
}

func TestRepositoryImpl_TransactionRollback(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	failure := errors.New("boom")

	err := repo.WithTransaction(ctx, func(repo Repository) error {
		require.NoError(t, repo.StoreEvent(ctx, Event{Id: 1, Title: "A", StartTime: at(2024, 1, 1, 9, 0), EndTime: at(2024, 1, 1, 10, 0)}))
		return failure
	})

	assert.ErrorIs(t, err, failure)
	snapshot, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Events)
}

func TestRepositoryImpl_RejectsRuleWithoutEvent(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	err := repo.StoreRecurrence(ctx, recurrence.Rule{EventId: 42, IntervalCount: 1, Unit: recurrence.Day, Times: 1})

	assert.Error(t, err)
}
