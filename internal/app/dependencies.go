package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/planner/internal/config"
	"github.com/klokku/planner/internal/event_bus"
	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/backup"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/ical"
	"github.com/klokku/planner/pkg/reminder"
	"github.com/klokku/planner/pkg/stats"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	CalendarRepository *calendar.RepositoryImpl
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler
	IcalHandler        *ical.Handler

	StatsService     *stats.StatsServiceImpl
	CsvStatsRenderer *stats.CsvStatsRendererImpl
	StatsHandler     *stats.StatsHandler

	ReminderService   *reminder.Service
	ReminderScheduler *reminder.Scheduler
	ReminderHandler   *reminder.Handler

	BackupService *backup.Service
	BackupHandler *backup.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	repository := calendar.NewRepository(db)
	deps := buildDependencies(repository, &utils.SystemClock{}, cfg)
	deps.CalendarRepository = repository
	return deps
}

func buildDependencies(repository calendar.Repository, clock utils.Clock, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = clock
	deps.EventBus = event_bus.NewEventBus()

	deps.CalendarService = calendar.NewService(repository, deps.EventBus)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)
	deps.IcalHandler = ical.NewHandler(deps.CalendarService, deps.Clock)

	deps.StatsService = stats.NewStatsServiceImpl(deps.CalendarService, deps.Clock)
	deps.CsvStatsRenderer = stats.NewCsvStatsRenderer()
	deps.StatsHandler = stats.NewStatsHandler(deps.StatsService, deps.CsvStatsRenderer, cfg.Stats.Days)

	deps.ReminderService = reminder.NewService(deps.CalendarService, deps.Clock, cfg.Reminder.HorizonDays)
	deps.ReminderScheduler = reminder.NewScheduler(deps.ReminderService, deps.EventBus, cfg.Reminder.Cron)
	deps.ReminderHandler = reminder.NewHandler(deps.ReminderService)

	deps.BackupService = backup.NewService(deps.CalendarService, deps.Clock, cfg.Backup.Dir)
	deps.BackupHandler = backup.NewHandler(deps.BackupService)

	return deps
}
