// -----------------------------------------------------------------------
// Application Wiring - Builds the engine and its services from config
// -----------------------------------------------------------------------

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/fame0528/TheSimGov-sub001/internal/common"
	"github.com/fame0528/TheSimGov-sub001/internal/engine"
	"github.com/fame0528/TheSimGov-sub001/internal/gameclock"
	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/services/audit"
	"github.com/fame0528/TheSimGov-sub001/internal/services/events"
	"github.com/fame0528/TheSimGov-sub001/internal/services/scheduler"
	"github.com/fame0528/TheSimGov-sub001/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB          *badger.BadgerDB
	TickStorage interfaces.TickStorage

	// Simulated clock
	ClockService *gameclock.Service

	// Event-driven services
	EventService interfaces.EventService
	AuditService *audit.Service

	// The tick engine
	Engine *engine.Engine

	// Cron-driven ticks and history maintenance
	SchedulerService *scheduler.Service
}

// New initializes the application with all dependencies. Processors passed
// here are registered with the engine in the given order.
func New(cfg *common.Config, logger arbor.ILogger, processors ...interfaces.Processor) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = common.GetLogger()
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(processors); err != nil {
		app.closeStorage()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Int("processors", len(processors)).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.TickStorage = badger.NewTickStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all services in dependency order
func (a *App) initServices(processors []interfaces.Processor) error {
	// Simulated clock, backed by the shared badger store
	clockStorage := badger.NewClockStorage(a.DB, a.Logger)
	a.ClockService = gameclock.NewService(clockStorage, a.Logger)

	// Event bus
	a.EventService = events.NewService(a.Logger)
	if a.Config.Engine.Verbose {
		if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
			return fmt.Errorf("failed to subscribe event logger: %w", err)
		}
	}

	// Capabilities consumed by the engine when present
	caps := engine.NewCapabilitySet()
	caps.Register(engine.CapabilityEvents, a.EventService)
	if a.Config.Catchup.PaceEvery != "" {
		pace, err := time.ParseDuration(a.Config.Catchup.PaceEvery)
		if err != nil {
			return fmt.Errorf("invalid catchup pace: %w", err)
		}
		caps.Register(engine.CapabilityCatchupPacer, rate.NewLimiter(rate.Every(pace), 1))
		a.Logger.Debug().Str("pace", pace.String()).Msg("Catchup pacer registered")
	}

	// The engine itself
	eng, err := engine.New(engine.Config{
		Processors:      processors,
		ContinueOnError: a.Config.Engine.ContinueOnError,
		TimeoutMs:       a.Config.Engine.TimeoutMs,
		Verbose:         a.Config.Engine.Verbose,
	}, a.ClockService, a.TickStorage, caps, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	a.Engine = eng

	// Audit trail
	if a.Config.Audit.Enabled {
		auditService, err := audit.NewService(&a.Config.Audit, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create audit service: %w", err)
		}
		if err := auditService.Attach(a.EventService); err != nil {
			return fmt.Errorf("failed to attach audit service: %w", err)
		}
		a.AuditService = auditService
	}

	// Scheduler
	if a.Config.Scheduler.Enabled {
		if err := a.initScheduler(); err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
	}

	return nil
}

// initScheduler registers the tick and maintenance entries and starts cron
func (a *App) initScheduler() error {
	sched := scheduler.NewService(a.Logger)

	err := sched.RegisterJob(
		scheduler.JobTick,
		a.Config.Scheduler.TickSchedule,
		"advances the simulation by one month",
		a.runScheduledTick,
	)
	if err != nil {
		return err
	}

	if a.Config.Scheduler.MaintenanceSchedule != "" {
		err := sched.RegisterJob(
			scheduler.JobMaintenance,
			a.Config.Scheduler.MaintenanceSchedule,
			"prunes tick history and runs value-log GC",
			a.runMaintenance,
		)
		if err != nil {
			return err
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}

	a.SchedulerService = sched
	return nil
}

// runScheduledTick is the cron handler for the tick entry. A tick already
// in flight is a skip, not a failure.
func (a *App) runScheduledTick() error {
	_, err := a.Engine.RunScheduledTick(context.Background())
	if errors.Is(err, engine.ErrTickInProgress) {
		a.Logger.Warn().Msg("Tick already in flight, skipping scheduled run")
		return nil
	}
	return err
}

// runMaintenance is the cron handler for the maintenance entry
func (a *App) runMaintenance() error {
	ctx := context.Background()

	if keep := a.Config.History.KeepLast; keep > 0 {
		removed, err := a.TickStorage.Prune(ctx, keep)
		if err != nil {
			return fmt.Errorf("history prune failed: %w", err)
		}
		if removed > 0 {
			a.Logger.Info().
				Int("removed", removed).
				Int("keep_last", keep).
				Msg("Tick history pruned")
		}
	}

	if err := a.DB.RunValueLogGC(0.5); err != nil {
		return fmt.Errorf("value log GC failed: %w", err)
	}

	return nil
}

func (a *App) closeStorage() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}

// Close closes all application resources in reverse initialization order
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.Engine != nil {
		if err := a.Engine.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close engine")
		}
	}

	if a.AuditService != nil {
		if err := a.AuditService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close audit service")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
