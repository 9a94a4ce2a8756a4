// -----------------------------------------------------------------------
// Tick Engine - Orchestrates one simulated month end-to-end
// -----------------------------------------------------------------------

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/fame0528/TheSimGov-sub001/internal/common"
	"github.com/fame0528/TheSimGov-sub001/internal/gameclock"
	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

var (
	// ErrTickInProgress is returned when RunTick is called while another
	// tick is in flight. The caller must re-invoke later; there is no queue.
	ErrTickInProgress = errors.New("tick already in progress")

	// ErrValidationFailed is returned when a processor's pre-tick health
	// check fails. No processor work ran and simulated time did not move.
	ErrValidationFailed = errors.New("processor validation failed")

	// ErrEngineClosed is returned for any tick attempted after Close.
	ErrEngineClosed = errors.New("engine is closed")
)

// DefaultProcessorTimeoutMs bounds a single processor invocation when the
// configuration does not say otherwise.
const DefaultProcessorTimeoutMs = 30000

// Config is the construction-time engine configuration. Processors can be
// changed afterwards only through RegisterProcessor/UnregisterProcessor.
type Config struct {
	Processors      []interfaces.Processor
	ContinueOnError bool // Keep executing later processors after a failure
	TimeoutMs       int  // Per-processor timeout in milliseconds
	Verbose         bool // Per-processor progress logging
}

// Engine drives ticks for one logical simulated world: single-flight lock,
// time advance, validation gate, sequential execution with timeout and panic
// containment, aggregation, persistence, state update.
//
// One Engine instance owns one world. The lock is an in-process flag; running
// two processes against the same store needs an external lock this engine
// does not provide.
type Engine struct {
	config   Config
	timeout  time.Duration
	registry *Registry
	clock    *gameclock.Service
	history  interfaces.TickStorage
	caps     *CapabilitySet
	logger   arbor.ILogger

	mu     sync.Mutex // Protects state and closed
	state  models.EngineState
	closed bool
}

// New creates an engine from injected configuration and collaborators.
// Registration failures (duplicate processor names) surface here.
func New(cfg Config, clock *gameclock.Service, history interfaces.TickStorage, caps *CapabilitySet, logger arbor.ILogger) (*Engine, error) {
	if clock == nil {
		return nil, fmt.Errorf("game clock is required")
	}
	if history == nil {
		return nil, fmt.Errorf("tick storage is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if caps == nil {
		caps = NewCapabilitySet()
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = DefaultProcessorTimeoutMs
	}

	e := &Engine{
		config:   cfg,
		timeout:  time.Duration(cfg.TimeoutMs) * time.Millisecond,
		registry: NewRegistry(),
		clock:    clock,
		history:  history,
		caps:     caps,
		logger:   logger,
	}

	for _, p := range cfg.Processors {
		if err := e.registry.Register(p); err != nil {
			return nil, fmt.Errorf("failed to register processor: %w", err)
		}
	}

	return e, nil
}

// RunTick advances the simulation by one month on behalf of an explicit
// caller. Returns the aggregated result, or an error for engine-level
// failures (already running, validation gate, persistence).
func (e *Engine) RunTick(ctx context.Context, opts models.TickOptions) (*models.TickResult, error) {
	return e.runTick(ctx, models.TriggerManual, opts)
}

// RunScheduledTick is the entry point used by the scheduler service.
func (e *Engine) RunScheduledTick(ctx context.Context) (*models.TickResult, error) {
	return e.runTick(ctx, models.TriggerScheduled, models.TickOptions{RequestedBy: "scheduler"})
}

func (e *Engine) runTick(ctx context.Context, trigger models.TriggerType, opts models.TickOptions) (*models.TickResult, error) {
	// Locking: fail immediately when a tick is in flight. No queueing.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if e.state.IsProcessing {
		e.mu.Unlock()
		return nil, ErrTickInProgress
	}
	e.state.IsProcessing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.state.IsProcessing = false
		e.state.CurrentProcessor = ""
		e.mu.Unlock()
	}()

	tickID := common.NewTickID()
	tickLogger := e.logger.WithCorrelationId(tickID)

	// TimeAdvance: compute the next month and persist the start marker.
	// The clock itself is not persisted until the tick completes.
	current, err := e.clock.GetCurrentGameTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("time advance failed: %w", err)
	}
	next := gameclock.Advance(current)

	tickLogger.Info().
		Str("tick_id", tickID).
		Str("trigger", string(trigger)).
		Int("year", next.Year).
		Int("month", next.Month).
		Int("total_months", next.TotalMonths).
		Bool("dry_run", opts.DryRun).
		Msg("Tick started")

	record := models.NewTickRecord(tickID, next, trigger, opts)
	if err := e.history.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist tick start marker: %w", err)
	}

	e.publishEvent(ctx, interfaces.EventTickStarted, map[string]interface{}{
		"tick_id":      tickID,
		"trigger":      string(trigger),
		"year":         next.Year,
		"month":        next.Month,
		"total_months": next.TotalMonths,
		"dry_run":      opts.DryRun,
	})

	snapshot := e.registry.Snapshot()

	// Validating: every enabled processor must report healthy before any
	// Process call runs, so a dead backing store cannot cause a half-mutated
	// month.
	if err := e.validateProcessors(ctx, snapshot, tickLogger); err != nil {
		record.MarkFailed(err.Error())
		if saveErr := e.history.SaveRecord(ctx, record); saveErr != nil {
			tickLogger.Warn().Err(saveErr).Msg("Failed to persist rejected tick record")
		}
		e.publishEvent(ctx, interfaces.EventTickFailed, map[string]interface{}{
			"tick_id": tickID,
			"reason":  err.Error(),
		})
		return nil, err
	}

	// Executing and Aggregating.
	processorResults := e.executeProcessors(ctx, snapshot, next, opts, tickLogger)
	result := aggregateResults(tickID, next, record.StartedAt, processorResults)

	// Persisting: complete the record exactly once, then move the clock.
	// Dry runs keep the clock where it was so the same month can be
	// previewed again.
	record.MarkCompleted(result)
	if err := e.history.SaveRecord(ctx, record); err != nil {
		e.publishEvent(ctx, interfaces.EventTickFailed, map[string]interface{}{
			"tick_id": tickID,
			"reason":  err.Error(),
		})
		return nil, fmt.Errorf("failed to persist tick result: %w", err)
	}
	if !opts.DryRun {
		if err := e.clock.Save(ctx, next); err != nil {
			e.publishEvent(ctx, interfaces.EventTickFailed, map[string]interface{}{
				"tick_id": tickID,
				"reason":  err.Error(),
			})
			return nil, err
		}
	}

	e.mu.Lock()
	e.state.LastTick = result
	completedAt := result.CompletedAt
	e.state.LastTickAt = &completedAt
	e.state.TicksProcessed++
	e.mu.Unlock()

	e.publishEvent(ctx, interfaces.EventTickCompleted, map[string]interface{}{
		"tick_id":      tickID,
		"trigger":      string(trigger),
		"year":         next.Year,
		"month":        next.Month,
		"total_months": next.TotalMonths,
		"duration_ms":  result.DurationMs,
		"items":        result.TotalItemsProcessed,
		"errors":       result.TotalErrors,
		"success":      result.Success,
		"dry_run":      opts.DryRun,
	})

	tickLogger.Info().
		Str("tick_id", tickID).
		Bool("success", result.Success).
		Int("processors", len(result.Processors)).
		Int("items", result.TotalItemsProcessed).
		Int("errors", result.TotalErrors).
		Int64("duration_ms", result.DurationMs).
		Msg("Tick completed")

	return result, nil
}

// validateProcessors runs the pre-tick health gate over every enabled
// processor in execution order. The first failure aborts the tick.
func (e *Engine) validateProcessors(ctx context.Context, snapshot []interfaces.Processor, tickLogger arbor.ILogger) error {
	for _, p := range snapshot {
		if !p.Enabled() {
			continue
		}
		if err := safeValidate(ctx, p); err != nil {
			tickLogger.Error().
				Err(err).
				Str("processor", p.Name()).
				Msg("Processor validation failed, tick aborted")
			return fmt.Errorf("%w: %s: %v", ErrValidationFailed, p.Name(), err)
		}
	}
	return nil
}

// safeValidate keeps a panicking health check contained to a rejected tick
// instead of taking the process down.
func safeValidate(ctx context.Context, p interfaces.Processor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validate panicked: %v", r)
		}
	}()
	return p.Validate(ctx)
}

// executeProcessors runs the snapshot in ascending priority order, skipping
// disabled processors. A failed result stops the iteration unless
// ContinueOnError is set.
func (e *Engine) executeProcessors(ctx context.Context, snapshot []interfaces.Processor, gameTime models.GameTime, opts models.TickOptions, tickLogger arbor.ILogger) []models.ProcessorResult {
	results := make([]models.ProcessorResult, 0, len(snapshot))

	for _, p := range snapshot {
		if !p.Enabled() {
			if e.config.Verbose {
				tickLogger.Debug().Str("processor", p.Name()).Msg("Processor disabled, skipping")
			}
			continue
		}

		e.setCurrentProcessor(p.Name())
		if e.config.Verbose {
			tickLogger.Info().
				Str("processor", p.Name()).
				Int("priority", p.Priority()).
				Msg("Processor started")
		}
		e.publishEvent(ctx, interfaces.EventProcessorStarted, map[string]interface{}{
			"processor": p.Name(),
			"priority":  p.Priority(),
		})

		outcome := invokeProcessor(ctx, p, gameTime, opts, e.timeout)
		result := outcome.toResult(p.Name(), e.timeout)
		results = append(results, *result)

		switch outcome.kind {
		case outcomeOk:
			if e.config.Verbose {
				tickLogger.Info().
					Str("processor", p.Name()).
					Bool("success", result.Success).
					Int("items", result.ItemsProcessed).
					Int("errors", result.ErrorCount()).
					Int64("duration_ms", result.DurationMs).
					Msg("Processor completed")
			}
		case outcomeTimedOut:
			tickLogger.Error().
				Str("processor", p.Name()).
				Int("timeout_ms", e.config.TimeoutMs).
				Msg("Processor timed out, abandoning its goroutine")
		case outcomePanicked:
			tickLogger.Error().
				Str("processor", p.Name()).
				Str("panic", fmt.Sprintf("%v", outcome.panicValue)).
				Msg("Processor panicked")
		case outcomeErrored:
			tickLogger.Error().
				Err(outcome.err).
				Str("processor", p.Name()).
				Msg("Processor failed")
		}

		e.publishEvent(ctx, interfaces.EventProcessorCompleted, map[string]interface{}{
			"processor":   p.Name(),
			"success":     result.Success,
			"items":       result.ItemsProcessed,
			"errors":      result.ErrorCount(),
			"duration_ms": result.DurationMs,
		})

		if !result.Success && !e.config.ContinueOnError {
			tickLogger.Warn().
				Str("processor", p.Name()).
				Msg("Stopping tick after failed processor")
			break
		}
	}

	e.setCurrentProcessor("")
	return results
}

// aggregateResults folds processor results into the tick-level totals.
func aggregateResults(tickID string, gameTime models.GameTime, startedAt time.Time, processorResults []models.ProcessorResult) *models.TickResult {
	completedAt := time.Now()
	result := &models.TickResult{
		TickID:      tickID,
		GameTime:    gameTime,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		Processors:  processorResults,
		Success:     true,
	}
	for _, pr := range processorResults {
		result.TotalItemsProcessed += pr.ItemsProcessed
		result.TotalErrors += len(pr.Errors)
		if !pr.Success {
			result.Success = false
		}
	}
	return result
}

// RegisterProcessor adds a processor between ticks. Not safe while a tick is
// in flight; callers own that discipline.
func (e *Engine) RegisterProcessor(p interfaces.Processor) error {
	return e.registry.Register(p)
}

// UnregisterProcessor removes a processor by name between ticks, reporting
// whether it was registered.
func (e *Engine) UnregisterProcessor(name string) bool {
	return e.registry.Unregister(name)
}

// GetCurrentGameTime returns the persisted simulated time.
func (e *Engine) GetCurrentGameTime(ctx context.Context) (models.GameTime, error) {
	return e.clock.GetCurrentGameTime(ctx)
}

// GetState returns a defensive copy of the engine state.
func (e *Engine) GetState() *models.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// GetProcessors returns the registered processors in execution order.
func (e *Engine) GetProcessors() []models.ProcessorInfo {
	return e.registry.Infos()
}

// GetHistory returns up to limit persisted tick records, most recent first.
func (e *Engine) GetHistory(ctx context.Context, limit int) ([]*models.TickRecord, error) {
	return e.history.GetHistory(ctx, limit)
}

// Close disposes the engine. Further ticks are rejected; injected stores stay
// open because their owner closes them.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *Engine) setCurrentProcessor(name string) {
	e.mu.Lock()
	e.state.CurrentProcessor = name
	e.mu.Unlock()
}

// publishEvent sends a tick lifecycle event when the events capability is
// registered. A missing capability is a normal, checked skip.
func (e *Engine) publishEvent(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	events, ok := e.caps.Events()
	if !ok {
		return
	}
	if err := events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		e.logger.Warn().
			Err(err).
			Str("event_type", string(eventType)).
			Msg("Failed to publish tick event")
	}
}
