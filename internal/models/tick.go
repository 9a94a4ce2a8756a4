// -----------------------------------------------------------------------
// Tick Models - Records, results, and errors produced by the tick engine
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// TriggerType identifies what initiated a tick.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"    // Explicit caller request
	TriggerCatchup   TriggerType = "catchup"   // One iteration of a catchup run
	TriggerScheduled TriggerType = "scheduled" // Fired by the scheduler service
)

// TickStatus tracks the lifecycle of a persisted tick record.
type TickStatus string

const (
	TickStatusRunning   TickStatus = "running"
	TickStatusCompleted TickStatus = "completed"
	TickStatusFailed    TickStatus = "failed"
)

// TickOptions are caller-supplied options for a single tick. They are passed
// through unmodified to every processor.
type TickOptions struct {
	RequestedBy string `json:"requested_by,omitempty"` // Optional actor id for audit
	DryRun      bool   `json:"dry_run,omitempty"`      // Compute results without persisting mutations
	Force       bool   `json:"force,omitempty"`        // Processor-defined meaning, opaque to the engine
}

// TickError describes a single failure captured during a tick. Recoverable
// errors are per-entity failures a processor absorbed; non-recoverable errors
// mark the owning processor's result as failed.
type TickError struct {
	EntityID    string `json:"entity_id,omitempty"`   // Offending entity, if the error is entity-scoped
	EntityType  string `json:"entity_type,omitempty"` // Domain type of the entity
	Message     string `json:"message"`
	Stack       string `json:"stack,omitempty"` // Captured for panics only
	Recoverable bool   `json:"recoverable"`
}

// NewEntityError builds the recoverable per-entity error a processor records
// before moving on to the next entity.
func NewEntityError(entityID, entityType string, err error) TickError {
	return TickError{
		EntityID:    entityID,
		EntityType:  entityType,
		Message:     err.Error(),
		Recoverable: true,
	}
}

// NewFatalError builds the non-recoverable error attributed to a processor
// that timed out, returned a fatal error, or panicked.
func NewFatalError(message, stack string) TickError {
	return TickError{
		Message:     message,
		Stack:       stack,
		Recoverable: false,
	}
}

// ProcessorResult is the outcome one processor reports for one tick. Summary
// is processor-defined; the engine never interprets it.
type ProcessorResult struct {
	ProcessorName  string                 `json:"processor_name"`
	Success        bool                   `json:"success"`
	ItemsProcessed int                    `json:"items_processed"`
	DurationMs     int64                  `json:"duration_ms"`
	Summary        map[string]interface{} `json:"summary,omitempty"`
	Errors         []TickError            `json:"errors,omitempty"`
}

// NewFailedProcessorResult builds the synthetic result the engine records
// when a processor never produced one itself.
func NewFailedProcessorResult(name string, duration time.Duration, cause TickError) *ProcessorResult {
	return &ProcessorResult{
		ProcessorName: name,
		Success:       false,
		DurationMs:    duration.Milliseconds(),
		Errors:        []TickError{cause},
	}
}

// ErrorCount returns the number of errors recorded on the result.
func (r *ProcessorResult) ErrorCount() int {
	return len(r.Errors)
}

// Clone creates a deep copy of the processor result.
func (r *ProcessorResult) Clone() *ProcessorResult {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Summary != nil {
		clone.Summary = make(map[string]interface{}, len(r.Summary))
		for k, v := range r.Summary {
			clone.Summary[k] = v
		}
	}
	if r.Errors != nil {
		clone.Errors = make([]TickError, len(r.Errors))
		copy(clone.Errors, r.Errors)
	}
	return &clone
}

// TickResult is the aggregated outcome of one tick. Immutable once persisted;
// Success is true iff every processor result succeeded.
type TickResult struct {
	TickID              string            `json:"tick_id"`
	GameTime            GameTime          `json:"game_time"`
	StartedAt           time.Time         `json:"started_at"`
	CompletedAt         time.Time         `json:"completed_at"`
	DurationMs          int64             `json:"duration_ms"`
	Processors          []ProcessorResult `json:"processors"`
	TotalItemsProcessed int               `json:"total_items_processed"`
	TotalErrors         int               `json:"total_errors"`
	Success             bool              `json:"success"`
}

// Clone creates a deep copy of the tick result.
func (r *TickResult) Clone() *TickResult {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Processors != nil {
		clone.Processors = make([]ProcessorResult, len(r.Processors))
		for i := range r.Processors {
			clone.Processors[i] = *r.Processors[i].Clone()
		}
	}
	return &clone
}

// FailedProcessors returns the names of processors whose result failed.
func (r *TickResult) FailedProcessors() []string {
	var failed []string
	for _, pr := range r.Processors {
		if !pr.Success {
			failed = append(failed, pr.ProcessorName)
		}
	}
	return failed
}

// TickRecord is the persisted trail of one tick attempt. Created when the
// tick starts, completed (or failed) when it ends; owned exclusively by the
// orchestrator.
type TickRecord struct {
	TickID      string      `json:"tick_id"`
	GameTime    GameTime    `json:"game_time"` // The month this tick advanced to
	Trigger     TriggerType `json:"trigger"`
	RequestedBy string      `json:"requested_by,omitempty"`
	DryRun      bool        `json:"dry_run,omitempty"`
	Status      TickStatus  `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"` // Engine-level failure reason
	Result      *TickResult `json:"result,omitempty"`
}

// NewTickRecord creates the start marker persisted before processors run.
func NewTickRecord(tickID string, gameTime GameTime, trigger TriggerType, opts TickOptions) *TickRecord {
	return &TickRecord{
		TickID:      tickID,
		GameTime:    gameTime,
		Trigger:     trigger,
		RequestedBy: opts.RequestedBy,
		DryRun:      opts.DryRun,
		Status:      TickStatusRunning,
		StartedAt:   time.Now(),
	}
}

// Validate checks the fields required before the record is persisted.
func (r *TickRecord) Validate() error {
	if r.TickID == "" {
		return fmt.Errorf("tick ID is required")
	}
	if r.Trigger == "" {
		return fmt.Errorf("tick trigger is required")
	}
	if err := r.GameTime.Validate(); err != nil {
		return fmt.Errorf("invalid game time: %w", err)
	}
	return nil
}

// MarkCompleted attaches the final result and closes the record.
func (r *TickRecord) MarkCompleted(result *TickResult) {
	r.Status = TickStatusCompleted
	r.Result = result
	now := time.Now()
	r.CompletedAt = &now
}

// MarkFailed closes the record with an engine-level failure reason. Used when
// the tick never produced a result (validation gate, persistence failure).
func (r *TickRecord) MarkFailed(reason string) {
	r.Status = TickStatusFailed
	r.Error = reason
	now := time.Now()
	r.CompletedAt = &now
}

// IsTerminal returns true if the record is in a terminal state.
func (r *TickRecord) IsTerminal() bool {
	return r.Status == TickStatusCompleted || r.Status == TickStatusFailed
}

// Clone creates a deep copy of the tick record.
func (r *TickRecord) Clone() *TickRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		clone.CompletedAt = &completed
	}
	clone.Result = r.Result.Clone()
	return &clone
}
