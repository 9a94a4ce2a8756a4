package engine

import (
	"context"
	"fmt"

	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// CatchupResult reports how far a multi-month catchup run got.
type CatchupResult struct {
	Requested int                  `json:"requested"`
	Completed int                  `json:"completed"`
	Results   []*models.TickResult `json:"results"`
	Aborted   string               `json:"aborted,omitempty"`
}

// RunCatchupTicks runs months sequential ticks to bring a stale world back
// to the present. Ticks run strictly one at a time through the same
// single-flight path as manual ticks.
//
// An engine-level failure (lock, validation, persistence) stops the run and
// returns what completed so far alongside the error. A tick that completes
// with processor failures also stops the run unless ContinueOnError is set,
// but is not an error: the failure detail lives in its TickResult.
func (e *Engine) RunCatchupTicks(ctx context.Context, months int, opts models.TickOptions) (*CatchupResult, error) {
	if months <= 0 {
		return nil, fmt.Errorf("catchup months must be positive, got %d", months)
	}

	out := &CatchupResult{
		Requested: months,
		Results:   make([]*models.TickResult, 0, months),
	}

	pacer, hasPacer := e.caps.CatchupPacer()

	e.logger.Info().
		Int("months", months).
		Bool("dry_run", opts.DryRun).
		Bool("paced", hasPacer).
		Msg("Catchup run started")

	for i := 0; i < months; i++ {
		if hasPacer {
			if err := pacer.Wait(ctx); err != nil {
				out.Aborted = err.Error()
				return out, fmt.Errorf("catchup stopped after %d of %d ticks: %w", out.Completed, months, err)
			}
		}

		result, err := e.runTick(ctx, models.TriggerCatchup, opts)
		if err != nil {
			out.Aborted = err.Error()
			return out, fmt.Errorf("catchup stopped after %d of %d ticks: %w", out.Completed, months, err)
		}

		out.Results = append(out.Results, result)
		out.Completed++

		if !result.Success && !e.config.ContinueOnError {
			out.Aborted = fmt.Sprintf("tick %s completed with processor failures", result.TickID)
			e.logger.Warn().
				Str("tick_id", result.TickID).
				Int("completed", out.Completed).
				Int("requested", months).
				Msg("Catchup run stopped on failed tick")
			return out, nil
		}
	}

	e.logger.Info().
		Int("completed", out.Completed).
		Msg("Catchup run completed")

	return out, nil
}
