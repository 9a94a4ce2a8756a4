// -----------------------------------------------------------------------
// Processor Contract - Implemented by every domain unit driven by a tick
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// Processor is the contract between the tick engine and one domain unit
// (financial settlement, production, sales, churn, demographics, ...).
// The engine consumes this interface; domain packages implement it.
//
// Rules for implementers:
//   - Mutate only your own domain's entities. Priority order encodes the
//     inter-domain dependency chain, so cross-domain writes break ordering
//     assumptions for everyone downstream.
//   - Honor opts.DryRun: compute and return the same result shape without
//     persisting any mutation.
//   - Catch per-entity failures internally, record them with
//     models.NewEntityError, and continue with the next entity. One bad
//     record must never abort the whole batch.
//   - Always return a ProcessorResult, even under partial failure. Return a
//     non-nil error only for genuinely fatal, non-recoverable conditions.
//   - The context carries the tick deadline. Honoring it is cooperative:
//     the engine records a timeout and moves on without waiting, so work
//     that ignores the context may still complete in the background.
type Processor interface {
	// Name returns the unique processor name used for registration,
	// ordering diagnostics, and result attribution.
	Name() string

	// Priority determines execution position within a tick. Lower runs
	// earlier.
	Priority() int

	// Enabled reports whether the processor should run. Disabled
	// processors are skipped, not failed.
	Enabled() bool

	// Validate is the pre-tick health gate. Return nil when ready; any
	// error aborts the whole tick before a single Process call runs.
	Validate(ctx context.Context) error

	// Process runs one simulated month of domain work for gameTime.
	Process(ctx context.Context, gameTime models.GameTime, opts models.TickOptions) (*models.ProcessorResult, error)
}
