// -----------------------------------------------------------------------
// Base Processor - Common scaffolding for tick processors
// -----------------------------------------------------------------------

package processors

import (
	"context"

	"github.com/ternarybob/arbor"
)

// Base carries the identity every processor needs: name, execution priority,
// and the enabled flag. Embed it in a processor struct and implement
// Process; Validate defaults to healthy and is overridden by processors
// with a backing store to check.
type Base struct {
	name     string
	priority int
	enabled  bool
	logger   arbor.ILogger
}

// NewBase creates processor scaffolding. The processor starts enabled.
func NewBase(name string, priority int, logger arbor.ILogger) Base {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return Base{
		name:     name,
		priority: priority,
		enabled:  true,
		logger:   logger,
	}
}

// Name returns the unique processor name.
func (b *Base) Name() string {
	return b.name
}

// Priority returns the execution position within a tick, ascending first.
func (b *Base) Priority() int {
	return b.priority
}

// Enabled reports whether the processor participates in ticks.
func (b *Base) Enabled() bool {
	return b.enabled
}

// SetEnabled toggles tick participation. Call only between ticks.
func (b *Base) SetEnabled(enabled bool) {
	b.enabled = enabled
}

// Validate reports the processor healthy. Override when there is
// infrastructure worth checking before a tick runs.
func (b *Base) Validate(ctx context.Context) error {
	return nil
}

// Logger returns the processor's logger.
func (b *Base) Logger() arbor.ILogger {
	return b.logger
}
