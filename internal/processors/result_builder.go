package processors

import (
	"time"

	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// ResultBuilder accumulates one processor run: processed item count,
// recoverable per-entity errors, and the processor-defined summary. It keeps
// the entity-isolation loop in Process down to bookkeeping calls.
//
// Not safe for concurrent use; a processor runs its batch sequentially.
type ResultBuilder struct {
	name      string
	startedAt time.Time
	items     int
	failed    bool
	errors    []models.TickError
	summary   map[string]interface{}
}

// NewResultBuilder starts a result for the named processor. The duration
// clock starts here.
func NewResultBuilder(name string) *ResultBuilder {
	return &ResultBuilder{
		name:      name,
		startedAt: time.Now(),
		summary:   make(map[string]interface{}),
	}
}

// ItemProcessed counts one successfully handled entity.
func (rb *ResultBuilder) ItemProcessed() {
	rb.items++
}

// ItemsProcessed counts n successfully handled entities at once.
func (rb *ResultBuilder) ItemsProcessed(n int) {
	rb.items += n
}

// EntityError records a recoverable failure for one entity. The batch is
// expected to continue with the next entity.
func (rb *ResultBuilder) EntityError(entityID, entityType string, err error) {
	rb.errors = append(rb.errors, models.NewEntityError(entityID, entityType, err))
}

// Fail marks the whole run unsuccessful while still returning a result.
func (rb *ResultBuilder) Fail() {
	rb.failed = true
}

// Set stores a summary field. The engine never interprets these; downstream
// consumers decode their own domain's summary.
func (rb *ResultBuilder) Set(key string, value interface{}) {
	rb.summary[key] = value
}

// ErrorCount returns the number of entity errors recorded so far.
func (rb *ResultBuilder) ErrorCount() int {
	return len(rb.errors)
}

// Result finalizes the run. Entity errors alone do not fail the result;
// only an explicit Fail does.
func (rb *ResultBuilder) Result() *models.ProcessorResult {
	return &models.ProcessorResult{
		ProcessorName:  rb.name,
		Success:        !rb.failed,
		ItemsProcessed: rb.items,
		DurationMs:     time.Since(rb.startedAt).Milliseconds(),
		Summary:        rb.summary,
		Errors:         rb.errors,
	}
}
