package interfaces

import (
	"context"

	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// TickStorage - interface for tick history persistence
type TickStorage interface {
	// SaveRecord inserts or updates a tick record keyed by tick ID
	SaveRecord(ctx context.Context, record *models.TickRecord) error

	// GetRecord returns a tick record by ID; found is false when no record
	// exists under that ID
	GetRecord(ctx context.Context, tickID string) (record *models.TickRecord, found bool, err error)

	// GetHistory returns up to limit records, most recent first
	GetHistory(ctx context.Context, limit int) ([]*models.TickRecord, error)

	// CountRecords returns the total number of persisted tick records
	CountRecords(ctx context.Context) (int, error)

	// Prune deletes all but the most recent keepLast records
	Prune(ctx context.Context, keepLast int) (int, error)
}

// ClockStorage - interface for the persisted simulated time singleton
type ClockStorage interface {
	// Get returns the persisted game time; found is false for a fresh world
	Get(ctx context.Context) (t models.GameTime, found bool, err error)

	// Save persists the game time
	Save(ctx context.Context, t models.GameTime) error
}
