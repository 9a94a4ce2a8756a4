package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// TickStorage implements the TickStorage interface for Badger
type TickStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTickStorage creates a new TickStorage instance
func NewTickStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TickStorage {
	return &TickStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRecord upserts a tick record keyed by its tick ID. The engine calls
// this twice per tick: the start marker and the completed record.
func (s *TickStorage) SaveRecord(ctx context.Context, record *models.TickRecord) error {
	if record == nil {
		return fmt.Errorf("tick record is required")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid tick record: %w", err)
	}

	if err := s.db.Store().Upsert(record.TickID, record); err != nil {
		return fmt.Errorf("failed to save tick record: %w", err)
	}
	return nil
}

// GetRecord returns one tick record by ID and whether it exists.
func (s *TickStorage) GetRecord(ctx context.Context, tickID string) (*models.TickRecord, bool, error) {
	var record models.TickRecord
	if err := s.db.Store().Get(tickID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get tick record: %w", err)
	}
	return &record, true, nil
}

// GetHistory returns up to limit tick records, most recent first.
func (s *TickStorage) GetHistory(ctx context.Context, limit int) ([]*models.TickRecord, error) {
	if limit <= 0 {
		return []*models.TickRecord{}, nil
	}

	query := badgerhold.Where("TickID").Ne("").SortBy("StartedAt").Reverse().Limit(limit)

	var records []models.TickRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query tick history: %w", err)
	}

	result := make([]*models.TickRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// CountRecords returns the number of persisted tick records.
func (s *TickStorage) CountRecords(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.TickRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count tick records: %w", err)
	}
	return int(count), nil
}

// Prune deletes everything but the most recent keepLast records and returns
// how many were removed. Used by scheduled history maintenance.
func (s *TickStorage) Prune(ctx context.Context, keepLast int) (int, error) {
	if keepLast < 0 {
		return 0, fmt.Errorf("keepLast must not be negative, got %d", keepLast)
	}

	query := badgerhold.Where("TickID").Ne("").SortBy("StartedAt").Reverse().Skip(keepLast)

	var victims []models.TickRecord
	if err := s.db.Store().Find(&victims, query); err != nil {
		return 0, fmt.Errorf("failed to query prunable tick records: %w", err)
	}

	for _, victim := range victims {
		if err := s.db.Store().Delete(victim.TickID, &models.TickRecord{}); err != nil {
			return 0, fmt.Errorf("failed to delete tick record %s: %w", victim.TickID, err)
		}
	}

	if len(victims) > 0 {
		s.logger.Debug().
			Int("removed", len(victims)).
			Int("kept", keepLast).
			Msg("Pruned tick history")
	}
	return len(victims), nil
}
