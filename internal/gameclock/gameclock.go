// -----------------------------------------------------------------------
// Game Clock - Reads and advances the persisted simulated time
// -----------------------------------------------------------------------

package gameclock

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// Advance computes the next simulated month. Pure transform: month rolls
// 12 -> 1 with a year increment, and the running total always moves by one.
func Advance(current models.GameTime) models.GameTime {
	next := models.GameTime{
		Year:        current.Year,
		Month:       current.Month + 1,
		TotalMonths: current.TotalMonths + 1,
	}
	if next.Month > models.MonthsPerYear {
		next.Month = 1
		next.Year++
	}
	return next
}

// Service reads and writes the persisted simulated time. It is the sole
// source of truth for "what time is it in the simulation".
type Service struct {
	storage interfaces.ClockStorage
	logger  arbor.ILogger
}

// NewService creates a new game clock service
func NewService(storage interfaces.ClockStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// GetCurrentGameTime returns the latest persisted game time, or the epoch
// default for a world with no persisted clock. No side effects.
func (s *Service) GetCurrentGameTime(ctx context.Context) (models.GameTime, error) {
	current, found, err := s.storage.Get(ctx)
	if err != nil {
		return models.GameTime{}, fmt.Errorf("failed to read game time: %w", err)
	}
	if !found {
		s.logger.Debug().Msg("No persisted game time, using epoch")
		return models.EpochGameTime(), nil
	}
	if err := current.Validate(); err != nil {
		return models.GameTime{}, fmt.Errorf("persisted game time is corrupt: %w", err)
	}
	return current, nil
}

// Save persists the given game time after validating it.
func (s *Service) Save(ctx context.Context, t models.GameTime) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid game time: %w", err)
	}
	if err := s.storage.Save(ctx, t); err != nil {
		return fmt.Errorf("failed to persist game time: %w", err)
	}
	s.logger.Debug().
		Int("year", t.Year).
		Int("month", t.Month).
		Int("total_months", t.TotalMonths).
		Msg("Game time persisted")
	return nil
}
