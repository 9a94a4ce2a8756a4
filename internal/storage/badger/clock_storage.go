package badger

import (
	"context"
	"encoding/json"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// clockKey is the fixed key holding the current simulated time. A single
// world per database, so a single key.
const clockKey = "gameclock:current"

// ClockStorage persists the game clock as a JSON value at a fixed key,
// using raw badger transactions on the shared connection.
type ClockStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewClockStorage creates a new ClockStorage instance
func NewClockStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ClockStorage {
	return &ClockStorage{
		db:     db,
		logger: logger,
	}
}

// Get reads the persisted simulated time. found is false when no clock has
// ever been saved, which callers treat as the epoch.
func (s *ClockStorage) Get(ctx context.Context) (models.GameTime, bool, error) {
	var gameTime models.GameTime
	found := false

	err := s.db.DB().View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(clockKey))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &gameTime); err != nil {
				return fmt.Errorf("failed to decode game time: %w", err)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return models.GameTime{}, false, fmt.Errorf("failed to read game clock: %w", err)
	}
	return gameTime, found, nil
}

// Save writes the simulated time, replacing any previous value.
func (s *ClockStorage) Save(ctx context.Context, gameTime models.GameTime) error {
	data, err := json.Marshal(gameTime)
	if err != nil {
		return fmt.Errorf("failed to encode game time: %w", err)
	}

	err = s.db.DB().Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(clockKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write game clock: %w", err)
	}
	return nil
}
