package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/fame0528/TheSimGov-sub001/internal/gameclock"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// stubProcessor is a scriptable processor shared by the tests in this
// package. Zero value behavior: enabled, healthy, returns one processed item.
type stubProcessor struct {
	name     string
	priority int
	disabled bool

	validateErr error
	processErr  error
	failOnCall  int // When > 0, processErr applies only to that call number
	returnNil   bool
	panicValue  interface{}
	result      *models.ProcessorResult
	delay       time.Duration
	block       chan struct{} // When set, Process waits until closed

	mu            sync.Mutex
	gameTimes     []models.GameTime
	lastOpts      models.TickOptions
	validateCalls int
	sawDeadline   bool
	finished      int // Process returns, including after abandonment
}

func newStubProcessor(name string, priority int) *stubProcessor {
	return &stubProcessor{name: name, priority: priority}
}

func (s *stubProcessor) Name() string  { return s.name }
func (s *stubProcessor) Priority() int { return s.priority }
func (s *stubProcessor) Enabled() bool { return !s.disabled }

func (s *stubProcessor) Validate(ctx context.Context) error {
	s.mu.Lock()
	s.validateCalls++
	s.mu.Unlock()
	return s.validateErr
}

func (s *stubProcessor) Process(ctx context.Context, gameTime models.GameTime, opts models.TickOptions) (*models.ProcessorResult, error) {
	s.mu.Lock()
	s.gameTimes = append(s.gameTimes, gameTime)
	call := len(s.gameTimes)
	s.lastOpts = opts
	if _, ok := ctx.Deadline(); ok {
		s.sawDeadline = true
	}
	s.mu.Unlock()

	if s.block != nil {
		<-s.block
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panicValue != nil {
		panic(s.panicValue)
	}

	defer func() {
		s.mu.Lock()
		s.finished++
		s.mu.Unlock()
	}()

	if s.processErr != nil && (s.failOnCall == 0 || s.failOnCall == call) {
		return nil, s.processErr
	}
	if s.returnNil {
		return nil, nil
	}
	if s.result != nil {
		return s.result, nil
	}
	return &models.ProcessorResult{
		ProcessorName:  s.name,
		Success:        true,
		ItemsProcessed: 1,
		Summary:        map[string]interface{}{"processed": 1},
	}, nil
}

func (s *stubProcessor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gameTimes)
}

func (s *stubProcessor) finishedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *stubProcessor) seenGameTimes() []models.GameTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.GameTime, len(s.gameTimes))
	copy(out, s.gameTimes)
	return out
}

func (s *stubProcessor) seenDeadline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawDeadline
}

func (s *stubProcessor) seenOpts() models.TickOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOpts
}

// memoryClockStore is an in-memory ClockStorage.
type memoryClockStore struct {
	mu      sync.Mutex
	current models.GameTime
	has     bool
	getErr  error
	saveErr error
	saves   int
}

func newMemoryClockStore() *memoryClockStore {
	return &memoryClockStore{}
}

func (m *memoryClockStore) Get(ctx context.Context) (models.GameTime, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.GameTime{}, false, m.getErr
	}
	return m.current, m.has, nil
}

func (m *memoryClockStore) Save(ctx context.Context, t models.GameTime) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.current = t
	m.has = true
	m.saves++
	return nil
}

func (m *memoryClockStore) stored() (models.GameTime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.has
}

func (m *memoryClockStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// memoryTickStorage is an in-memory TickStorage. Saves can be scripted to
// fail from the Nth call onward via failFrom (1-based, 0 disables).
type memoryTickStorage struct {
	mu       sync.Mutex
	records  map[string]*models.TickRecord
	order    []string
	saves    int
	failFrom int
	saveErr  error
}

func newMemoryTickStorage() *memoryTickStorage {
	return &memoryTickStorage{records: make(map[string]*models.TickRecord)}
}

func (m *memoryTickStorage) SaveRecord(ctx context.Context, record *models.TickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failFrom > 0 && m.saves >= m.failFrom {
		return m.saveErr
	}
	if _, ok := m.records[record.TickID]; !ok {
		m.order = append(m.order, record.TickID)
	}
	m.records[record.TickID] = record.Clone()
	return nil
}

func (m *memoryTickStorage) GetRecord(ctx context.Context, tickID string) (*models.TickRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[tickID]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *memoryTickStorage) GetHistory(ctx context.Context, limit int) ([]*models.TickRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.TickRecord, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[m.order[i]].Clone())
	}
	return out, nil
}

func (m *memoryTickStorage) CountRecords(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order), nil
}

func (m *memoryTickStorage) Prune(ctx context.Context, keepLast int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) <= keepLast {
		return 0, nil
	}
	drop := m.order[:len(m.order)-keepLast]
	for _, id := range drop {
		delete(m.records, id)
	}
	m.order = m.order[len(m.order)-keepLast:]
	return len(drop), nil
}

func (m *memoryTickStorage) recordByID(tickID string) *models.TickRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[tickID]
	if !ok {
		return nil
	}
	return record.Clone()
}

// testEnv bundles an engine with its scriptable collaborators.
type testEnv struct {
	engine     *Engine
	clockStore *memoryClockStore
	tickStore  *memoryTickStorage
	caps       *CapabilitySet
}

func newTestEngine(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	clockStore := newMemoryClockStore()
	tickStore := newMemoryTickStorage()
	caps := NewCapabilitySet()
	logger := arbor.NewLogger()

	eng, err := New(cfg, gameclock.NewService(clockStore, logger), tickStore, caps, logger)
	require.NoError(t, err)

	return &testEnv{
		engine:     eng,
		clockStore: clockStore,
		tickStore:  tickStore,
		caps:       caps,
	}
}
