package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

func TestRunCatchupTicks_AdvancesRequestedMonths(t *testing.T) {
	proc := newStubProcessor("economy", 10)
	env := newTestEngine(t, Config{Processors: []interfaces.Processor{proc}})

	out, err := env.engine.RunCatchupTicks(context.Background(), 5, models.TickOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, out.Requested)
	assert.Equal(t, 5, out.Completed)
	require.Len(t, out.Results, 5)
	assert.Empty(t, out.Aborted)

	stored, has := env.clockStore.stored()
	require.True(t, has)
	assert.Equal(t, models.GameTime{Year: 1, Month: 6, TotalMonths: 6}, stored)
}

func TestRunCatchupTicks_StopsOnFailedTick(t *testing.T) {
	proc := newStubProcessor("economy", 10)
	proc.processErr = errors.New("settlement exploded")
	proc.failOnCall = 3
	env := newTestEngine(t, Config{Processors: []interfaces.Processor{proc}})

	out, err := env.engine.RunCatchupTicks(context.Background(), 5, models.TickOptions{})
	require.NoError(t, err)

	// The failed third tick is included; the remaining two never ran.
	assert.Equal(t, 3, out.Completed)
	require.Len(t, out.Results, 3)
	assert.True(t, out.Results[0].Success)
	assert.True(t, out.Results[1].Success)
	assert.False(t, out.Results[2].Success)
	assert.NotEmpty(t, out.Aborted)
	assert.Equal(t, 3, proc.callCount())

	// Every completed tick moved the month, the failed one included.
	stored, _ := env.clockStore.stored()
	assert.Equal(t, models.GameTime{Year: 1, Month: 4, TotalMonths: 4}, stored)
}

func TestRunCatchupTicks_ContinueOnErrorRunsAll(t *testing.T) {
	proc := newStubProcessor("economy", 10)
	proc.processErr = errors.New("settlement exploded")
	proc.failOnCall = 3
	env := newTestEngine(t, Config{
		Processors:      []interfaces.Processor{proc},
		ContinueOnError: true,
	})

	out, err := env.engine.RunCatchupTicks(context.Background(), 5, models.TickOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, out.Completed)
	require.Len(t, out.Results, 5)
	assert.False(t, out.Results[2].Success)
	assert.True(t, out.Results[4].Success)
}

func TestRunCatchupTicks_EngineErrorAborts(t *testing.T) {
	proc := newStubProcessor("economy", 10)
	proc.validateErr = errors.New("backing store unreachable")
	env := newTestEngine(t, Config{Processors: []interfaces.Processor{proc}})

	out, err := env.engine.RunCatchupTicks(context.Background(), 4, models.TickOptions{})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, 0, out.Completed)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Aborted)
}

func TestRunCatchupTicks_RejectsNonPositiveCount(t *testing.T) {
	env := newTestEngine(t, Config{Processors: []interfaces.Processor{newStubProcessor("economy", 10)}})

	_, err := env.engine.RunCatchupTicks(context.Background(), 0, models.TickOptions{})
	require.Error(t, err)
	_, err = env.engine.RunCatchupTicks(context.Background(), -3, models.TickOptions{})
	require.Error(t, err)
}

func TestRunCatchupTicks_HonorsPacerCapability(t *testing.T) {
	proc := newStubProcessor("economy", 10)
	env := newTestEngine(t, Config{Processors: []interfaces.Processor{proc}})
	env.caps.Register(CapabilityCatchupPacer, rate.NewLimiter(rate.Every(20*time.Millisecond), 1))

	started := time.Now()
	out, err := env.engine.RunCatchupTicks(context.Background(), 3, models.TickOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Completed)
	// Two paced waits after the initial burst token.
	assert.GreaterOrEqual(t, time.Since(started), 40*time.Millisecond)
}

func TestRunCatchupTicks_PacerStopsOnCancelledContext(t *testing.T) {
	proc := newStubProcessor("economy", 10)
	env := newTestEngine(t, Config{Processors: []interfaces.Processor{proc}})
	env.caps.Register(CapabilityCatchupPacer, rate.NewLimiter(rate.Every(time.Hour), 1))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out, err := env.engine.RunCatchupTicks(ctx, 3, models.TickOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, out.Completed)
}
