// -----------------------------------------------------------------------
// Processor Outcome - Tagged result of one processor invocation
// -----------------------------------------------------------------------

package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

type outcomeKind int

const (
	outcomeOk outcomeKind = iota
	outcomeErrored
	outcomeTimedOut
	outcomePanicked
)

// processorOutcome is the tagged result of invoking one processor: completed
// with a result, returned a fatal error, lost the timeout race, or panicked.
// Aggregation is a pure switch over the kind.
type processorOutcome struct {
	kind       outcomeKind
	result     *models.ProcessorResult // outcomeOk
	err        error                   // outcomeErrored
	panicValue interface{}             // outcomePanicked
	stack      string                  // outcomePanicked
	duration   time.Duration
}

type processReturn struct {
	result     *models.ProcessorResult
	err        error
	panicValue interface{}
	stack      string
}

// invokeProcessor runs one processor under a timeout race. The processor
// receives a context carrying the deadline, so well-behaved implementations
// can exit early, but the engine never waits for the loser: when the timer
// fires first the goroutine is abandoned and may still complete its work and
// write data afterwards. Panics are caught and tagged, never re-raised.
func invokeProcessor(ctx context.Context, p interfaces.Processor, gameTime models.GameTime, opts models.TickOptions, timeout time.Duration) processorOutcome {
	procCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned goroutine can deliver its late return and
	// exit instead of leaking on a blocked send.
	done := make(chan processReturn, 1)
	started := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- processReturn{panicValue: r, stack: string(debug.Stack())}
			}
		}()
		result, err := p.Process(procCtx, gameTime, opts)
		done <- processReturn{result: result, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ret := <-done:
		duration := time.Since(started)
		switch {
		case ret.panicValue != nil:
			return processorOutcome{kind: outcomePanicked, panicValue: ret.panicValue, stack: ret.stack, duration: duration}
		case ret.err != nil:
			return processorOutcome{kind: outcomeErrored, err: ret.err, duration: duration}
		case ret.result == nil:
			// Contract violation: a processor must always return a result.
			return processorOutcome{
				kind:     outcomeErrored,
				err:      fmt.Errorf("processor returned no result"),
				duration: duration,
			}
		default:
			return processorOutcome{kind: outcomeOk, result: ret.result, duration: duration}
		}
	case <-timer.C:
		return processorOutcome{kind: outcomeTimedOut, duration: time.Since(started)}
	}
}

// toResult converts a tagged outcome into the ProcessorResult recorded on
// the tick. Ok outcomes pass through as-is, with attribution and duration
// backfilled when the processor left them empty.
func (o processorOutcome) toResult(name string, timeout time.Duration) *models.ProcessorResult {
	switch o.kind {
	case outcomeOk:
		if o.result.ProcessorName == "" {
			o.result.ProcessorName = name
		}
		if o.result.DurationMs == 0 {
			o.result.DurationMs = o.duration.Milliseconds()
		}
		return o.result
	case outcomeTimedOut:
		cause := models.NewFatalError(fmt.Sprintf("timed out after %dms", timeout.Milliseconds()), "")
		return models.NewFailedProcessorResult(name, o.duration, cause)
	case outcomePanicked:
		cause := models.NewFatalError(fmt.Sprintf("panic: %v", o.panicValue), o.stack)
		return models.NewFailedProcessorResult(name, o.duration, cause)
	default:
		cause := models.NewFatalError(o.err.Error(), "")
		return models.NewFailedProcessorResult(name, o.duration, cause)
	}
}
