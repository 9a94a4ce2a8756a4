package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		// Extract common fields from payload if available
		var tickID, trigger, processor string
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["tick_id"].(string); ok {
				tickID = id
			}
			if tr, ok := payload["trigger"].(string); ok {
				trigger = tr
			}
			if p, ok := payload["processor"].(string); ok {
				processor = p
			}
		}

		// Log event with structured fields
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if tickID != "" {
			logEvent = logEvent.Str("tick_id", tickID)
		}
		if trigger != "" {
			logEvent = logEvent.Str("trigger", trigger)
		}
		if processor != "" {
			logEvent = logEvent.Str("processor", processor)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	// Subscribe to all event types
	eventTypes := []interfaces.EventType{
		interfaces.EventTickStarted,
		interfaces.EventTickCompleted,
		interfaces.EventTickFailed,
		interfaces.EventProcessorStarted,
		interfaces.EventProcessorCompleted,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
