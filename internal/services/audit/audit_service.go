// -----------------------------------------------------------------------
// Tick Audit Trail - JSONL record of every completed or failed tick
// -----------------------------------------------------------------------

package audit

import (
	"context"
	"fmt"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"

	"github.com/fame0528/TheSimGov-sub001/internal/common"
	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
)

// Service appends one JSON line per tick outcome to a rotating audit file.
// The audit file is separate from service logs so operators can ship it to
// long-term storage independently.
type Service struct {
	audit  log.Logger
	writer *log.FileWriter
	logger arbor.ILogger
}

// NewService creates an audit service writing to the configured path
func NewService(cfg *common.AuditConfig, logger arbor.ILogger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("audit config cannot be nil")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit path cannot be empty")
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}

	writer := &log.FileWriter{
		Filename:     cfg.Path,
		MaxSize:      int64(cfg.MaxSizeMB) * 1024 * 1024,
		MaxBackups:   cfg.MaxBackups,
		EnsureFolder: true,
	}

	return &Service{
		audit: log.Logger{
			Level:  log.InfoLevel,
			Writer: writer,
		},
		writer: writer,
		logger: logger,
	}, nil
}

// Attach subscribes the audit trail to tick outcome events
func (s *Service) Attach(events interfaces.EventService) error {
	for _, eventType := range []interfaces.EventType{
		interfaces.EventTickCompleted,
		interfaces.EventTickFailed,
	} {
		if err := events.Subscribe(eventType, s.handleEvent); err != nil {
			return fmt.Errorf("failed to subscribe audit trail to %s: %w", eventType, err)
		}
	}

	s.logger.Info().Msg("Audit trail attached to tick events")
	return nil
}

// handleEvent writes one audit line for a tick outcome event
func (s *Service) handleEvent(ctx context.Context, event interfaces.Event) error {
	entry := s.audit.Info().Str("event", string(event.Type))

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		entry.Msg("tick")
		return nil
	}

	for _, key := range []string{"tick_id", "trigger", "reason"} {
		if v, ok := payload[key].(string); ok && v != "" {
			entry = entry.Str(key, v)
		}
	}
	for _, key := range []string{"year", "month", "total_months", "items", "errors"} {
		if v, ok := payload[key].(int); ok {
			entry = entry.Int(key, v)
		}
	}
	if v, ok := payload["duration_ms"].(int64); ok {
		entry = entry.Int64("duration_ms", v)
	}
	for _, key := range []string{"success", "dry_run"} {
		if v, ok := payload[key].(bool); ok {
			entry = entry.Bool(key, v)
		}
	}

	entry.Msg("tick")
	return nil
}

// Rotate forces a rotation of the audit file
func (s *Service) Rotate() error {
	return s.writer.Rotate()
}

// Close flushes and closes the audit file
func (s *Service) Close() error {
	return s.writer.Close()
}
