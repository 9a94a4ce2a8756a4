package models

import "time"

// EngineState is the in-memory state of one engine instance. Mutated only by
// the orchestrator; external callers receive defensive copies.
type EngineState struct {
	LastTick         *TickResult `json:"last_tick,omitempty"`
	LastTickAt       *time.Time  `json:"last_tick_at,omitempty"`
	TicksProcessed   int         `json:"ticks_processed"`
	IsProcessing     bool        `json:"is_processing"`
	CurrentProcessor string      `json:"current_processor,omitempty"`
}

// Clone creates a deep copy so callers cannot mutate live engine state.
func (s *EngineState) Clone() *EngineState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.LastTick = s.LastTick.Clone()
	if s.LastTickAt != nil {
		at := *s.LastTickAt
		clone.LastTickAt = &at
	}
	return &clone
}

// ProcessorInfo is the registry's public view of one registered processor.
type ProcessorInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}
