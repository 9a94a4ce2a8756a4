package models

import (
	"testing"
	"time"
)

func TestEngineState_Clone(t *testing.T) {
	now := time.Now()
	original := &EngineState{
		LastTick:         &TickResult{TickID: "tick_1", Success: true},
		LastTickAt:       &now,
		TicksProcessed:   3,
		IsProcessing:     true,
		CurrentProcessor: "economy",
	}

	clone := original.Clone()
	clone.LastTick.Success = false
	*clone.LastTickAt = now.Add(time.Hour)
	clone.TicksProcessed = 99

	if !original.LastTick.Success {
		t.Error("Clone shares the last tick with the original")
	}
	if !original.LastTickAt.Equal(now) {
		t.Error("Clone shares the last tick time with the original")
	}
	if original.TicksProcessed != 3 {
		t.Error("Clone shares scalar fields with the original")
	}

	var nilState *EngineState
	if nilState.Clone() != nil {
		t.Error("Expected nil.Clone() to be nil")
	}
}

func TestEngineState_CloneEmpty(t *testing.T) {
	clone := (&EngineState{}).Clone()

	if clone.LastTick != nil || clone.LastTickAt != nil {
		t.Errorf("Expected empty clone, got %+v", clone)
	}
}
