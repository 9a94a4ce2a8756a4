// -----------------------------------------------------------------------
// Capability Set - Explicit registry of optional engine collaborators
// -----------------------------------------------------------------------

package engine

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
)

// Capability names the engine knows how to use.
const (
	// CapabilityEvents holds an interfaces.EventService. When present the
	// engine publishes tick lifecycle events to it.
	CapabilityEvents = "events"

	// CapabilityCatchupPacer holds a *rate.Limiter. When present, catchup
	// runs wait on it before each iteration.
	CapabilityCatchupPacer = "catchup_pacer"
)

// CapabilitySet is an explicit map of optional collaborators. A missing
// capability is a checked branch for the engine, never an implicit nil.
type CapabilitySet struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

// NewCapabilitySet creates an empty capability set
func NewCapabilitySet() *CapabilitySet {
	return &CapabilitySet{
		entries: make(map[string]interface{}),
	}
}

// Register stores a capability under the given name, replacing any previous
// value.
func (c *CapabilitySet) Register(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = value
}

// Has reports whether a capability is registered.
func (c *CapabilitySet) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, found := c.entries[name]
	return found
}

// Get returns the capability value and whether it was found.
func (c *CapabilitySet) Get(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, found := c.entries[name]
	return value, found
}

// Events returns the event service capability if one is registered with the
// right type.
func (c *CapabilitySet) Events() (interfaces.EventService, bool) {
	value, found := c.Get(CapabilityEvents)
	if !found {
		return nil, false
	}
	events, ok := value.(interfaces.EventService)
	return events, ok
}

// CatchupPacer returns the catchup rate limiter capability if one is
// registered with the right type.
func (c *CapabilitySet) CatchupPacer() (*rate.Limiter, bool) {
	value, found := c.Get(CapabilityCatchupPacer)
	if !found {
		return nil, false
	}
	limiter, ok := value.(*rate.Limiter)
	return limiter, ok
}
