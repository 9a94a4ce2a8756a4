// -----------------------------------------------------------------------
// Processor Registry - Ordered collection of registered processors
// -----------------------------------------------------------------------

package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fame0528/TheSimGov-sub001/internal/interfaces"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// Registry holds the registered processors sorted ascending by priority.
// Ties keep insertion order. The registry owns ordering, not identity: a
// processor's name and priority come from the processor itself.
type Registry struct {
	mu         sync.RWMutex
	processors []interfaces.Processor
}

// NewRegistry creates an empty processor registry
func NewRegistry() *Registry {
	return &Registry{
		processors: make([]interfaces.Processor, 0),
	}
}

// Register adds a processor and re-sorts the list by priority. Registering a
// name that already exists fails and leaves the existing order untouched.
func (r *Registry) Register(p interfaces.Processor) error {
	if p == nil {
		return fmt.Errorf("processor is required")
	}
	if p.Name() == "" {
		return fmt.Errorf("processor name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.processors {
		if existing.Name() == p.Name() {
			return fmt.Errorf("processor %s already registered", p.Name())
		}
	}

	r.processors = append(r.processors, p)
	sort.SliceStable(r.processors, func(i, j int) bool {
		return r.processors[i].Priority() < r.processors[j].Priority()
	})
	return nil
}

// Unregister removes a processor by name and reports whether it was found.
// The ordering of the remaining entries is unaffected.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.processors {
		if p.Name() == name {
			r.processors = append(r.processors[:i], r.processors[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a defensive copy of the ordered processor list so callers
// iterating during a tick cannot observe concurrent registry mutation.
func (r *Registry) Snapshot() []interfaces.Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]interfaces.Processor, len(r.processors))
	copy(snapshot, r.processors)
	return snapshot
}

// Infos returns the public view of every registered processor, in execution
// order.
func (r *Registry) Infos() []models.ProcessorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.ProcessorInfo, len(r.processors))
	for i, p := range r.processors {
		infos[i] = models.ProcessorInfo{
			Name:     p.Name(),
			Priority: p.Priority(),
			Enabled:  p.Enabled(),
		}
	}
	return infos
}

// Len returns the number of registered processors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.processors)
}
