// memregistry.go - an in-memory AlertRegistry for standalone/demo runs of
// the notifier, where no external alert source (Alertmanager, a database)
// is wired up. Grounded on internal/bridge/manager.go's uuid.New()-backed
// ID generation for synthesizing opaque IDs.

package alerts

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRegistry is a thread-safe, process-local AlertRegistry. Callers
// mutate alert state directly (Set) instead of receiving it from a
// remote source; it exists for local testing and demo deployments of the
// notifier, not for production alert ingestion.
type MemoryRegistry struct {
	mu     sync.RWMutex
	states map[string]AlertState
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{states: make(map[string]AlertState)}
}

// NewAlertID generates an opaque alert identifier for demo alerts that
// have no natural external ID.
func NewAlertID() string {
	return uuid.New().String()
}

// Set records the current state for alertID, creating it if absent.
func (r *MemoryRegistry) Set(alertID string, state AlertState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[alertID] = state
}

// GetState implements AlertRegistry.
func (r *MemoryRegistry) GetState(_ context.Context, alertID string) (AlertState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[alertID]
	if !ok {
		return 0, ErrAlertNotFound
	}
	return state, nil
}
