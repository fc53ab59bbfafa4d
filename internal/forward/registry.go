package forward

import (
	"fmt"
	"sync"
)

// Registry holds the configured forwarders in registration order.
// Safe for concurrent reads; Register should only run at startup.
type Registry struct {
	mu         sync.RWMutex
	forwarders []Forwarder
	byName     map[string]Forwarder
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Forwarder)}
}

// Register adds a forwarder. Panics on a duplicate name to surface
// misconfiguration early.
func (r *Registry) Register(f Forwarder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[f.Name()]; exists {
		panic(fmt.Sprintf("forward registry: duplicate vendor %q", f.Name()))
	}
	r.byName[f.Name()] = f
	r.forwarders = append(r.forwarders, f)
}

// All returns the registered forwarders in registration order.
func (r *Registry) All() []Forwarder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Forwarder, len(r.forwarders))
	copy(out, r.forwarders)
	return out
}
