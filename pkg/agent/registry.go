package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the loaded agent definitions. It is safe for concurrent
// use; Replace swaps the whole set atomically on config reload.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates a registry from the given definitions.
func NewRegistry(agents []*Agent) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(agents); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace swaps the registered agents for a new set.
func (r *Registry) Replace(agents []*Agent) error {
	byID := make(map[string]*Agent, len(agents))
	for _, a := range agents {
		if a.ID == "" {
			return fmt.Errorf("agent with empty ID")
		}
		if _, exists := byID[a.ID]; exists {
			return fmt.Errorf("duplicate agent ID: %s", a.ID)
		}
		byID[a.ID] = a
	}

	r.mu.Lock()
	r.agents = byID
	r.mu.Unlock()
	return nil
}

// Get returns the agent with the given ID.
func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// List returns all agents sorted by ID.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Names returns all agent IDs sorted.
func (r *Registry) Names() []string {
	agents := r.List()
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.ID
	}
	return names
}
