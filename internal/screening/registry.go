package screening

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownStrategy is returned for names not in the registry
var ErrUnknownStrategy = errors.New("unknown strategy")

// Registry holds named strategies. Presets are registered first; later
// registrations with the same name replace them in place.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]*Strategy
	order      []string
}

// NewRegistry creates a registry seeded with Presets()
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]*Strategy)}
	for _, s := range Presets() {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy
func (r *Registry) Register(s *Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[s.Name()]; !exists {
		r.order = append(r.order, s.Name())
	}
	r.strategies[s.Name()] = s
}

// Get returns a strategy by name
func (r *Registry) Get(name string) (*Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return s, nil
}

// List returns strategies in registration order
func (r *Registry) List() []*Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Strategy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.strategies[name])
	}
	return out
}
