package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages resolver registration and lookup by variant.
type Registry struct {
	resolvers map[Variant]Resolver
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[Variant]Resolver),
	}
}

// Register adds a resolver. A resolver with the same variant is replaced.
func (r *Registry) Register(g Resolver) error {
	if g == nil {
		return fmt.Errorf("cannot register nil resolver")
	}
	if g.Variant() == "" {
		return fmt.Errorf("resolver variant cannot be empty")
	}
	if g.MaxRounds() < 1 {
		return fmt.Errorf("resolver %s: max rounds must be at least 1", g.Variant())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[g.Variant()] = g
	return nil
}

// Get retrieves a resolver by variant.
func (r *Registry) Get(v Variant) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.resolvers[v]
	return g, ok
}

// Variants returns all registered variants in sorted order.
func (r *Registry) Variants() []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	variants := make([]Variant, 0, len(r.resolvers))
	for v := range r.resolvers {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })
	return variants
}

// Count returns the number of registered resolvers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resolvers)
}
