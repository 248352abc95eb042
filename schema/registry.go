package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/syssam/criteria"
)

// Registry maps record types to their table and column metadata. It is
// constructed explicitly and passed to every component that resolves
// paths, so tests can use isolated registries.
type Registry struct {
	mu       sync.RWMutex
	provider Provider
	entities map[reflect.Type]*Entity
}

// Option configures a Registry.
type Option func(*Registry)

// WithProvider sets the metadata provider. The default is TagProvider{}.
func WithProvider(p Provider) Option {
	return func(r *Registry) {
		r.provider = p
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		provider: TagProvider{},
		entities: make(map[reflect.Type]*Entity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register scans the metadata of v's type once. Repeated calls return the
// already registered entity. A type without table metadata fails
// immediately with a ConfigurationError.
func (r *Registry) Register(v any) (*Entity, error) {
	t := TypeOf(v)
	if t == nil {
		return nil, criteria.NewConfigurationError("<nil>", "cannot register a nil type")
	}
	r.mu.RLock()
	e, ok := r.entities[t]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entities[t]; ok {
		return e, nil
	}
	e, err := r.provider.Describe(t)
	if err != nil {
		return nil, err
	}
	r.entities[t] = e
	return e, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(vs ...any) {
	for _, v := range vs {
		if _, err := r.Register(v); err != nil {
			panic(fmt.Sprintf("schema: register %T: %v", v, err))
		}
	}
}

// Lookup returns the entity registered for v's type.
func (r *Registry) Lookup(v any) (*Entity, bool) {
	t := TypeOf(v)
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[t]
	return e, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Entities returns all registered entities sorted by table name.
func (r *Registry) Entities() []*Entity {
	r.mu.RLock()
	es := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		es = append(es, e)
	}
	r.mu.RUnlock()
	sort.Slice(es, func(i, j int) bool { return es[i].QualifiedTable() < es[j].QualifiedTable() })
	return es
}

// Reset removes all registered types.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entities)
}
