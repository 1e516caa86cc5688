// Package registry provides a small generic keyed registry used to map
// configuration names to factories and launch modes.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a concurrency-safe mapping from keys to values within a named
// namespace. In strict mode (the default) duplicate registration is an
// error; in lax mode later registrations win.
type Registry[K comparable, V any] struct {
	namespace string
	strict    bool

	mu      sync.RWMutex
	entries map[K]V
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	strict bool
}

// Strict controls duplicate-registration behaviour.
func Strict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// New creates a registry for the given namespace.
func New[K comparable, V any](namespace string, opts ...Option) *Registry[K, V] {
	o := options{strict: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[K, V]{
		namespace: namespace,
		strict:    o.strict,
		entries:   make(map[K]V),
	}
}

// Register binds key to value. In strict mode an already-bound key is an
// error and the existing binding is kept.
func (r *Registry[K, V]) Register(key K, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists && r.strict {
		return fmt.Errorf("registry %s: key %v already registered", r.namespace, key)
	}
	r.entries[key] = value
	return nil
}

// MustRegister is Register but panics on error, for package init wiring.
func (r *Registry[K, V]) MustRegister(key K, value V) {
	if err := r.Register(key, value); err != nil {
		panic(err)
	}
}

// Get returns the value bound to key and whether it was present.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Keys returns the registered keys. For string keys the result is sorted.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Len returns the number of registered entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Namespace returns the registry's name for diagnostics.
func (r *Registry[K, V]) Namespace() string { return r.namespace }

func sortKeys[K comparable](keys []K) {
	if ss, ok := any(keys).([]string); ok {
		sort.Strings(ss)
	}
}
