// Package store provides a process-wide scoped key/value store for sharing
// state between handlers that do not hold references to each other.
package store

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Scope is one concurrency-safe key/value namespace.
type Scope struct {
	mu     sync.RWMutex
	values map[string]any
}

func newScope() *Scope {
	return &Scope{values: make(map[string]any)}
}

// Get returns the value for key and whether it was present.
func (s *Scope) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set binds key to value, replacing any previous binding.
func (s *Scope) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Init binds key to value only if absent and returns the current binding.
func (s *Scope) Init(key string, value any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.values[key]; ok {
		return existing
	}
	s.values[key] = value
	return value
}

// Delete removes key, reporting whether it was present.
func (s *Scope) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	delete(s.values, key)
	return ok
}

// Keys returns the bound keys in sorted order.
func (s *Scope) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of bound keys.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Store manages named scopes. Scopes are created on first access and live
// until destroyed.
type Store struct {
	mu     sync.Mutex
	scopes map[string]*Scope
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{scopes: make(map[string]*Scope)}
}

// Scope returns the scope named key, creating it if needed.
func (s *Store) Scope(key string) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope, ok := s.scopes[key]
	if !ok {
		scope = newScope()
		s.scopes[key] = scope
	}
	return scope
}

// Current returns the scope for this process. The key is derived from the
// pid so concurrent runs sharing a filesystem do not collide.
func (s *Store) Current() *Scope {
	return s.Scope(CurrentKey())
}

// Destroy removes the scope named key. Outstanding references stay usable
// but are no longer reachable through the store.
func (s *Store) Destroy(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, key)
}

// CurrentKey returns the process-derived scope key.
func CurrentKey() string {
	return fmt.Sprintf("pid_%d", os.Getpid())
}

var (
	defaultStore     *Store
	defaultStoreOnce sync.Once
)

// Default returns the process-wide store.
func Default() *Store {
	defaultStoreOnce.Do(func() {
		defaultStore = NewStore()
	})
	return defaultStore
}
