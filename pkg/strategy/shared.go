package strategy

import "sync"

// SharedData is the small key/value store strategies use to pass data to each
// other within one execution of a decision. Concurrent strategies may write
// it simultaneously, so access is mutex-guarded. It is scoped to a single
// execution and never persisted.
type SharedData struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewSharedData creates an empty shared store.
func NewSharedData() *SharedData {
	return &SharedData{data: make(map[string]any)}
}

// Get returns the value for key.
func (s *SharedData) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a value under key.
func (s *SharedData) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Snapshot returns a copy of the current contents.
func (s *SharedData) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
