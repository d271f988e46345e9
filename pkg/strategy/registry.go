package strategy

import (
	"log"
	"sort"
	"sync"

	"github.com/zen-systems/scenroute/pkg/scenario"
)

// Registry is the process-wide catalogue of strategies. It tolerates
// concurrent register/unregister/lookup calls; a lookup never observes a
// partially-updated index.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]*Strategy
	// byType preserves registration order per scenario type so that
	// priority ties resolve deterministically.
	byType map[scenario.Type][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]*Strategy),
		byType:     make(map[scenario.Type][]string),
	}
}

var (
	defaultRegistry *Registry
	defaultMu       sync.Mutex
)

// Default returns the shared registry instance, creating it lazily. Handler
// modules self-register against it at bootstrap; tests should use private
// instances or ResetDefault.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
	return defaultRegistry
}

// ResetDefault discards the shared registry. Intended for tests.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = nil
}

// Register inserts or overwrites a strategy by ID. Re-registering an existing
// ID logs a warning and replaces it. Invalid strategies (empty ID, nil
// handler, no scenario types) are rejected with an error.
func (r *Registry) Register(s *Strategy) error {
	if err := s.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.strategies[s.ID]; exists {
		log.Printf("[registry] strategy %s already registered, replacing", s.ID)
		r.removeFromIndexLocked(old)
	}

	r.strategies[s.ID] = s
	for _, t := range s.ScenarioTypes {
		r.byType[t] = append(r.byType[t], s.ID)
	}
	return nil
}

// Unregister removes a strategy and prunes it from every index entry. It
// reports whether anything was removed.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.strategies[id]
	if !exists {
		return false
	}
	delete(r.strategies, id)
	r.removeFromIndexLocked(s)
	return true
}

func (r *Registry) removeFromIndexLocked(s *Strategy) {
	for _, t := range s.ScenarioTypes {
		ids := r.byType[t]
		kept := ids[:0]
		for _, id := range ids {
			if id != s.ID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(r.byType, t)
		} else {
			r.byType[t] = kept
		}
	}
}

// Get returns a strategy by ID.
func (r *Registry) Get(id string) (*Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[id]
	return s, ok
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}

// FindOption narrows a FindByScenario lookup.
type FindOption func(*findOptions)

type findOptions struct {
	requiresClassifier *bool
}

// RequiresClassifier filters by whether a strategy needs the external
// classifier capability.
func RequiresClassifier(required bool) FindOption {
	return func(o *findOptions) {
		o.requiresClassifier = &required
	}
}

// FindByScenario returns strategies indexed under the scenario's type whose
// MinConfidence the scenario reaches, sorted by priority descending. Ties
// keep registration order.
func (r *Registry) FindByScenario(sc scenario.Scenario, opts ...FindOption) []*Strategy {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Strategy
	for _, id := range r.byType[sc.Type] {
		s := r.strategies[id]
		if !s.Matches(sc) {
			continue
		}
		if o.requiresClassifier != nil && s.RequiresClassifier != *o.requiresClassifier {
			continue
		}
		matched = append(matched, s)
	}

	sortByPriority(matched)
	return matched
}

// FindByScenarioType returns every strategy declaring the type, priority
// sorted, without the confidence filter.
func (r *Registry) FindByScenarioType(t scenario.Type) []*Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*Strategy, 0, len(r.byType[t]))
	for _, id := range r.byType[t] {
		matched = append(matched, r.strategies[id])
	}

	sortByPriority(matched)
	return matched
}

// FindByTags returns strategies whose tag set intersects the given tags,
// priority sorted.
func (r *Registry) FindByTags(tags ...string) []*Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Strategy
	for _, id := range r.orderedIDsLocked() {
		s := r.strategies[id]
		if s.HasAnyTag(tags) {
			matched = append(matched, s)
		}
	}

	sortByPriority(matched)
	return matched
}

// All returns every registered strategy, priority sorted.
func (r *Registry) All() []*Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Strategy, 0, len(r.strategies))
	for _, id := range r.orderedIDsLocked() {
		all = append(all, r.strategies[id])
	}

	sortByPriority(all)
	return all
}

// LowestPriorityForType returns the lowest-priority strategy declaring the
// type, or nil. The router's fallback prefers a generic low-priority
// catch-all over a high-priority specialist.
func (r *Registry) LowestPriorityForType(t scenario.Type) *Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lowest *Strategy
	for _, id := range r.byType[t] {
		s := r.strategies[id]
		if lowest == nil || s.Priority < lowest.Priority {
			lowest = s
		}
	}
	return lowest
}

// LowestPriority returns the lowest-priority strategy across the whole
// registry, or nil when empty.
func (r *Registry) LowestPriority() *Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lowest *Strategy
	for _, id := range r.orderedIDsLocked() {
		s := r.strategies[id]
		if lowest == nil || s.Priority < lowest.Priority {
			lowest = s
		}
	}
	return lowest
}

// orderedIDsLocked returns strategy IDs in a deterministic order so that
// whole-registry scans are stable across calls.
func (r *Registry) orderedIDsLocked() []string {
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortByPriority(list []*Strategy) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority > list[j].Priority
	})
}

// Statistics summarizes registry contents for observability surfaces.
type Statistics struct {
	StrategyCount      int            `json:"strategy_count"`
	ByScenarioType     map[string]int `json:"by_scenario_type"`
	ByPriority         map[string]int `json:"by_priority"`
	RequiresClassifier int            `json:"requires_classifier"`
	Concurrent         int            `json:"concurrent"`
}

// Statistics returns a snapshot of registry coverage and distribution.
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{
		StrategyCount:  len(r.strategies),
		ByScenarioType: make(map[string]int),
		ByPriority:     make(map[string]int),
	}
	for t, ids := range r.byType {
		stats.ByScenarioType[string(t)] = len(ids)
	}
	for _, s := range r.strategies {
		stats.ByPriority[s.Priority.String()]++
		if s.RequiresClassifier {
			stats.RequiresClassifier++
		}
		if s.Mode == ModeConcurrent {
			stats.Concurrent++
		}
	}
	return stats
}
