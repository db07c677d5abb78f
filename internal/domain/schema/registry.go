package schema

import (
	"sort"
	"sync"
)

// Registry maps game types to their action sets. Sets are added or replaced,
// never removed.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]GameActionSet
}

func NewRegistry() *Registry {
	return &Registry{sets: map[string]GameActionSet{}}
}

// DefaultRegistry returns a registry preloaded with the built-in game types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_, _ = r.Register(GridNavigationActions())
	return r
}

// Register stores set under its game type. replaced is true when an existing
// set for the same game type was overwritten.
func (r *Registry) Register(set GameActionSet) (replaced bool, err error) {
	if err := set.Validate(); err != nil {
		return false, err
	}
	set = cloneSet(set)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced = r.sets[set.GameType]
	r.sets[set.GameType] = set
	return replaced, nil
}

func (r *Registry) Lookup(gameType string) (GameActionSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[gameType]
	if !ok {
		return GameActionSet{}, false
	}
	return cloneSet(set), true
}

func (r *Registry) ListGameTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sets))
	for k := range r.sets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cloneSet(set GameActionSet) GameActionSet {
	out := GameActionSet{GameType: set.GameType, Actions: make([]GameAction, len(set.Actions))}
	for i, a := range set.Actions {
		a.Parameters = append([]ActionParameter(nil), a.Parameters...)
		out.Actions[i] = a
	}
	return out
}
