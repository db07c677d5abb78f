package memory

import (
	"sort"
	"sync"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

type Store struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	worlds    map[string]*worldEntry
	events    map[string][]ports.DeploymentEventRecord
	summaries map[string]ports.DeploymentSummary
	snapshots map[string]world.State
}

// worldEntry guards one world's state; merges for different worlds don't contend.
type worldEntry struct {
	mu    sync.Mutex
	meta  world.Meta
	state world.State
}

func NewStore() *Store {
	return &Store{
		worlds:    make(map[string]*worldEntry),
		events:    make(map[string][]ports.DeploymentEventRecord),
		summaries: make(map[string]ports.DeploymentSummary),
		snapshots: make(map[string]world.State),
	}
}

func (s *Store) entry(worldID string) (*worldEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.worlds[worldID]
	return e, ok
}

func (s *Store) entryOrCreate(worldID string) *worldEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.worlds[worldID]
	if !ok {
		e = &worldEntry{meta: world.Meta{ID: worldID, Name: worldID}}
		s.worlds[worldID] = e
	}
	return e
}

func (s *Store) WorldIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.worlds))
	for id := range s.worlds {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
