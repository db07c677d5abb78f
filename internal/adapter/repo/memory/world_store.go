package memory

import (
	"fmt"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

// WorldStore is the in-process WorldStateStore. Concurrent deployments against
// the same world serialize their merges on the world's own mutex.
type WorldStore struct {
	store *Store
}

func NewWorldStore(store *Store) WorldStore {
	return WorldStore{store: store}
}

// Put registers a world with its metadata. The state must be valid.
func (r WorldStore) Put(meta world.Meta, state world.State) error {
	if meta.ID == "" {
		return fmt.Errorf("%w: empty world id", world.ErrInvalidState)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("world %q: %w", meta.ID, err)
	}
	e := r.store.entryOrCreate(meta.ID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if meta.Name == "" {
		meta.Name = meta.ID
	}
	e.meta = meta
	e.state = state.Clone()
	return nil
}

func (r WorldStore) Get(worldID string) (world.State, bool) {
	e, ok := r.store.entry(worldID)
	if !ok {
		return world.State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), true
}

// Set replaces a world's state, keeping its metadata. Invalid states are ignored.
func (r WorldStore) Set(worldID string, state world.State) {
	if state.Validate() != nil {
		return
	}
	e := r.store.entryOrCreate(worldID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state.Clone()
}

// UpdatePosition is a no-op for unknown worlds and out-of-bounds positions.
func (r WorldStore) UpdatePosition(worldID string, pos world.Point) {
	e, ok := r.store.entry(worldID)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.InBounds(pos) {
		return
	}
	e.state.AgentPosition = pos
}

func (r WorldStore) Apply(worldID string, delta world.Delta) (world.State, error) {
	e, ok := r.store.entry(worldID)
	if !ok {
		return world.State{}, ports.ErrWorldNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.state.Apply(delta)
	if err != nil {
		return e.state.Clone(), err
	}
	e.state = next
	return next.Clone(), nil
}

func (r WorldStore) Meta(worldID string) (world.Meta, bool) {
	e, ok := r.store.entry(worldID)
	if !ok {
		return world.Meta{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta, true
}

func (r WorldStore) WorldIDs() []string {
	return r.store.WorldIDs()
}
