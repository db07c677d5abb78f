package ports

import "agentworld/internal/domain/world"

// WorldStateStore is the one piece of state shared across deployments. Reads
// return copies; Apply merges a delta atomically for a single world id.
type WorldStateStore interface {
	Get(worldID string) (world.State, bool)
	Set(worldID string, state world.State)
	UpdatePosition(worldID string, pos world.Point)
	Apply(worldID string, delta world.Delta) (world.State, error)
}

type WorldDirectory interface {
	Meta(worldID string) (world.Meta, bool)
}
