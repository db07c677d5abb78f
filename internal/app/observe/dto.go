package observe

import "agentworld/internal/domain/world"

type Request struct {
	WorldID string
	Radius  int
}

type Response struct {
	World       world.Meta     `json:"world"`
	State       world.State    `json:"state"`
	View        world.Snapshot `json:"view"`
	Description string         `json:"description"`
}
