package actions

import (
	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"
)

type Request struct {
	WorldID string
}

type Response struct {
	World   world.Meta                              `json:"world"`
	Actions map[schema.Category][]schema.GameAction `json:"actions"`
}
