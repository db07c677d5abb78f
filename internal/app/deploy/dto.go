package deploy

import (
	"context"

	"agentworld/internal/app/catalog"
	"agentworld/internal/domain/engine"
	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"
)

type Request struct {
	AgentID string `json:"agent_id"`
	WorldID string `json:"world_id"`
	Goal    string `json:"goal"`
}

type ToolCatalog interface {
	Discover(ctx context.Context, agentID, gameType string) catalog.DiscoverResult
}

type ActionRegistry interface {
	Lookup(gameType string) (schema.GameActionSet, bool)
}

type EngineFactory interface {
	NewEngine(worldID string, actions schema.GameActionSet, state world.State) (engine.Engine, error)
}
