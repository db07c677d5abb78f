package replay

import (
	"agentworld/internal/app/deploy"
	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

type Request struct {
	DeploymentID string
	Limit        int
	OccurredFrom int64
	OccurredTo   int64
}

type RecordedEvent struct {
	Seq        int          `json:"seq"`
	OccurredAt int64        `json:"occurred_at"`
	Event      deploy.Event `json:"event"`
}

// LatestState is what the recorded world_update events say about the world
// when the deployment ended.
type LatestState struct {
	AgentPosition *world.Point `json:"agent_position,omitempty"`
	Inventory     []string     `json:"inventory,omitempty"`
	Turn          int          `json:"turn"`
	Finished      bool         `json:"finished"`
	Success       bool         `json:"success"`
}

type Response struct {
	Summary     *ports.DeploymentSummary `json:"summary,omitempty"`
	Events      []RecordedEvent          `json:"events"`
	LatestState LatestState              `json:"latest_state"`
}
