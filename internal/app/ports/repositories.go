package ports

import (
	"context"
	"encoding/json"
	"time"

	"agentworld/internal/domain/world"
)

type DeploymentEventRecord struct {
	DeploymentID string
	Seq          int
	EventType    string
	Data         json.RawMessage
	OccurredAt   time.Time
}

type DeploymentSummary struct {
	DeploymentID string    `json:"deployment_id"`
	AgentID      string    `json:"agent_id"`
	WorldID      string    `json:"world_id"`
	Goal         string    `json:"goal"`
	Success      bool      `json:"success"`
	TotalSteps   int       `json:"total_steps"`
	ToolsUsed    []string  `json:"tools_used"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

type DeploymentEventRepository interface {
	Append(ctx context.Context, record DeploymentEventRecord) error
	ListByDeploymentID(ctx context.Context, deploymentID string, limit int) ([]DeploymentEventRecord, error)
}

type DeploymentSummaryRepository interface {
	Save(ctx context.Context, summary DeploymentSummary) error
	Get(ctx context.Context, deploymentID string) (DeploymentSummary, error)
}

type WorldSnapshotRepository interface {
	SaveSnapshot(ctx context.Context, worldID string, state world.State) error
	LoadSnapshot(ctx context.Context, worldID string) (world.State, error)
}

// TranscriptArchive receives every emitted event for long-term storage.
type TranscriptArchive interface {
	Write(v any) error
}
