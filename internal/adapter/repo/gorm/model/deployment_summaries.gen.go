package model

import "time"

const TableNameDeploymentSummary = "deployment_summaries"

// DeploymentSummary mapped from table <deployment_summaries>
type DeploymentSummary struct {
	DeploymentID string    `gorm:"column:deployment_id;primaryKey" json:"deployment_id"`
	AgentID      string    `gorm:"column:agent_id;not null" json:"agent_id"`
	WorldID      string    `gorm:"column:world_id;not null" json:"world_id"`
	Goal         string    `gorm:"column:goal;not null" json:"goal"`
	Success      bool      `gorm:"column:success;not null" json:"success"`
	TotalSteps   int32     `gorm:"column:total_steps;not null" json:"total_steps"`
	ToolsUsed    []byte    `gorm:"column:tools_used;type:jsonb;not null" json:"tools_used"`
	StartedAt    time.Time `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt   time.Time `gorm:"column:finished_at;not null" json:"finished_at"`
}

// TableName DeploymentSummary's table name
func (*DeploymentSummary) TableName() string {
	return TableNameDeploymentSummary
}
