package model

import "time"

const TableNameDeploymentEvent = "deployment_events"

// DeploymentEvent mapped from table <deployment_events>
type DeploymentEvent struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	DeploymentID string    `gorm:"column:deployment_id;not null" json:"deployment_id"`
	Seq          int32     `gorm:"column:seq;not null" json:"seq"`
	EventType    string    `gorm:"column:event_type;not null" json:"event_type"`
	Data         []byte    `gorm:"column:data;type:jsonb;not null" json:"data"`
	OccurredAt   time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`
}

// TableName DeploymentEvent's table name
func (*DeploymentEvent) TableName() string {
	return TableNameDeploymentEvent
}
