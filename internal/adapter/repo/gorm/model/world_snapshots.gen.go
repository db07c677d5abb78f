package model

import "time"

const TableNameWorldSnapshot = "world_snapshots"

// WorldSnapshot mapped from table <world_snapshots>
type WorldSnapshot struct {
	WorldID   string    `gorm:"column:world_id;primaryKey" json:"world_id"`
	Width     int32     `gorm:"column:width;not null" json:"width"`
	Height    int32     `gorm:"column:height;not null" json:"height"`
	State     []byte    `gorm:"column:state;type:jsonb;not null" json:"state"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName WorldSnapshot's table name
func (*WorldSnapshot) TableName() string {
	return TableNameWorldSnapshot
}
