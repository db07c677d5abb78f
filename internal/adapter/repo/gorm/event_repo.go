package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agentworld/internal/adapter/repo/gorm/model"
	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeploymentEventRepo struct {
	db *gorm.DB
}

func NewDeploymentEventRepo(db *gorm.DB) DeploymentEventRepo {
	return DeploymentEventRepo{db: db}
}

func (r DeploymentEventRepo) Append(ctx context.Context, record ports.DeploymentEventRecord) error {
	data := []byte(record.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	row := model.DeploymentEvent{
		DeploymentID: record.DeploymentID,
		Seq:          int32(record.Seq),
		EventType:    record.EventType,
		Data:         data,
		OccurredAt:   record.OccurredAt,
	}
	return getDBFromCtx(ctx, r.db).WithContext(ctx).Create(&row).Error
}

func (r DeploymentEventRepo) ListByDeploymentID(ctx context.Context, deploymentID string, limit int) ([]ports.DeploymentEventRecord, error) {
	rows := []model.DeploymentEvent{}
	query := getDBFromCtx(ctx, r.db).WithContext(ctx).
		Where(&model.DeploymentEvent{DeploymentID: deploymentID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "seq"}}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ports.ErrNotFound
	}

	out := make([]ports.DeploymentEventRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.DeploymentEventRecord{
			DeploymentID: row.DeploymentID,
			Seq:          int(row.Seq),
			EventType:    row.EventType,
			Data:         json.RawMessage(row.Data),
			OccurredAt:   row.OccurredAt,
		})
	}
	return out, nil
}

type DeploymentSummaryRepo struct {
	db *gorm.DB
}

func NewDeploymentSummaryRepo(db *gorm.DB) DeploymentSummaryRepo {
	return DeploymentSummaryRepo{db: db}
}

func (r DeploymentSummaryRepo) Save(ctx context.Context, summary ports.DeploymentSummary) error {
	tools := summary.ToolsUsed
	if tools == nil {
		tools = []string{}
	}
	b, err := json.Marshal(tools)
	if err != nil {
		return err
	}
	row := model.DeploymentSummary{
		DeploymentID: summary.DeploymentID,
		AgentID:      summary.AgentID,
		WorldID:      summary.WorldID,
		Goal:         summary.Goal,
		Success:      summary.Success,
		TotalSteps:   int32(summary.TotalSteps),
		ToolsUsed:    b,
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
	}
	return getDBFromCtx(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "deployment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"success", "total_steps", "tools_used", "finished_at"}),
		}).
		Create(&row).Error
}

func (r DeploymentSummaryRepo) Get(ctx context.Context, deploymentID string) (ports.DeploymentSummary, error) {
	var m model.DeploymentSummary
	if err := getDBFromCtx(ctx, r.db).WithContext(ctx).Where("deployment_id = ?", deploymentID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.DeploymentSummary{}, ports.ErrNotFound
		}
		return ports.DeploymentSummary{}, err
	}
	var tools []string
	if len(m.ToolsUsed) > 0 {
		_ = json.Unmarshal(m.ToolsUsed, &tools)
	}
	return ports.DeploymentSummary{
		DeploymentID: m.DeploymentID,
		AgentID:      m.AgentID,
		WorldID:      m.WorldID,
		Goal:         m.Goal,
		Success:      m.Success,
		TotalSteps:   int(m.TotalSteps),
		ToolsUsed:    tools,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
	}, nil
}

type WorldSnapshotRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewWorldSnapshotRepo(db *gorm.DB) WorldSnapshotRepo {
	return WorldSnapshotRepo{db: db, now: time.Now}
}

func (r WorldSnapshotRepo) SaveSnapshot(ctx context.Context, worldID string, state world.State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	row := model.WorldSnapshot{
		WorldID:   worldID,
		Width:     int32(state.Width),
		Height:    int32(state.Height),
		State:     b,
		UpdatedAt: r.now(),
	}
	return getDBFromCtx(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "world_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"width", "height", "state", "updated_at"}),
		}).
		Create(&row).Error
}

func (r WorldSnapshotRepo) LoadSnapshot(ctx context.Context, worldID string) (world.State, error) {
	var m model.WorldSnapshot
	if err := getDBFromCtx(ctx, r.db).WithContext(ctx).Where("world_id = ?", worldID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return world.State{}, ports.ErrNotFound
		}
		return world.State{}, err
	}
	var state world.State
	if err := json.Unmarshal(m.State, &state); err != nil {
		return world.State{}, err
	}
	return state, nil
}
