package memory

import (
	"context"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

type DeploymentEventRepo struct {
	store *Store
}

func NewDeploymentEventRepo(store *Store) DeploymentEventRepo {
	return DeploymentEventRepo{store: store}
}

func (r DeploymentEventRepo) Append(_ context.Context, record ports.DeploymentEventRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events[record.DeploymentID] = append(r.store.events[record.DeploymentID], record)
	return nil
}

func (r DeploymentEventRepo) ListByDeploymentID(_ context.Context, deploymentID string, limit int) ([]ports.DeploymentEventRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	events, ok := r.store.events[deploymentID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	out := make([]ports.DeploymentEventRecord, limit)
	copy(out, events[:limit])
	return out, nil
}

type DeploymentSummaryRepo struct {
	store *Store
}

func NewDeploymentSummaryRepo(store *Store) DeploymentSummaryRepo {
	return DeploymentSummaryRepo{store: store}
}

func (r DeploymentSummaryRepo) Save(_ context.Context, summary ports.DeploymentSummary) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.summaries[summary.DeploymentID] = summary
	return nil
}

func (r DeploymentSummaryRepo) Get(_ context.Context, deploymentID string) (ports.DeploymentSummary, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.summaries[deploymentID]
	if !ok {
		return ports.DeploymentSummary{}, ports.ErrNotFound
	}
	return s, nil
}

type WorldSnapshotRepo struct {
	store *Store
}

func NewWorldSnapshotRepo(store *Store) WorldSnapshotRepo {
	return WorldSnapshotRepo{store: store}
}

func (r WorldSnapshotRepo) SaveSnapshot(_ context.Context, worldID string, state world.State) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.snapshots[worldID] = state.Clone()
	return nil
}

func (r WorldSnapshotRepo) LoadSnapshot(_ context.Context, worldID string) (world.State, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.snapshots[worldID]
	if !ok {
		return world.State{}, ports.ErrNotFound
	}
	return s.Clone(), nil
}
