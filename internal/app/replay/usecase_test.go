package replay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agentworld/internal/app/deploy"
	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

func record(t *testing.T, seq int, at int64, data deploy.EventData) ports.DeploymentEventRecord {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ports.DeploymentEventRecord{
		DeploymentID: "dep-1",
		Seq:          seq,
		EventType:    string(data.EventType()),
		Data:         raw,
		OccurredAt:   time.Unix(at, 0),
	}
}

func TestUseCase_ReconstructsLatestStateFromEvents(t *testing.T) {
	repo := fakeRepo{records: []ports.DeploymentEventRecord{
		record(t, 0, 1, deploy.SystemData{DeploymentID: "dep-1", WorldID: "w1"}),
		record(t, 1, 2, deploy.WorldUpdateData{WorldID: "w1", AgentPosition: world.Point{X: 2, Y: 1}}),
		record(t, 2, 3, deploy.WorldUpdateData{WorldID: "w1", AgentPosition: world.Point{X: 3, Y: 1}, Inventory: []string{"key"}}),
		record(t, 3, 4, deploy.CompleteData{DeploymentID: "dep-1", Success: true, TotalSteps: 2}),
	}}

	uc := UseCase{Events: repo, Summaries: fakeSummaries{}}
	out, err := uc.Execute(context.Background(), Request{DeploymentID: "dep-1", Limit: 10})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out.LatestState.AgentPosition == nil || *out.LatestState.AgentPosition != (world.Point{X: 3, Y: 1}) {
		t.Fatalf("expected latest position [3,1], got %v", out.LatestState.AgentPosition)
	}
	if !out.LatestState.Finished || !out.LatestState.Success {
		t.Fatalf("expected finished successful deployment, got %+v", out.LatestState)
	}
	if len(out.Events) != 4 || out.Events[3].Event.Type != deploy.EventComplete {
		t.Fatalf("expected 4 events ending with complete, got %+v", out.Events)
	}
	if out.Summary != nil {
		t.Fatalf("missing summary must stay nil")
	}
}

func TestUseCase_FiltersByOccurredTimeWindow(t *testing.T) {
	repo := fakeRepo{records: []ports.DeploymentEventRecord{
		record(t, 0, 10, deploy.TextData{Text: "a"}),
		record(t, 1, 20, deploy.TextData{Text: "b"}),
		record(t, 2, 30, deploy.TextData{Text: "c"}),
	}}
	out, err := UseCase{Events: repo}.Execute(context.Background(), Request{DeploymentID: "dep-1", OccurredFrom: 15, OccurredTo: 25})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(out.Events) != 1 || out.Events[0].Event.Data.(deploy.TextData).Text != "b" {
		t.Fatalf("unexpected window: %+v", out.Events)
	}
}

func TestUseCase_RejectsInvalidRequest(t *testing.T) {
	_, err := UseCase{Events: fakeRepo{}}.Execute(context.Background(), Request{DeploymentID: " "})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestUseCase_PropagatesNotFound(t *testing.T) {
	_, err := UseCase{Events: fakeRepo{err: ports.ErrNotFound}}.Execute(context.Background(), Request{DeploymentID: "dep-9"})
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakeRepo struct {
	records []ports.DeploymentEventRecord
	err     error
}

func (r fakeRepo) Append(context.Context, ports.DeploymentEventRecord) error {
	return nil
}

func (r fakeRepo) ListByDeploymentID(context.Context, string, int) ([]ports.DeploymentEventRecord, error) {
	return r.records, r.err
}

type fakeSummaries struct{}

func (fakeSummaries) Save(context.Context, ports.DeploymentSummary) error { return nil }

func (fakeSummaries) Get(context.Context, string) (ports.DeploymentSummary, error) {
	return ports.DeploymentSummary{}, ports.ErrNotFound
}
