package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agentworld/internal/app/deploy"
	"agentworld/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid replay request")

type UseCase struct {
	Events    ports.DeploymentEventRepository
	Summaries ports.DeploymentSummaryRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.DeploymentID = strings.TrimSpace(req.DeploymentID)
	if req.DeploymentID == "" || req.Limit < 0 {
		return Response{}, ErrInvalidRequest
	}
	records, err := u.Events.ListByDeploymentID(ctx, req.DeploymentID, req.Limit)
	if err != nil {
		return Response{}, err
	}
	records = filterByTimeWindow(records, req.OccurredFrom, req.OccurredTo)

	events := make([]RecordedEvent, 0, len(records))
	for _, rec := range records {
		evt, err := decode(rec)
		if err != nil {
			return Response{}, fmt.Errorf("decode event %d of %s: %w", rec.Seq, rec.DeploymentID, err)
		}
		events = append(events, RecordedEvent{Seq: rec.Seq, OccurredAt: rec.OccurredAt.Unix(), Event: evt})
	}

	out := Response{Events: events, LatestState: reconstruct(events)}
	if u.Summaries != nil {
		summary, err := u.Summaries.Get(ctx, req.DeploymentID)
		switch {
		case err == nil:
			out.Summary = &summary
		case !errors.Is(err, ports.ErrNotFound):
			return Response{}, err
		}
	}
	return out, nil
}

func decode(rec ports.DeploymentEventRecord) (deploy.Event, error) {
	data := rec.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	wire, err := json.Marshal(map[string]any{"event_type": rec.EventType, "data": data})
	if err != nil {
		return deploy.Event{}, err
	}
	var evt deploy.Event
	if err := json.Unmarshal(wire, &evt); err != nil {
		return deploy.Event{}, err
	}
	return evt, nil
}

func filterByTimeWindow(records []ports.DeploymentEventRecord, from, to int64) []ports.DeploymentEventRecord {
	if from <= 0 && to <= 0 {
		return records
	}
	out := make([]ports.DeploymentEventRecord, 0, len(records))
	for _, rec := range records {
		ts := rec.OccurredAt.Unix()
		if from > 0 && ts < from {
			continue
		}
		if to > 0 && ts > to {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func reconstruct(events []RecordedEvent) LatestState {
	state := LatestState{}
	for _, re := range events {
		switch data := re.Event.Data.(type) {
		case deploy.WorldUpdateData:
			pos := data.AgentPosition
			state.AgentPosition = &pos
			state.Inventory = data.Inventory
			state.Turn = data.Turn
		case deploy.CompleteData:
			state.Finished = true
			state.Success = data.Success
		}
	}
	return state
}
