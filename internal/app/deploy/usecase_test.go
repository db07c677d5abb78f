package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"agentworld/internal/app/catalog"
	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

func TestDeploy_UnknownWorldYieldsErrorThenComplete(t *testing.T) {
	f := newFixture(t, scripted(nil))
	events := collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "nope", Goal: "explore"}))

	if got, want := types(events), []EventType{EventError, EventComplete}; !reflect.DeepEqual(got, want) {
		t.Fatalf("event types mismatch: got=%v want=%v", got, want)
	}
	if code := events[0].Data.(ErrorData).Code; code != CodeWorldNotFound {
		t.Fatalf("error code mismatch: got=%q want=%q", code, CodeWorldNotFound)
	}
	if events[1].Data.(CompleteData).Success {
		t.Fatalf("unknown world must not complete successfully")
	}
	if f.reasoning.request.Prompt != "" {
		t.Fatalf("reasoning service must not be contacted")
	}
}

func TestDeploy_ZeroToolsStillStartsWithSystem(t *testing.T) {
	f := newFixture(t, scripted(nil, resultMsg("nothing to do")))
	events := collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "look around"}))

	if got, want := types(events), []EventType{EventSystem, EventComplete}; !reflect.DeepEqual(got, want) {
		t.Fatalf("event types mismatch: got=%v want=%v", got, want)
	}
	sys := events[0].Data.(SystemData)
	if sys.DeploymentID != "dep-1" || sys.WorldID != "w1" || sys.AgentID != "agent-1" || len(sys.Tools) != 0 {
		t.Fatalf("unexpected system event: %+v", sys)
	}
	done := events[1].Data.(CompleteData)
	if !done.Success || done.Result != "nothing to do" || done.TotalSteps != 0 {
		t.Fatalf("unexpected complete event: %+v", done)
	}
}

func TestDeploy_MoveEastOneStep(t *testing.T) {
	stream := scripted(nil,
		ports.Message{Kind: ports.MessageThinking, Text: "east is free"},
		toolUse("tu-1", "move", map[string]any{"direction": "east", "steps": 1}),
		resultMsg("moved"),
	)
	f := newFixture(t, stream).withTools(t, catalog.ToolDefinition{Name: "move", ActionID: "move"})
	events := collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "move east one step"}))

	want := []EventType{EventSystem, EventThinking, EventToolCall, EventToolResult, EventWorldUpdate, EventComplete}
	if got := types(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("event types mismatch: got=%v want=%v", got, want)
	}
	call := events[2].Data.(ToolCallData)
	if call.Tool != "move" || call.ActionID != "move" || call.Arguments["direction"] != "east" {
		t.Fatalf("unexpected tool_call: %+v", call)
	}
	res := events[3].Data.(ToolResultData)
	if !res.Success || res.StateDelta.AgentPosition == nil || *res.StateDelta.AgentPosition != (world.Point{X: 2, Y: 1}) {
		t.Fatalf("unexpected tool_result: %+v", res)
	}
	upd := events[4].Data.(WorldUpdateData)
	if upd.AgentPosition != (world.Point{X: 2, Y: 1}) || !reflect.DeepEqual(upd.Changed, []string{"agent_position"}) {
		t.Fatalf("unexpected world_update: %+v", upd)
	}
	done := events[5].Data.(CompleteData)
	if !done.Success || done.TotalSteps != 1 || done.ToolCalls != 1 || !reflect.DeepEqual(done.ToolsUsed, []string{"move"}) {
		t.Fatalf("unexpected complete: %+v", done)
	}

	state, _ := f.worlds.Get("w1")
	if state.AgentPosition != (world.Point{X: 2, Y: 1}) {
		t.Fatalf("store not updated: got=%v", state.AgentPosition)
	}
	if len(stream.replies) != 1 || !stream.replies[0].Success || stream.replies[0].ToolUseID != "tu-1" {
		t.Fatalf("tool result not fed back: %+v", stream.replies)
	}
	if !stream.closed {
		t.Fatalf("stream must be closed")
	}
	recorded, err := f.events.ListByDeploymentID(context.Background(), "dep-1", 0)
	if err != nil || len(recorded) != len(events) {
		t.Fatalf("recorded events mismatch: err=%v got=%d want=%d", err, len(recorded), len(events))
	}
	summary, err := f.summaries.Get(context.Background(), "dep-1")
	if err != nil || !summary.Success || summary.TotalSteps != 1 {
		t.Fatalf("summary mismatch: err=%v %+v", err, summary)
	}
	if f.metrics.toolCalls["move"] != 1 || !reflect.DeepEqual(f.metrics.deployments, []bool{true}) {
		t.Fatalf("metrics mismatch: %+v", f.metrics)
	}
}

func TestDeploy_PickupUpdatesInventory(t *testing.T) {
	stream := scripted(nil,
		toolUse("tu-1", "walk", map[string]any{"direction": "EAST"}),
		toolUse("tu-2", "grab", map[string]any{"item_type": "key"}),
	)
	f := newFixture(t, stream).withTools(t,
		catalog.ToolDefinition{Name: "walk", ActionID: "move"},
		catalog.ToolDefinition{Name: "grab", ActionID: "pickup"},
	)
	events := collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "grab the key"}))

	var last WorldUpdateData
	for _, e := range events {
		if e.Type == EventWorldUpdate {
			last = e.Data.(WorldUpdateData)
		}
	}
	if !reflect.DeepEqual(last.Inventory, []string{"key"}) {
		t.Fatalf("inventory mismatch: got=%v", last.Inventory)
	}
	done := events[len(events)-1].Data.(CompleteData)
	if !done.Success || done.TotalSteps != 2 {
		t.Fatalf("unexpected complete: %+v", done)
	}
	state, _ := f.worlds.Get("w1")
	if len(state.Items) != 0 {
		t.Fatalf("picked item must leave the world: %+v", state.Items)
	}
}

func TestDeploy_FailedActionsAreResultsNotErrors(t *testing.T) {
	stream := scripted(nil,
		toolUse("tu-1", "move", map[string]any{"direction": "north", "steps": 5}),
		toolUse("tu-2", "teleport", map[string]any{}),
		toolUse("tu-3", "move", map[string]any{"direction": "up"}),
		resultMsg(""),
	)
	f := newFixture(t, stream).withTools(t, catalog.ToolDefinition{Name: "move", ActionID: "move"})
	events := collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "leave the map"}))

	want := []EventType{
		EventSystem,
		EventToolCall, EventToolResult,
		EventToolCall, EventToolResult,
		EventToolCall, EventToolResult,
		EventComplete,
	}
	if got := types(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("event types mismatch: got=%v want=%v", got, want)
	}
	for _, i := range []int{2, 4, 6} {
		if res := events[i].Data.(ToolResultData); res.Success || res.Error == "" || !res.StateDelta.IsEmpty() {
			t.Fatalf("event %d: expected failed result, got %+v", i, res)
		}
	}
	done := events[len(events)-1].Data.(CompleteData)
	if !done.Success || done.TotalSteps != 0 || done.ToolCalls != 3 {
		t.Fatalf("unexpected complete: %+v", done)
	}
	state, _ := f.worlds.Get("w1")
	if state.AgentPosition != (world.Point{X: 1, Y: 1}) {
		t.Fatalf("rejected move changed state: %v", state.AgentPosition)
	}
}

func TestDeploy_TurnCap(t *testing.T) {
	stream := scripted(nil,
		ports.Message{Kind: ports.MessageText, Text: "one"},
		ports.Message{Kind: ports.MessageText, Text: "two"},
		ports.Message{Kind: ports.MessageText, Text: "three"},
	)
	f := newFixture(t, stream)
	uc := f.useCase()
	uc.MaxTurns = 2
	events := collect(uc.Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "chat"}))

	want := []EventType{EventSystem, EventText, EventText, EventError, EventComplete}
	if got := types(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("event types mismatch: got=%v want=%v", got, want)
	}
	if code := events[3].Data.(ErrorData).Code; code != CodeTurnCap {
		t.Fatalf("error code mismatch: got=%q want=%q", code, CodeTurnCap)
	}
	if events[4].Data.(CompleteData).Success {
		t.Fatalf("capped deployment must not succeed")
	}
}

func TestDeploy_ResultWithinCapIsNotCapped(t *testing.T) {
	stream := scripted(nil,
		ports.Message{Kind: ports.MessageText, Text: "one"},
		resultMsg("done"),
	)
	f := newFixture(t, stream)
	uc := f.useCase()
	uc.MaxTurns = 1
	events := collect(uc.Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "chat"}))
	if !events[len(events)-1].Data.(CompleteData).Success {
		t.Fatalf("result after the last allowed turn must still succeed: %v", types(events))
	}
}

func TestDeploy_ReasoningFailures(t *testing.T) {
	cases := []struct {
		name      string
		reasoning *stubReasoning
	}{
		{name: "open fails", reasoning: &stubReasoning{err: errors.New("dial upstream: refused")}},
		{name: "stream errors", reasoning: &stubReasoning{stream: scripted(errors.New("upstream reset"), ports.Message{Kind: ports.MessageText, Text: "hi"})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.reasoning = tc.reasoning
			events := collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "x"}))
			errs := 0
			for _, e := range events {
				if e.Type == EventError {
					errs++
					if code := e.Data.(ErrorData).Code; code != CodeReasoningService {
						t.Fatalf("error code mismatch: got=%q", code)
					}
				}
			}
			if errs != 1 {
				t.Fatalf("expected exactly one error event, got %d in %v", errs, types(events))
			}
			last := events[len(events)-1]
			if last.Type != EventComplete || last.Data.(CompleteData).Success {
				t.Fatalf("expected failed complete last, got %+v", last)
			}
		})
	}
}

func TestDeploy_PanickingHandlerBecomesErrorEvent(t *testing.T) {
	stream := scripted(nil, toolUse("tu-1", "boom", map[string]any{}))
	f := newFixture(t, stream).withTools(t, catalog.ToolDefinition{
		Name:     "boom",
		ActionID: "wait",
		Handler: func(context.Context, map[string]any) (map[string]any, error) {
			panic("handler exploded")
		},
	})
	events := collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "x"}))

	want := []EventType{EventSystem, EventToolCall, EventError, EventComplete}
	if got := types(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("event types mismatch: got=%v want=%v", got, want)
	}
	if code := events[2].Data.(ErrorData).Code; code != CodeInternal {
		t.Fatalf("error code mismatch: got=%q", code)
	}
}

func TestDeploy_TurnTimeout(t *testing.T) {
	f := newFixture(t, blocking())
	uc := f.useCase()
	uc.TurnTimeout = 20 * time.Millisecond
	events := collect(uc.Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "x"}))

	want := []EventType{EventSystem, EventError, EventComplete}
	if got := types(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("event types mismatch: got=%v want=%v", got, want)
	}
	if code := events[1].Data.(ErrorData).Code; code != CodeTurnTimeout {
		t.Fatalf("error code mismatch: got=%q", code)
	}
}

func TestDeploy_CancelledConsumerReceivesNothingMore(t *testing.T) {
	f := newFixture(t, blocking())
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.useCase().Deploy(ctx, Request{AgentID: "agent-1", WorldID: "w1", Goal: "x"})

	first := <-ch
	if first.Type != EventSystem {
		t.Fatalf("expected system first, got %s", first.Type)
	}
	cancel()

	select {
	case e, ok := <-ch:
		if ok {
			t.Fatalf("no event expected after cancellation, got %s", e.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream not closed after cancellation")
	}
	summary, err := f.summaries.Get(context.Background(), "dep-1")
	if err != nil || summary.Success {
		t.Fatalf("cancelled deployment must be recorded as failed: err=%v %+v", err, summary)
	}
}

func TestDeploy_PromptDescribesWorldAndTools(t *testing.T) {
	f := newFixture(t, scripted(nil)).withTools(t, catalog.ToolDefinition{Name: "move", ActionID: "move"})
	collect(f.useCase().Deploy(context.Background(), Request{AgentID: "agent-1", WorldID: "w1", Goal: "reach the key"}))

	req := f.reasoning.request
	if req.DeploymentID != "dep-1" || req.MaxTurns != DefaultMaxTurns || len(req.Tools) != 1 || req.Tools[0].Name != "move" {
		t.Fatalf("unexpected reasoning request: %+v", req)
	}
	for _, want := range []string{"Goal: reach the key", "Agent at [1,1]", "key@[2,1]", "- move:"} {
		if !strings.Contains(req.Prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, req.Prompt)
		}
	}
}

func TestEvent_WireShape(t *testing.T) {
	e := NewEvent(CompleteData{DeploymentID: "dep-1", Success: true, TotalSteps: 1, ToolsUsed: []string{"move"}})
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["event_type"] != "complete" {
		t.Fatalf("event_type mismatch: %s", b)
	}
	data := raw["data"].(map[string]any)
	if data["total_steps"] != float64(1) || data["success"] != true {
		t.Fatalf("data mismatch: %s", b)
	}

	var back Event
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Data.(CompleteData).DeploymentID != "dep-1" {
		t.Fatalf("decoded payload mismatch: %+v", back)
	}

	var unknown Event
	if err := json.Unmarshal([]byte(`{"event_type":"heartbeat","data":{"n":1}}`), &unknown); err != nil {
		t.Fatalf("unknown type must decode: %v", err)
	}
	if unknown.Type != "heartbeat" || string(unknown.Data.(UnknownData).Raw) != `{"n":1}` {
		t.Fatalf("unknown payload mismatch: %+v", unknown)
	}
}

func TestEvent_WorldUpdatePositionIsArray(t *testing.T) {
	b, _ := json.Marshal(NewEvent(WorldUpdateData{WorldID: "w1", AgentPosition: world.Point{X: 2, Y: 1}, Inventory: []string{}}))
	if !strings.Contains(string(b), `"agent_position":[2,1]`) {
		t.Fatalf("agent_position must be an [x,y] pair: %s", b)
	}
}
