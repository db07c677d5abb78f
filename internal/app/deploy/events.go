package deploy

import (
	"encoding/json"
	"fmt"

	"agentworld/internal/domain/world"
)

type EventType string

const (
	EventSystem      EventType = "system"
	EventThinking    EventType = "thinking"
	EventText        EventType = "text"
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventWorldUpdate EventType = "world_update"
	EventError       EventType = "error"
	EventComplete    EventType = "complete"
)

// EventData is implemented by one payload struct per event type.
type EventData interface {
	EventType() EventType
}

type SystemData struct {
	DeploymentID string   `json:"deployment_id"`
	AgentID      string   `json:"agent_id"`
	WorldID      string   `json:"world_id"`
	GameType     string   `json:"game_type"`
	Goal         string   `json:"goal"`
	Tools        []string `json:"tools"`
	Warnings     []string `json:"warnings,omitempty"`
}

type ThinkingData struct {
	Text string `json:"text"`
}

type TextData struct {
	Text string `json:"text"`
}

type ToolCallData struct {
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Tool      string         `json:"tool"`
	ActionID  string         `json:"action_id,omitempty"`
	Arguments map[string]any `json:"arguments"`
}

type ToolResultData struct {
	ToolUseID  string      `json:"tool_use_id,omitempty"`
	Tool       string      `json:"tool"`
	ActionID   string      `json:"action_id,omitempty"`
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Error      string      `json:"error,omitempty"`
	StateDelta world.Delta `json:"state_delta"`
}

type WorldUpdateData struct {
	WorldID       string      `json:"world_id"`
	AgentPosition world.Point `json:"agent_position"`
	Inventory     []string    `json:"inventory"`
	Turn          int         `json:"turn"`
	Changed       []string    `json:"changed"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CompleteData struct {
	DeploymentID string   `json:"deployment_id"`
	Success      bool     `json:"success"`
	TotalSteps   int      `json:"total_steps"`
	ToolCalls    int      `json:"tool_calls"`
	ToolsUsed    []string `json:"tools_used"`
	Turns        int      `json:"turns"`
	Result       string   `json:"result,omitempty"`
}

// UnknownData holds the payload of an event type this build does not know.
type UnknownData struct {
	Type EventType
	Raw  json.RawMessage
}

func (SystemData) EventType() EventType      { return EventSystem }
func (ThinkingData) EventType() EventType    { return EventThinking }
func (TextData) EventType() EventType        { return EventText }
func (ToolCallData) EventType() EventType    { return EventToolCall }
func (ToolResultData) EventType() EventType  { return EventToolResult }
func (WorldUpdateData) EventType() EventType { return EventWorldUpdate }
func (ErrorData) EventType() EventType       { return EventError }
func (CompleteData) EventType() EventType    { return EventComplete }
func (d UnknownData) EventType() EventType   { return d.Type }

func (d UnknownData) MarshalJSON() ([]byte, error) {
	if len(d.Raw) == 0 {
		return []byte("{}"), nil
	}
	return d.Raw, nil
}

// Event is one item of a deployment stream. On the wire it is
// {"event_type": ..., "data": {...}}.
type Event struct {
	Type EventType
	Data EventData
}

func NewEvent(data EventData) Event {
	return Event{Type: data.EventType(), Data: data}
}

func (e Event) IsTerminal() bool {
	return e.Type == EventComplete
}

type wireEvent struct {
	EventType EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	var data any = struct{}{}
	if e.Data != nil {
		data = e.Data
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{EventType: e.Type, Data: raw})
}

// UnmarshalJSON decodes known event types into their payload struct. Unknown
// types decode to UnknownData so newer producers don't break older consumers.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var data EventData
	switch w.EventType {
	case EventSystem:
		data = decodeData[SystemData](w.Data)
	case EventThinking:
		data = decodeData[ThinkingData](w.Data)
	case EventText:
		data = decodeData[TextData](w.Data)
	case EventToolCall:
		data = decodeData[ToolCallData](w.Data)
	case EventToolResult:
		data = decodeData[ToolResultData](w.Data)
	case EventWorldUpdate:
		data = decodeData[WorldUpdateData](w.Data)
	case EventError:
		data = decodeData[ErrorData](w.Data)
	case EventComplete:
		data = decodeData[CompleteData](w.Data)
	case "":
		return fmt.Errorf("event: missing event_type")
	default:
		data = UnknownData{Type: w.EventType, Raw: append(json.RawMessage(nil), w.Data...)}
	}
	if u, ok := data.(decodeFailure); ok {
		return fmt.Errorf("event %s: %w", w.EventType, u.err)
	}
	*e = Event{Type: w.EventType, Data: data}
	return nil
}

type decodeFailure struct {
	err error
}

func (decodeFailure) EventType() EventType { return "" }

func decodeData[T EventData](raw json.RawMessage) EventData {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return decodeFailure{err: err}
	}
	return v
}
