package ports

import "context"

type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageThinking MessageKind = "thinking"
	MessageToolUse  MessageKind = "tool_use"
	MessageResult   MessageKind = "result"
)

// Message is one item read from the reasoning service.
type Message struct {
	Kind      MessageKind
	Text      string
	ToolUseID string
	ToolName  string
	Arguments map[string]any
}

type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ReasoningRequest struct {
	DeploymentID string
	AgentID      string
	WorldID      string
	Prompt       string
	Tools        []ToolSpec
	MaxTurns     int
}

type ToolReply struct {
	ToolUseID string
	ToolName  string
	Success   bool
	Content   string
}

// MessageStream is a cancellable upstream channel. Messages is closed when the
// service has nothing more to send; Err then reports why, nil on a clean end.
type MessageStream interface {
	Messages() <-chan Message
	Reply(ctx context.Context, reply ToolReply) error
	Err() error
	Close() error
}

type ReasoningService interface {
	Open(ctx context.Context, req ReasoningRequest) (MessageStream, error)
}
