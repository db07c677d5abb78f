package tools

type Binding struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ActionID    string `json:"action_id"`
}

type RegisterRequest struct {
	AgentID  string
	GameType string
	Tools    []Binding
}

type ToolView struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ActionID    string         `json:"action_id"`
	GameType    string         `json:"game_type"`
	Parameters  map[string]any `json:"parameters"`
}

type Response struct {
	AgentID string     `json:"agent_id"`
	Tools   []ToolView `json:"tools"`
}
