package static

import (
	"context"

	"agentworld/internal/app/catalog"
)

// Entry is an explicitly registered tool. An empty AgentID offers the tool to
// every agent.
type Entry struct {
	AgentID     string
	Name        string
	ActionID    string
	Description string
	GameType    string
	Handler     catalog.Handler
}

type Provider struct {
	Entries []Entry
}

func (p Provider) Load(_ context.Context, agentID string) ([]catalog.ToolDefinition, error) {
	out := make([]catalog.ToolDefinition, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.AgentID != "" && e.AgentID != agentID {
			continue
		}
		out = append(out, catalog.ToolDefinition{
			Name:        e.Name,
			Description: e.Description,
			ActionID:    e.ActionID,
			GameType:    e.GameType,
			Handler:     e.Handler,
		})
	}
	return out, nil
}

// GridNavigationDefaults binds one tool to each built-in grid action.
func GridNavigationDefaults() Provider {
	return Provider{Entries: []Entry{
		{Name: "move", ActionID: "move", GameType: "grid_navigation"},
		{Name: "pickup", ActionID: "pickup", GameType: "grid_navigation"},
		{Name: "wait", ActionID: "wait", GameType: "grid_navigation"},
	}}
}
