package deploy

import (
	"encoding/json"
	"fmt"
	"strings"

	"agentworld/internal/app/catalog"
	"agentworld/internal/domain/world"
)

func buildPrompt(goal string, meta world.Meta, state world.State, tools []catalog.Tool, radius int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", strings.TrimSpace(goal))
	name := meta.Name
	if name == "" {
		name = meta.ID
	}
	fmt.Fprintf(&b, "World %q (%s)\n", name, meta.GameType)
	b.WriteString(state.Describe())

	view := world.Observe(state, radius)
	fmt.Fprintf(&b, "\nLocal view (radius %d, # is wall or edge):\n", view.ViewRadius)
	for _, row := range view.Tiles {
		b.WriteString(strings.Join(row, ""))
		b.WriteByte('\n')
	}

	if len(tools) == 0 {
		b.WriteString("\nNo tools are available. Describe what you would do.\n")
		return b.String()
	}
	b.WriteString("\nTools:\n")
	for _, t := range tools {
		params, _ := json.Marshal(t.Action.ParameterSchema())
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", t.Name, t.Description, params)
	}
	return b.String()
}
