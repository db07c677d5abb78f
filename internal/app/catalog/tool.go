package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/schema"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool is a definition that passed binding validation, with the compiled
// argument schema of its action.
type Tool struct {
	ToolDefinition
	Action schema.GameAction

	argsSchema *jsonschema.Schema
}

func newTool(agentID string, def ToolDefinition, action schema.GameAction) (Tool, error) {
	raw, err := json.Marshal(action.ParameterSchema())
	if err != nil {
		return Tool{}, fmt.Errorf("encode schema: %w", err)
	}
	resource := "mem://tools/" + url.PathEscape(agentID) + "/" + url.PathEscape(def.GameType) + "/" + url.PathEscape(def.Name) + ".json"
	compiled, err := jsonschema.CompileString(resource, string(raw))
	if err != nil {
		return Tool{}, fmt.Errorf("compile schema: %w", err)
	}
	if def.Description == "" {
		def.Description = action.Description
	}
	return Tool{ToolDefinition: def, Action: action, argsSchema: compiled}, nil
}

// Spec describes the tool to the reasoning service.
func (t Tool) Spec() ports.ToolSpec {
	return ports.ToolSpec{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Action.ParameterSchema(),
	}
}

// PrepareArgs runs the tool handler, validates the result against the action's
// parameter schema and fills declared defaults.
func (t Tool) PrepareArgs(ctx context.Context, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	if t.Handler != nil {
		mapped, err := t.Handler(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidToolArgs, t.Name, err)
		}
		args = mapped
	}
	normalized, err := normalizeJSON(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidToolArgs, t.Name, err)
	}
	if t.argsSchema != nil {
		if err := t.argsSchema.Validate(normalized); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidToolArgs, t.Name, err)
		}
	}
	return t.Action.WithDefaults(normalized), nil
}

// normalizeJSON round-trips v so the validator only sees JSON-decoded types.
func normalizeJSON(v map[string]any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
