package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"agentworld/internal/domain/schema"
)

var (
	ErrInvalidRequest     = errors.New("invalid tool registration request")
	ErrInvalidToolBinding = errors.New("invalid tool binding")
	ErrToolDiscovery      = errors.New("tool discovery failed")
	ErrInvalidToolArgs    = errors.New("invalid tool arguments")
)

// InvalidToolBindingError names the tool whose action id could not be bound.
type InvalidToolBindingError struct {
	Tool     string
	ActionID string
	GameType string
	Reason   string
}

func (e *InvalidToolBindingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: tool %q -> action %q (game type %q): %s", ErrInvalidToolBinding, e.Tool, e.ActionID, e.GameType, e.Reason)
	}
	return fmt.Sprintf("%s: tool %q targets action %q which is not registered for game type %q", ErrInvalidToolBinding, e.Tool, e.ActionID, e.GameType)
}

func (e *InvalidToolBindingError) Unwrap() error {
	return ErrInvalidToolBinding
}

// Handler maps tool arguments to action parameters before execution.
// A nil handler passes arguments through unchanged.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

type ToolDefinition struct {
	Name        string
	Description string
	ActionID    string
	GameType    string
	Handler     Handler
}

// Source supplies tool definitions for an agent.
type Source interface {
	Load(ctx context.Context, agentID string) ([]ToolDefinition, error)
}

type ActionRegistry interface {
	Lookup(gameType string) (schema.GameActionSet, bool)
}

type DiscoverResult struct {
	Tools    []Tool
	Warnings []string
}

// toolKey scopes a tool name to its game type; one agent may bind the same
// name in several game types.
type toolKey struct {
	gameType string
	name     string
}

// Catalog holds validated tools per agent. A tool is only ever stored after its
// action id was found in the action set of its game type.
type Catalog struct {
	actions ActionRegistry
	source  Source
	logger  *slog.Logger

	mu      sync.RWMutex
	byAgent map[string]map[toolKey]Tool
}

func New(actions ActionRegistry, source Source, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		actions: actions,
		source:  source,
		logger:  logger,
		byAgent: map[string]map[toolKey]Tool{},
	}
}

// Register validates every definition against the action set for gameType and
// stores them all, or none: the first invalid binding fails the whole call.
func (c *Catalog) Register(_ context.Context, agentID, gameType string, defs []ToolDefinition) error {
	agentID = strings.TrimSpace(agentID)
	gameType = strings.TrimSpace(gameType)
	accepted, err := c.bind(agentID, gameType, defs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tools, ok := c.byAgent[agentID]
	if !ok {
		tools = map[toolKey]Tool{}
		c.byAgent[agentID] = tools
	}
	for name, tool := range accepted {
		tools[toolKey{gameType: gameType, name: name}] = tool
	}
	return nil
}

// Validate reports the error Register would return without storing anything.
func (c *Catalog) Validate(_ context.Context, agentID, gameType string, defs []ToolDefinition) error {
	_, err := c.bind(strings.TrimSpace(agentID), strings.TrimSpace(gameType), defs)
	return err
}

func (c *Catalog) bind(agentID, gameType string, defs []ToolDefinition) (map[string]Tool, error) {
	if agentID == "" || gameType == "" {
		return nil, ErrInvalidRequest
	}
	set, ok := c.actions.Lookup(gameType)
	if !ok {
		name, actionID := "", ""
		if len(defs) > 0 {
			name, actionID = defs[0].Name, defs[0].ActionID
		}
		return nil, &InvalidToolBindingError{Tool: name, ActionID: actionID, GameType: gameType, Reason: "game type is not registered"}
	}

	accepted := make(map[string]Tool, len(defs))
	for _, def := range defs {
		def.Name = strings.TrimSpace(def.Name)
		def.ActionID = strings.TrimSpace(def.ActionID)
		if def.Name == "" {
			return nil, &InvalidToolBindingError{Tool: def.Name, ActionID: def.ActionID, GameType: gameType, Reason: "tool name is empty"}
		}
		if def.GameType != "" && def.GameType != gameType {
			return nil, &InvalidToolBindingError{Tool: def.Name, ActionID: def.ActionID, GameType: gameType, Reason: fmt.Sprintf("tool declares game type %q", def.GameType)}
		}
		if _, dup := accepted[def.Name]; dup {
			return nil, &InvalidToolBindingError{Tool: def.Name, ActionID: def.ActionID, GameType: gameType, Reason: "duplicate tool name"}
		}
		action, ok := set.Action(def.ActionID)
		if !ok {
			return nil, &InvalidToolBindingError{Tool: def.Name, ActionID: def.ActionID, GameType: gameType}
		}
		def.GameType = gameType
		tool, err := newTool(agentID, def, action)
		if err != nil {
			return nil, &InvalidToolBindingError{Tool: def.Name, ActionID: def.ActionID, GameType: gameType, Reason: err.Error()}
		}
		accepted[def.Name] = tool
	}
	return accepted, nil
}

func (c *Catalog) Tool(agentID, gameType, name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byAgent[agentID][toolKey{gameType: gameType, name: name}]
	return t, ok
}

// Tools lists an agent's tools of every game type sorted by name, then game
// type.
func (c *Catalog) Tools(agentID string) []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tool, 0, len(c.byAgent[agentID]))
	for _, t := range c.byAgent[agentID] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].GameType < out[j].GameType
	})
	return out
}

// Discover loads the agent's definitions from the source and returns every
// validated tool for gameType. Source failures and rejected definitions are
// reported as warnings; the already registered tools are still returned.
func (c *Catalog) Discover(ctx context.Context, agentID, gameType string) DiscoverResult {
	var warnings []string
	if c.source != nil {
		defs, err := c.source.Load(ctx, agentID)
		if err != nil {
			w := err.Error()
			if !errors.Is(err, ErrToolDiscovery) {
				w = fmt.Sprintf("%s: %v", ErrToolDiscovery, err)
			}
			warnings = append(warnings, w)
			c.logger.Warn("tool discovery degraded", "agent_id", agentID, "err", err)
		}
		defs = filterGameType(defs, gameType)
		if len(defs) > 0 {
			if err := c.Register(ctx, agentID, gameType, defs); err != nil {
				warnings = append(warnings, err.Error())
				c.logger.Warn("discovered tools rejected", "agent_id", agentID, "game_type", gameType, "err", err)
			}
		}
	}

	var tools []Tool
	for _, t := range c.Tools(agentID) {
		if t.GameType == gameType {
			tools = append(tools, t)
		}
	}
	return DiscoverResult{Tools: tools, Warnings: warnings}
}

// filterGameType keeps definitions for gameType. Sources are append-only, so a
// later definition with the same name supersedes an earlier one.
func filterGameType(defs []ToolDefinition, gameType string) []ToolDefinition {
	index := map[string]int{}
	out := make([]ToolDefinition, 0, len(defs))
	for _, d := range defs {
		if d.GameType != "" && d.GameType != gameType {
			continue
		}
		name := strings.TrimSpace(d.Name)
		if i, ok := index[name]; ok {
			out[i] = d
			continue
		}
		index[name] = len(out)
		out = append(out, d)
	}
	return out
}

// MultiSource merges several sources. A failing source does not hide the
// definitions of the others; its error is returned alongside them.
type MultiSource []Source

func (m MultiSource) Load(ctx context.Context, agentID string) ([]ToolDefinition, error) {
	var (
		out  []ToolDefinition
		errs []error
	)
	for _, s := range m {
		if s == nil {
			continue
		}
		defs, err := s.Load(ctx, agentID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, defs...)
	}
	return out, errors.Join(errs...)
}
