package engine

import (
	"context"
	"fmt"
	"strings"

	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"
)

type direction struct {
	name string
	dx   int
	dy   int
}

var directions = map[string]direction{
	"north": {name: "north", dx: 0, dy: -1},
	"south": {name: "south", dx: 0, dy: 1},
	"east":  {name: "east", dx: 1, dy: 0},
	"west":  {name: "west", dx: -1, dy: 0},
}

type gridHandler func(e *GridNavigationEngine, params map[string]any) ActionResult

func gridHandlers() map[string]gridHandler {
	return map[string]gridHandler{
		schema.ActionMove:   (*GridNavigationEngine).move,
		schema.ActionPickup: (*GridNavigationEngine).pickup,
		schema.ActionWait:   (*GridNavigationEngine).wait,
	}
}

// GridNavigationEngine executes movement, pickup and wait actions on a 2D grid.
// Moves that would leave the grid or cross a wall are rejected, never clamped.
type GridNavigationEngine struct {
	worldID  string
	actions  schema.GameActionSet
	state    world.State
	handlers map[string]gridHandler
}

func NewGridNavigation(worldID string, actions schema.GameActionSet, state world.State) *GridNavigationEngine {
	return &GridNavigationEngine{
		worldID:  worldID,
		actions:  actions,
		state:    state.Clone(),
		handlers: gridHandlers(),
	}
}

func (e *GridNavigationEngine) WorldID() string { return e.worldID }

func (e *GridNavigationEngine) Execute(ctx context.Context, actionID string, params map[string]any) ActionResult {
	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	action, ok := e.actions.Action(actionID)
	if !ok {
		return failed(ErrUnsupportedAction)
	}
	handler, ok := e.handlers[actionID]
	if !ok {
		return failed(ErrUnsupportedAction)
	}
	return handler(e, action.WithDefaults(params))
}

func (e *GridNavigationEngine) move(params map[string]any) ActionResult {
	raw, _ := params["direction"].(string)
	dir, ok := directions[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return failed(fmt.Errorf("%w: direction %q", ErrInvalidParams, raw))
	}
	steps, err := intParam(params, "steps", 1)
	if err != nil {
		return failed(err)
	}
	if steps < 1 {
		return failed(fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidParams, steps))
	}

	pos := e.state.AgentPosition
	for i := 0; i < steps; i++ {
		next := pos.Add(dir.dx, dir.dy)
		if !e.state.InBounds(next) {
			return failed(fmt.Errorf("%w: %s from %s reaches %s outside %dx%d", ErrOutOfBounds, dir.name, e.state.AgentPosition, next, e.state.Width, e.state.Height))
		}
		if !world.IsPassable(e.state.TileAt(next)) {
			return failed(fmt.Errorf("%w: wall at %s", ErrBlocked, next))
		}
		pos = next
	}
	return succeeded(
		fmt.Sprintf("moved %s %d step(s) to %s", dir.name, steps, pos),
		world.Delta{AgentPosition: &pos},
	)
}

func (e *GridNavigationEngine) pickup(params map[string]any) ActionResult {
	want, _ := params["item_type"].(string)
	want = strings.TrimSpace(want)
	pos := e.state.AgentPosition

	idx := -1
	for i, it := range e.state.Items {
		if it.Position != pos {
			continue
		}
		if want == "" || strings.EqualFold(it.Type, want) {
			idx = i
			break
		}
	}
	if idx < 0 {
		if want == "" {
			return failed(fmt.Errorf("%w at %s", ErrNothingToPickUp, pos))
		}
		return failed(fmt.Errorf("%w: no %q at %s", ErrNothingToPickUp, want, pos))
	}

	picked := e.state.Items[idx]
	items := make([]world.Item, 0, len(e.state.Items)-1)
	items = append(items, e.state.Items[:idx]...)
	items = append(items, e.state.Items[idx+1:]...)
	inventory := append(append([]string{}, e.state.Inventory...), picked.Type)
	return succeeded(
		fmt.Sprintf("picked up %s at %s", picked.Type, pos),
		world.Delta{Items: items, Inventory: inventory},
	)
}

func (e *GridNavigationEngine) wait(params map[string]any) ActionResult {
	turns, err := intParam(params, "turns", 1)
	if err != nil || turns < 1 {
		turns = 1
	}
	next := e.state.Turn + turns
	return succeeded(fmt.Sprintf("waited %d turn(s)", turns), world.Delta{Turn: &next})
}

func intParam(params map[string]any, name string, fallback int) (int, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return fallback, nil
	}
	n, ok := schema.AsInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidParams, name, v)
	}
	return n, nil
}
