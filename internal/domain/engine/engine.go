package engine

import (
	"context"
	"errors"
	"fmt"

	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"
)

var (
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrInvalidParams     = errors.New("invalid action params")
	ErrOutOfBounds       = errors.New("move leaves the grid")
	ErrBlocked           = errors.New("path blocked")
	ErrNothingToPickUp   = errors.New("nothing to pick up")
	ErrUnknownGameType   = errors.New("unknown game type")
)

// ActionResult is the outcome of one action. Failures are data, not errors:
// a failed result carries Error and an empty StateDelta.
type ActionResult struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	StateDelta world.Delta `json:"state_delta"`
	Error      string      `json:"error,omitempty"`
}

func succeeded(msg string, delta world.Delta) ActionResult {
	return ActionResult{Success: true, Message: msg, StateDelta: delta}
}

func failed(err error) ActionResult {
	return ActionResult{Success: false, Message: err.Error(), Error: err.Error()}
}

// Engine applies one action to the world state it was built with.
type Engine interface {
	Execute(ctx context.Context, actionID string, params map[string]any) ActionResult
}

type Constructor func(worldID string, actions schema.GameActionSet, state world.State) Engine

var constructors = map[string]Constructor{
	schema.GameTypeGridNavigation: func(worldID string, actions schema.GameActionSet, state world.State) Engine {
		return NewGridNavigation(worldID, actions, state)
	},
}

// New builds the engine registered for actions.GameType.
func New(worldID string, actions schema.GameActionSet, state world.State) (Engine, error) {
	ctor, ok := constructors[actions.GameType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGameType, actions.GameType)
	}
	return ctor(worldID, actions, state), nil
}

// Factory adapts New to the orchestrator's engine port.
type Factory struct{}

func (Factory) NewEngine(worldID string, actions schema.GameActionSet, state world.State) (Engine, error) {
	return New(worldID, actions, state)
}
