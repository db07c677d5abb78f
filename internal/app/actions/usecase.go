package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/schema"
)

var (
	ErrInvalidRequest      = errors.New("invalid action listing request")
	ErrUnsupportedGameType = errors.New("game type has no registered actions")
)

type ActionRegistry interface {
	Lookup(gameType string) (schema.GameActionSet, bool)
}

// UseCase lists the actions available in a world, grouped by category.
type UseCase struct {
	Worlds  ports.WorldDirectory
	Actions ActionRegistry
}

func (u UseCase) Execute(_ context.Context, req Request) (Response, error) {
	req.WorldID = strings.TrimSpace(req.WorldID)
	if req.WorldID == "" {
		return Response{}, ErrInvalidRequest
	}
	meta, ok := u.Worlds.Meta(req.WorldID)
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ports.ErrWorldNotFound, req.WorldID)
	}
	if meta.GameType == "" {
		meta.GameType = schema.GameTypeGridNavigation
	}
	set, ok := u.Actions.Lookup(meta.GameType)
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ErrUnsupportedGameType, meta.GameType)
	}
	return Response{World: meta, Actions: set.ByCategory()}, nil
}
