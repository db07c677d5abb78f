package observe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

var ErrInvalidRequest = errors.New("invalid observe request")

const (
	DefaultRadius = 2
	maxRadius     = 10
)

// UseCase reads the current state of one world together with the square view
// around the agent.
type UseCase struct {
	Worlds    ports.WorldStateStore
	Directory ports.WorldDirectory
}

func (u UseCase) Execute(_ context.Context, req Request) (Response, error) {
	req.WorldID = strings.TrimSpace(req.WorldID)
	if req.WorldID == "" || req.Radius < 0 || req.Radius > maxRadius {
		return Response{}, ErrInvalidRequest
	}
	if req.Radius == 0 {
		req.Radius = DefaultRadius
	}
	meta, ok := u.Directory.Meta(req.WorldID)
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ports.ErrWorldNotFound, req.WorldID)
	}
	state, ok := u.Worlds.Get(req.WorldID)
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ports.ErrWorldNotFound, req.WorldID)
	}
	return Response{
		World:       meta,
		State:       state,
		View:        world.Observe(state, req.Radius),
		Description: state.Describe(),
	}, nil
}
