package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agentworld/internal/app/catalog"
	"agentworld/internal/domain/schema"
)

var ErrInvalidRequest = errors.New("invalid tool registration request")

type Registrar interface {
	Validate(ctx context.Context, agentID, gameType string, defs []catalog.ToolDefinition) error
	Register(ctx context.Context, agentID, gameType string, defs []catalog.ToolDefinition) error
	Tools(agentID string) []catalog.Tool
}

// Store persists accepted bindings so later discovery finds them again.
type Store interface {
	Save(ctx context.Context, agentID, gameType string, defs []catalog.ToolDefinition) error
}

type UseCase struct {
	Catalog Registrar
	Store   Store
	Logger  *slog.Logger
}

// Register binds the tools for an agent. Bindings are validated, persisted and
// only then made visible in the catalog, so a failed call binds nothing.
func (u UseCase) Register(ctx context.Context, req RegisterRequest) (Response, error) {
	req.AgentID = strings.TrimSpace(req.AgentID)
	req.GameType = strings.TrimSpace(req.GameType)
	if req.GameType == "" {
		req.GameType = schema.GameTypeGridNavigation
	}
	if req.AgentID == "" || len(req.Tools) == 0 {
		return Response{}, ErrInvalidRequest
	}
	defs := make([]catalog.ToolDefinition, 0, len(req.Tools))
	names := make(map[string]bool, len(req.Tools))
	for _, b := range req.Tools {
		defs = append(defs, catalog.ToolDefinition{
			Name:        strings.TrimSpace(b.Name),
			Description: b.Description,
			ActionID:    strings.TrimSpace(b.ActionID),
			GameType:    req.GameType,
		})
		names[strings.TrimSpace(b.Name)] = true
	}
	if err := u.Catalog.Validate(ctx, req.AgentID, req.GameType, defs); err != nil {
		return Response{}, err
	}
	if u.Store != nil {
		if err := u.Store.Save(ctx, req.AgentID, req.GameType, defs); err != nil {
			u.logger().Warn("persist tool bindings failed", "agent_id", req.AgentID, "err", err)
			return Response{}, fmt.Errorf("persist tools: %w", err)
		}
	}
	if err := u.Catalog.Register(ctx, req.AgentID, req.GameType, defs); err != nil {
		return Response{}, err
	}

	out := Response{AgentID: req.AgentID, Tools: []ToolView{}}
	for _, t := range u.Catalog.Tools(req.AgentID) {
		if names[t.Name] && t.GameType == req.GameType {
			out.Tools = append(out.Tools, view(t))
		}
	}
	return out, nil
}

func (u UseCase) List(_ context.Context, agentID string) (Response, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return Response{}, ErrInvalidRequest
	}
	out := Response{AgentID: agentID, Tools: []ToolView{}}
	for _, t := range u.Catalog.Tools(agentID) {
		out.Tools = append(out.Tools, view(t))
	}
	return out, nil
}

func (u UseCase) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

func view(t catalog.Tool) ToolView {
	return ToolView{
		Name:        t.Name,
		Description: t.Description,
		ActionID:    t.ActionID,
		GameType:    t.GameType,
		Parameters:  t.Action.ParameterSchema(),
	}
}
