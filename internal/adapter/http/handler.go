package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"agentworld/internal/app/actions"
	"agentworld/internal/app/catalog"
	"agentworld/internal/app/deploy"
	"agentworld/internal/app/observe"
	"agentworld/internal/app/ports"
	"agentworld/internal/app/replay"
	"agentworld/internal/app/tools"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const contentTypeNDJSON = "application/x-ndjson"

var ErrInvalidDeployRequest = errors.New("agent_id and world_id are required")

type deployer interface {
	Deploy(ctx context.Context, req deploy.Request) <-chan deploy.Event
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

type Handler struct {
	DeployUC  deployer
	ActionsUC actions.UseCase
	ObserveUC observe.UseCase
	ReplayUC  replay.UseCase
	ToolsUC   tools.UseCase
	KPI       kpiSnapshotProvider
	Logger    *slog.Logger

	// CORSOrigins restricts cross-origin callers; empty allows any.
	CORSOrigins []string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware(h.CORSOrigins))

	api := s.Group("/api")
	api.POST("/deployments", h.deploy)
	api.GET("/deployments/:id/events", h.replay)
	api.GET("/worlds/:id/actions", h.listActions)
	api.GET("/worlds/:id/state", h.observe)
	api.POST("/agents/:id/tools", h.registerTools)
	api.GET("/agents/:id/tools", h.listTools)

	s.GET("/ops/kpi", h.kpi)
}

type deployRequest struct {
	AgentID string `json:"agent_id"`
	WorldID string `json:"world_id"`
	Goal    string `json:"goal"`
}

type registerToolsRequest struct {
	GameType string          `json:"game_type"`
	Tools    []tools.Binding `json:"tools"`
}

// deploy streams the deployment as newline-delimited JSON events. The stream
// outlives the handler; a failed write cancels the deployment.
func (h Handler) deploy(c context.Context, ctx *app.RequestContext) {
	var body deployRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if strings.TrimSpace(body.AgentID) == "" || strings.TrimSpace(body.WorldID) == "" {
		writeError(ctx, ErrInvalidDeployRequest)
		return
	}

	dctx, cancel := context.WithCancel(context.WithoutCancel(c))
	events := h.DeployUC.Deploy(dctx, deploy.Request{AgentID: body.AgentID, WorldID: body.WorldID, Goal: body.Goal})
	pr, pw := io.Pipe()
	go streamNDJSON(pw, events, cancel, h.logger())

	ctx.SetStatusCode(consts.StatusOK)
	ctx.SetContentType(contentTypeNDJSON)
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("X-Content-Type-Options", "nosniff")
	ctx.SetBodyStream(pr, -1)
}

func streamNDJSON(pw *io.PipeWriter, events <-chan deploy.Event, cancel context.CancelFunc, logger *slog.Logger) {
	defer cancel()
	enc := json.NewEncoder(pw)
	for e := range events {
		if err := enc.Encode(e); err != nil {
			logger.Info("deployment stream consumer gone", "err", err)
			cancel()
			for range events {
			}
			_ = pw.CloseWithError(err)
			return
		}
	}
	_ = pw.Close()
}

func (h Handler) replay(c context.Context, ctx *app.RequestContext) {
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	occurredFrom, _ := strconv.ParseInt(string(ctx.Query("occurred_from")), 10, 64)
	occurredTo, _ := strconv.ParseInt(string(ctx.Query("occurred_to")), 10, 64)
	resp, err := h.ReplayUC.Execute(c, replay.Request{
		DeploymentID: ctx.Param("id"),
		Limit:        limit,
		OccurredFrom: occurredFrom,
		OccurredTo:   occurredTo,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) listActions(c context.Context, ctx *app.RequestContext) {
	resp, err := h.ActionsUC.Execute(c, actions.Request{WorldID: ctx.Param("id")})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) observe(c context.Context, ctx *app.RequestContext) {
	radius, _ := strconv.Atoi(string(ctx.Query("radius")))
	resp, err := h.ObserveUC.Execute(c, observe.Request{WorldID: ctx.Param("id"), Radius: radius})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) registerTools(c context.Context, ctx *app.RequestContext) {
	var body registerToolsRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.ToolsUC.Register(c, tools.RegisterRequest{
		AgentID:  ctx.Param("id"),
		GameType: body.GameType,
		Tools:    body.Tools,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) listTools(c context.Context, ctx *app.RequestContext) {
	resp, err := h.ToolsUC.List(c, ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	var bindErr *catalog.InvalidToolBindingError
	switch {
	case errors.As(err, &bindErr):
		writeErrorDetails(ctx, consts.StatusUnprocessableEntity, "invalid_tool_binding", err.Error(), map[string]any{
			"tool":      bindErr.Tool,
			"action_id": bindErr.ActionID,
			"game_type": bindErr.GameType,
		})
	case errors.Is(err, catalog.ErrInvalidToolBinding):
		writeErrorBody(ctx, consts.StatusUnprocessableEntity, "invalid_tool_binding", err.Error())
	case errors.Is(err, actions.ErrUnsupportedGameType):
		writeErrorBody(ctx, consts.StatusUnprocessableEntity, "unsupported_game_type", err.Error())
	case errors.Is(err, ports.ErrWorldNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "world_not_found", err.Error())
	case errors.Is(err, ErrInvalidDeployRequest),
		errors.Is(err, actions.ErrInvalidRequest),
		errors.Is(err, catalog.ErrInvalidRequest),
		errors.Is(err, observe.ErrInvalidRequest),
		errors.Is(err, replay.ErrInvalidRequest),
		errors.Is(err, tools.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeErrorDetails(ctx *app.RequestContext, status int, code, message string, details map[string]any) {
	ctx.JSON(status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
