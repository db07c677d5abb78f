package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"agentworld/internal/app/catalog"
	"agentworld/internal/app/ports"
	"agentworld/internal/domain/engine"
	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"

	"github.com/google/uuid"
)

var (
	ErrReasoningService = errors.New("reasoning service failure")
	ErrTurnCap          = errors.New("turn cap reached")
	ErrTurnTimeout      = errors.New("reasoning turn timed out")
)

// Codes carried by error events.
const (
	CodeWorldNotFound       = "world_not_found"
	CodeUnsupportedGameType = "unsupported_game_type"
	CodeReasoningService    = "reasoning_service_failure"
	CodeTurnTimeout         = "turn_timeout"
	CodeTurnCap             = "turn_cap_reached"
	CodeEngine              = "engine_failure"
	CodeInternal            = "internal_error"
)

const (
	DefaultMaxTurns      = 20
	DefaultObserveRadius = 2
)

type UseCase struct {
	Worlds    ports.WorldStateStore
	Directory ports.WorldDirectory
	Actions   ActionRegistry
	Catalog   ToolCatalog
	Reasoning ports.ReasoningService
	Engines   EngineFactory

	TxManager ports.TxManager
	Events    ports.DeploymentEventRepository
	Summaries ports.DeploymentSummaryRepository
	Snapshots ports.WorldSnapshotRepository
	Archive   ports.TranscriptArchive
	Metrics   ports.DeploymentMetrics
	Logger    *slog.Logger

	MaxTurns      int
	TurnTimeout   time.Duration
	ObserveRadius int
	Now           func() time.Time
	NewID         func() string
}

// Deploy runs one deployment in its own goroutine and returns its events. The
// channel is closed right after the single complete event. Callers must either
// drain it or cancel ctx; once ctx is done nothing more is sent.
func (u UseCase) Deploy(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event)
	r := u.newRun(ctx, req, out)
	go r.loop()
	return out
}

type run struct {
	u      UseCase
	ctx    context.Context
	req    Request
	out    chan<- Event
	logger *slog.Logger
	now    func() time.Time

	id        string
	startedAt time.Time
	seq       int

	gone     bool
	failed   bool
	finished bool
	result   string

	meta    world.Meta
	actions schema.GameActionSet
	tools   map[string]catalog.Tool

	turns     int
	steps     int
	toolCalls int
	toolsUsed []string
}

func (u UseCase) newRun(ctx context.Context, req Request, out chan<- Event) *run {
	req.AgentID = strings.TrimSpace(req.AgentID)
	req.WorldID = strings.TrimSpace(req.WorldID)
	nowFn := u.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	newID := u.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := newID()
	return &run{
		u:         u,
		ctx:       ctx,
		req:       req,
		out:       out,
		now:       nowFn,
		id:        id,
		startedAt: nowFn(),
		tools:     map[string]catalog.Tool{},
		logger:    logger.With("deployment_id", id, "world_id", req.WorldID, "agent_id", req.AgentID),
	}
}

func (r *run) loop() {
	defer close(r.out)
	defer r.complete()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("deployment panicked", "panic", p, "stack", string(debug.Stack()))
			r.fail(CodeInternal, fmt.Errorf("internal error: %v", p))
		}
	}()
	r.logger.Info("deployment started")
	r.execute()
}

func (r *run) execute() {
	state, ok := r.u.Worlds.Get(r.req.WorldID)
	if r.req.WorldID == "" || !ok {
		r.fail(CodeWorldNotFound, fmt.Errorf("%w: %q", ports.ErrWorldNotFound, r.req.WorldID))
		return
	}
	r.meta = r.worldMeta()
	actions, ok := r.u.Actions.Lookup(r.meta.GameType)
	if !ok {
		r.fail(CodeUnsupportedGameType, fmt.Errorf("%w: %q", engine.ErrUnknownGameType, r.meta.GameType))
		return
	}
	r.actions = actions

	var discovered catalog.DiscoverResult
	if r.u.Catalog != nil {
		discovered = r.u.Catalog.Discover(r.ctx, r.req.AgentID, r.meta.GameType)
	}
	names := make([]string, 0, len(discovered.Tools))
	specs := make([]ports.ToolSpec, 0, len(discovered.Tools))
	for _, t := range discovered.Tools {
		r.tools[t.Name] = t
		names = append(names, t.Name)
		specs = append(specs, t.Spec())
	}
	if !r.emit(SystemData{
		DeploymentID: r.id,
		AgentID:      r.req.AgentID,
		WorldID:      r.req.WorldID,
		GameType:     r.meta.GameType,
		Goal:         r.req.Goal,
		Tools:        names,
		Warnings:     discovered.Warnings,
	}) {
		return
	}

	stream, err := r.u.Reasoning.Open(r.ctx, ports.ReasoningRequest{
		DeploymentID: r.id,
		AgentID:      r.req.AgentID,
		WorldID:      r.req.WorldID,
		Prompt:       buildPrompt(r.req.Goal, r.meta, state, discovered.Tools, r.observeRadius()),
		Tools:        specs,
		MaxTurns:     r.maxTurns(),
	})
	if err != nil {
		r.fail(CodeReasoningService, fmt.Errorf("%w: %v", ErrReasoningService, err))
		return
	}
	defer stream.Close()

	for {
		msg, ok, err := r.next(stream)
		if err != nil {
			r.fail(CodeTurnTimeout, err)
			return
		}
		if r.gone {
			return
		}
		if !ok {
			if err := stream.Err(); err != nil {
				r.fail(CodeReasoningService, fmt.Errorf("%w: %v", ErrReasoningService, err))
				return
			}
			r.finished = true
			return
		}
		r.turns++
		if msg.Kind == ports.MessageResult {
			r.result = msg.Text
			r.finished = true
			return
		}
		if r.turns > r.maxTurns() {
			r.fail(CodeTurnCap, fmt.Errorf("%w: %d turns", ErrTurnCap, r.maxTurns()))
			return
		}
		switch msg.Kind {
		case ports.MessageText:
			if !r.emit(TextData{Text: msg.Text}) {
				return
			}
		case ports.MessageThinking:
			if !r.emit(ThinkingData{Text: msg.Text}) {
				return
			}
		case ports.MessageToolUse:
			if !r.invoke(stream, msg) {
				return
			}
		default:
			r.logger.Debug("ignoring reasoning message", "kind", msg.Kind)
		}
	}
}

// next waits for one message. ok is false when the stream closed or the
// consumer went away; err is only set on a turn timeout.
func (r *run) next(stream ports.MessageStream) (ports.Message, bool, error) {
	var timeout <-chan time.Time
	if r.u.TurnTimeout > 0 {
		t := time.NewTimer(r.u.TurnTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-r.ctx.Done():
		r.gone = true
		return ports.Message{}, false, nil
	case msg, ok := <-stream.Messages():
		return msg, ok, nil
	case <-timeout:
		return ports.Message{}, false, fmt.Errorf("%w after %s", ErrTurnTimeout, r.u.TurnTimeout)
	}
}

// invoke handles one tool_use message. It returns false when the loop must stop.
func (r *run) invoke(stream ports.MessageStream, msg ports.Message) bool {
	r.toolCalls++
	tool, known := r.tools[msg.ToolName]
	call := ToolCallData{ToolUseID: msg.ToolUseID, Tool: msg.ToolName, Arguments: msg.Arguments}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	if known {
		call.ActionID = tool.ActionID
	}
	if !r.emit(call) {
		return false
	}

	var (
		result  engine.ActionResult
		state   world.State
		changed bool
	)
	if !known {
		result = rejected(fmt.Errorf("unknown tool %q", msg.ToolName))
	} else if args, err := tool.PrepareArgs(r.ctx, msg.Arguments); err != nil {
		result = rejected(err)
	} else {
		current, ok := r.u.Worlds.Get(r.req.WorldID)
		if !ok {
			r.fail(CodeWorldNotFound, fmt.Errorf("%w: %q", ports.ErrWorldNotFound, r.req.WorldID))
			return false
		}
		eng, err := r.u.Engines.NewEngine(r.req.WorldID, r.actions, current)
		if err != nil {
			r.fail(CodeEngine, err)
			return false
		}
		result = eng.Execute(r.ctx, tool.ActionID, args)
		if result.Success && !result.StateDelta.IsEmpty() {
			merged, err := r.u.Worlds.Apply(r.req.WorldID, result.StateDelta)
			if err != nil {
				result = rejected(err)
			} else {
				state, changed = merged, true
			}
		}
	}

	if r.u.Metrics != nil {
		metricID := call.ActionID
		if metricID == "" {
			metricID = msg.ToolName
		}
		r.u.Metrics.RecordToolCall(metricID, result.Success)
	}
	if !r.emit(ToolResultData{
		ToolUseID:  msg.ToolUseID,
		Tool:       msg.ToolName,
		ActionID:   call.ActionID,
		Success:    result.Success,
		Message:    result.Message,
		Error:      result.Error,
		StateDelta: result.StateDelta,
	}) {
		return false
	}
	if changed {
		if !r.emit(WorldUpdateData{
			WorldID:       r.req.WorldID,
			AgentPosition: state.AgentPosition,
			Inventory:     append([]string{}, state.Inventory...),
			Turn:          state.Turn,
			Changed:       changedFields(result.StateDelta),
		}) {
			return false
		}
	}
	if result.Success {
		r.steps++
		r.markUsed(msg.ToolName)
	}

	content, _ := json.Marshal(result)
	if err := stream.Reply(r.ctx, ports.ToolReply{
		ToolUseID: msg.ToolUseID,
		ToolName:  msg.ToolName,
		Success:   result.Success,
		Content:   string(content),
	}); err != nil {
		if r.ctx.Err() != nil {
			r.gone = true
			return false
		}
		r.fail(CodeReasoningService, fmt.Errorf("%w: reply: %v", ErrReasoningService, err))
		return false
	}
	return true
}

func (r *run) markUsed(name string) {
	for _, n := range r.toolsUsed {
		if n == name {
			return
		}
	}
	r.toolsUsed = append(r.toolsUsed, name)
}

// emit delivers one event unless the consumer is gone.
func (r *run) emit(data EventData) bool {
	if r.gone {
		return false
	}
	if r.ctx.Err() != nil {
		r.gone = true
		return false
	}
	e := NewEvent(data)
	select {
	case r.out <- e:
	case <-r.ctx.Done():
		r.gone = true
		return false
	}
	r.record(e)
	return true
}

// fail emits the deployment's single error event.
func (r *run) fail(code string, err error) {
	if r.failed {
		return
	}
	r.failed = true
	if r.u.Metrics != nil {
		r.u.Metrics.RecordFailure(code)
	}
	r.logger.Warn("deployment failed", "code", code, "err", err)
	r.emit(ErrorData{Code: code, Message: err.Error()})
}

func (r *run) complete() {
	success := r.finished && !r.failed && !r.gone
	used := r.toolsUsed
	if used == nil {
		used = []string{}
	}
	r.emit(CompleteData{
		DeploymentID: r.id,
		Success:      success,
		TotalSteps:   r.steps,
		ToolCalls:    r.toolCalls,
		ToolsUsed:    used,
		Turns:        r.turns,
		Result:       r.result,
	})
	r.persist(success)
	if r.u.Metrics != nil {
		r.u.Metrics.RecordDeployment(success, r.steps)
	}
	r.logger.Info("deployment finished", "success", success, "steps", r.steps, "turns", r.turns, "cancelled", r.gone)
}

func (r *run) persist(success bool) {
	if r.u.Summaries == nil && r.u.Snapshots == nil {
		return
	}
	ctx := context.WithoutCancel(r.ctx)
	summary := ports.DeploymentSummary{
		DeploymentID: r.id,
		AgentID:      r.req.AgentID,
		WorldID:      r.req.WorldID,
		Goal:         r.req.Goal,
		Success:      success,
		TotalSteps:   r.steps,
		ToolsUsed:    append([]string{}, r.toolsUsed...),
		StartedAt:    r.startedAt,
		FinishedAt:   r.now(),
	}
	save := func(txCtx context.Context) error {
		if r.u.Summaries != nil {
			if err := r.u.Summaries.Save(txCtx, summary); err != nil {
				return err
			}
		}
		if r.u.Snapshots != nil && r.meta.ID != "" {
			if state, ok := r.u.Worlds.Get(r.req.WorldID); ok {
				if err := r.u.Snapshots.SaveSnapshot(txCtx, r.req.WorldID, state); err != nil {
					return err
				}
			}
		}
		return nil
	}
	var err error
	if r.u.TxManager != nil {
		err = r.u.TxManager.RunInTx(ctx, save)
	} else {
		err = save(ctx)
	}
	if err != nil {
		r.logger.Warn("persist deployment summary failed", "err", err)
	}
}

type archiveRecord struct {
	DeploymentID string    `json:"deployment_id"`
	Seq          int       `json:"seq"`
	OccurredAt   time.Time `json:"occurred_at"`
	Event        Event     `json:"event"`
}

func (r *run) record(e Event) {
	seq := r.seq
	r.seq++
	if r.u.Events == nil && r.u.Archive == nil {
		return
	}
	at := r.now()
	if r.u.Events != nil {
		raw, err := json.Marshal(e.Data)
		if err == nil {
			err = r.u.Events.Append(context.WithoutCancel(r.ctx), ports.DeploymentEventRecord{
				DeploymentID: r.id,
				Seq:          seq,
				EventType:    string(e.Type),
				Data:         raw,
				OccurredAt:   at,
			})
		}
		if err != nil {
			r.logger.Warn("record deployment event failed", "seq", seq, "err", err)
		}
	}
	if r.u.Archive != nil {
		if err := r.u.Archive.Write(archiveRecord{DeploymentID: r.id, Seq: seq, OccurredAt: at, Event: e}); err != nil {
			r.logger.Warn("archive deployment event failed", "seq", seq, "err", err)
		}
	}
}

func (r *run) worldMeta() world.Meta {
	meta := world.Meta{ID: r.req.WorldID}
	if r.u.Directory != nil {
		if m, ok := r.u.Directory.Meta(r.req.WorldID); ok {
			meta = m
		}
	}
	if meta.ID == "" {
		meta.ID = r.req.WorldID
	}
	if meta.GameType == "" {
		meta.GameType = schema.GameTypeGridNavigation
	}
	return meta
}

func (r *run) maxTurns() int {
	if r.u.MaxTurns > 0 {
		return r.u.MaxTurns
	}
	return DefaultMaxTurns
}

func (r *run) observeRadius() int {
	if r.u.ObserveRadius > 0 {
		return r.u.ObserveRadius
	}
	return DefaultObserveRadius
}

func rejected(err error) engine.ActionResult {
	return engine.ActionResult{Success: false, Message: err.Error(), Error: err.Error()}
}

func changedFields(d world.Delta) []string {
	fields := d.Fields()
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
