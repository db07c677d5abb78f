package scripted

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"agentworld/internal/app/ports"
)

var ErrStreamClosed = errors.New("scripted stream closed")

// Service is a rule-based stand-in for a language model: it plans from the
// goal line of the prompt and calls the offered tools step by step.
type Service struct {
	Logger *slog.Logger
}

func (s Service) Open(ctx context.Context, req ports.ReasoningRequest) (ports.MessageStream, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	st := &stream{
		msgs:    make(chan ports.Message),
		replies: make(chan ports.ToolReply, 1),
		done:    make(chan struct{}),
	}
	steps := Plan(goalOf(req.Prompt))
	logger.Debug("scripted plan", "deployment_id", req.DeploymentID, "steps", len(steps))
	go st.run(ctx, steps, req.Tools)
	return st, nil
}

func goalOf(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(line, "Goal:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return prompt
}

// toolFor picks the offered tool whose parameters fit the action.
func toolFor(action string, tools []ports.ToolSpec) (string, bool) {
	want := map[string]string{actionMove: "direction", actionPickup: "item_type", actionWait: "turns"}[action]
	for _, t := range tools {
		if t.Name == action {
			return t.Name, true
		}
	}
	for _, t := range tools {
		props, _ := t.Parameters["properties"].(map[string]any)
		if _, ok := props[want]; ok {
			return t.Name, true
		}
	}
	return "", false
}

type stream struct {
	msgs    chan ports.Message
	replies chan ports.ToolReply
	done    chan struct{}
	once    sync.Once

	mu  sync.Mutex
	err error
}

func (s *stream) Messages() <-chan ports.Message { return s.msgs }

func (s *stream) Reply(ctx context.Context, reply ports.ToolReply) error {
	select {
	case s.replies <- reply:
		return nil
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *stream) run(ctx context.Context, steps []Step, tools []ports.ToolSpec) {
	defer close(s.msgs)
	if len(steps) == 0 {
		s.send(ctx, ports.Message{Kind: ports.MessageText, Text: "I could not find an actionable step in the goal."})
		s.send(ctx, ports.Message{Kind: ports.MessageResult, Text: "no steps planned"})
		return
	}
	plan := make([]string, 0, len(steps))
	for _, st := range steps {
		plan = append(plan, fmt.Sprintf("%s %v", st.Action, st.Args))
	}
	if !s.send(ctx, ports.Message{Kind: ports.MessageThinking, Text: "Plan: " + strings.Join(plan, "; ")}) {
		return
	}

	done := 0
	for i, st := range steps {
		name, ok := toolFor(st.Action, tools)
		if !ok {
			s.send(ctx, ports.Message{Kind: ports.MessageText, Text: fmt.Sprintf("No tool available for %s, stopping.", st.Action)})
			break
		}
		if !s.send(ctx, ports.Message{
			Kind:      ports.MessageToolUse,
			ToolUseID: fmt.Sprintf("step-%d", i+1),
			ToolName:  name,
			Arguments: st.Args,
		}) {
			return
		}
		reply, ok := s.awaitReply(ctx)
		if !ok {
			return
		}
		if !reply.Success {
			s.send(ctx, ports.Message{Kind: ports.MessageText, Text: "Step failed: " + reply.Content})
			break
		}
		done++
	}
	s.send(ctx, ports.Message{Kind: ports.MessageResult, Text: fmt.Sprintf("completed %d of %d steps", done, len(steps))})
}

func (s *stream) send(ctx context.Context, msg ports.Message) bool {
	select {
	case s.msgs <- msg:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		s.setErr(ctx.Err())
		return false
	}
}

func (s *stream) awaitReply(ctx context.Context) (ports.ToolReply, bool) {
	select {
	case r := <-s.replies:
		return r, true
	case <-s.done:
		return ports.ToolReply{}, false
	case <-ctx.Done():
		s.setErr(ctx.Err())
		return ports.ToolReply{}, false
	}
}
