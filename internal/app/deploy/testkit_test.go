package deploy

import (
	"context"
	"sync"
	"testing"

	"agentworld/internal/adapter/repo/memory"
	"agentworld/internal/app/catalog"
	"agentworld/internal/app/ports"
	"agentworld/internal/domain/engine"
	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"
)

type stubStream struct {
	msgs    chan ports.Message
	err     error
	mu      sync.Mutex
	replies []ports.ToolReply
	closed  bool
}

// scripted returns a stream that yields msgs and then ends with err.
func scripted(err error, msgs ...ports.Message) *stubStream {
	ch := make(chan ports.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &stubStream{msgs: ch, err: err}
}

// blocking returns a stream that never yields.
func blocking() *stubStream {
	return &stubStream{msgs: make(chan ports.Message)}
}

func (s *stubStream) Messages() <-chan ports.Message { return s.msgs }

func (s *stubStream) Reply(_ context.Context, reply ports.ToolReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply)
	return nil
}

func (s *stubStream) Err() error { return s.err }

func (s *stubStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type stubReasoning struct {
	stream  *stubStream
	err     error
	request ports.ReasoningRequest
}

func (r *stubReasoning) Open(_ context.Context, req ports.ReasoningRequest) (ports.MessageStream, error) {
	r.request = req
	if r.err != nil {
		return nil, r.err
	}
	return r.stream, nil
}

type stubMetrics struct {
	mu          sync.Mutex
	toolCalls   map[string]int
	deployments []bool
	failures    []string
}

func (m *stubMetrics) RecordToolCall(actionID string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.toolCalls == nil {
		m.toolCalls = map[string]int{}
	}
	m.toolCalls[actionID]++
}

func (m *stubMetrics) RecordDeployment(success bool, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deployments = append(m.deployments, success)
}

func (m *stubMetrics) RecordFailure(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, code)
}

type fixture struct {
	store     *memory.Store
	worlds    memory.WorldStore
	catalog   *catalog.Catalog
	reasoning *stubReasoning
	metrics   *stubMetrics
	events    memory.DeploymentEventRepo
	summaries memory.DeploymentSummaryRepo
}

// newFixture seeds world "w1": a 5x5 grid with the agent at [1,1] and a key
// lying at [2,1].
func newFixture(t *testing.T, stream *stubStream) *fixture {
	t.Helper()
	store := memory.NewStore()
	worlds := memory.NewWorldStore(store)
	s, err := world.NewState(5, 5)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	s.AgentPosition = world.Point{X: 1, Y: 1}
	s.Items = []world.Item{{Type: "key", Position: world.Point{X: 2, Y: 1}}}
	if err := worlds.Put(world.Meta{ID: "w1", Name: "Meadow", GameType: schema.GameTypeGridNavigation}, s); err != nil {
		t.Fatalf("put world: %v", err)
	}
	return &fixture{
		store:     store,
		worlds:    worlds,
		catalog:   catalog.New(schema.DefaultRegistry(), nil, nil),
		reasoning: &stubReasoning{stream: stream},
		metrics:   &stubMetrics{},
		events:    memory.NewDeploymentEventRepo(store),
		summaries: memory.NewDeploymentSummaryRepo(store),
	}
}

func (f *fixture) withTools(t *testing.T, defs ...catalog.ToolDefinition) *fixture {
	t.Helper()
	if err := f.catalog.Register(context.Background(), "agent-1", schema.GameTypeGridNavigation, defs); err != nil {
		t.Fatalf("register tools: %v", err)
	}
	return f
}

func (f *fixture) useCase() UseCase {
	return UseCase{
		Worlds:    f.worlds,
		Directory: f.worlds,
		Actions:   schema.DefaultRegistry(),
		Catalog:   f.catalog,
		Reasoning: f.reasoning,
		Engines:   engine.Factory{},
		TxManager: memory.NewTxManager(f.store),
		Events:    f.events,
		Summaries: f.summaries,
		Snapshots: memory.NewWorldSnapshotRepo(f.store),
		Metrics:   f.metrics,
		NewID:     func() string { return "dep-1" },
	}
}

func collect(ch <-chan Event) []Event {
	var out []Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}

func types(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func toolUse(id, name string, args map[string]any) ports.Message {
	return ports.Message{Kind: ports.MessageToolUse, ToolUseID: id, ToolName: name, Arguments: args}
}

func resultMsg(text string) ports.Message {
	return ports.Message{Kind: ports.MessageResult, Text: text}
}
