package inmemory

import "sync"

type Snapshot struct {
	DeploymentTotal   uint64            `json:"deployment_total"`
	DeploymentSuccess uint64            `json:"deployment_success"`
	DeploymentFailure uint64            `json:"deployment_failure"`
	StepsTotal        uint64            `json:"steps_total"`
	ToolCallTotal     uint64            `json:"tool_call_total"`
	ToolCallFailure   uint64            `json:"tool_call_failure"`
	ByAction          map[string]uint64 `json:"by_action"`
	ByFailureCode     map[string]uint64 `json:"by_failure_code"`
}

type Recorder struct {
	mu              sync.Mutex
	success         uint64
	failure         uint64
	steps           uint64
	toolCalls       uint64
	toolCallFailure uint64
	byAction        map[string]uint64
	byFailure       map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byAction:  map[string]uint64{},
		byFailure: map[string]uint64{},
	}
}

func (r *Recorder) RecordToolCall(actionID string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolCalls++
	if !success {
		r.toolCallFailure++
	}
	r.byAction[actionID]++
}

func (r *Recorder) RecordDeployment(success bool, steps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.success++
	} else {
		r.failure++
	}
	if steps > 0 {
		r.steps += uint64(steps)
	}
}

func (r *Recorder) RecordFailure(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byFailure[code]++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		DeploymentSuccess: r.success,
		DeploymentFailure: r.failure,
		DeploymentTotal:   r.success + r.failure,
		StepsTotal:        r.steps,
		ToolCallTotal:     r.toolCalls,
		ToolCallFailure:   r.toolCallFailure,
		ByAction:          make(map[string]uint64, len(r.byAction)),
		ByFailureCode:     make(map[string]uint64, len(r.byFailure)),
	}
	for k, v := range r.byAction {
		out.ByAction[k] = v
	}
	for k, v := range r.byFailure {
		out.ByFailureCode[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
