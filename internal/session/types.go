package session

import (
	"encoding/json"
	"time"
)

// Mode controls whether routing decisions are auto-applied or surfaced
// for confirmation.
type Mode string

const (
	ModeImplicit Mode = "implicit"
	ModeExplicit Mode = "explicit"
)

// ValidMode reports whether m is a recognized session mode.
func ValidMode(m Mode) bool {
	return m == ModeImplicit || m == ModeExplicit
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRouting      Status = "routing"
	StatusExecuting    Status = "executing"
	StatusPaused       Status = "paused"
	StatusRecovering   Status = "recovering"
	StatusCompleted    Status = "completed"
	StatusAborted      Status = "aborted"
)

// AgentStatus is the lifecycle state of one agent within a session.
type AgentStatus string

const (
	AgentPending   AgentStatus = "pending"
	AgentActive    AgentStatus = "active"
	AgentCompleted AgentStatus = "completed"
)

// Workflow is the selected high-level plan shape.
type Workflow string

const (
	WorkflowBuildOnly      Workflow = "build_only"
	WorkflowPlanThenBuild  Workflow = "plan_then_build"
	WorkflowMultiTask      Workflow = "multi_task"
	WorkflowDecomposeFirst Workflow = "decompose_first"
)

// SequenceEntry is one agent slot in the routed execution order.
type SequenceEntry struct {
	Agent  string      `json:"agent"`
	Status AgentStatus `json:"status"`
}

// Routing records the router's decision for this session.
type Routing struct {
	Workflow      Workflow        `json:"workflow"`
	Confidence    float64         `json:"confidence"`
	AgentSequence []SequenceEntry `json:"agent_sequence"`
}

// AgentState accumulates one agent's lifecycle across repeated
// start/complete calls. It is updated in place, never replaced.
type AgentState struct {
	Agent       string          `json:"agent"`
	Status      AgentStatus     `json:"status"`
	Output      json.RawMessage `json:"output,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Handoff is one context package passed from a source agent to a
// destination agent. The log is append-only.
type Handoff struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Context   json.RawMessage `json:"context_passed"`
	Timestamp time.Time       `json:"timestamp"`
}

// CheckpointRef points at a separately stored full-state snapshot.
type CheckpointRef struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Failure is one recorded agent failure. The failures log is never
// truncated within a session; recovery decisions are derived from it.
type Failure struct {
	Agent        string    `json:"agent"`
	ErrorMessage string    `json:"error_message"`
	Timestamp    time.Time `json:"timestamp"`
}

// Session is one end-to-end orchestration run.
type Session struct {
	ID          string          `json:"id"`
	Mode        Mode            `json:"mode"`
	Status      Status          `json:"status"`
	Goal        string          `json:"goal"`
	Routing     *Routing        `json:"routing,omitempty"`
	AgentStates []AgentState    `json:"agent_states"`
	Handoffs    []Handoff       `json:"handoffs"`
	Checkpoints []CheckpointRef `json:"checkpoints"`
	Failures    []Failure       `json:"failures"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AgentState returns the accumulated entry for the named agent, or nil.
func (s *Session) AgentState(name string) *AgentState {
	for i := range s.AgentStates {
		if s.AgentStates[i].Agent == name {
			return &s.AgentStates[i]
		}
	}
	return nil
}

// FailureCount returns how many failures are recorded for one agent.
// Counts are scoped per agent name.
func (s *Session) FailureCount(agent string) int {
	n := 0
	for _, f := range s.Failures {
		if f.Agent == agent {
			n++
		}
	}
	return n
}

// FailureHistory returns the recorded failures for one agent, oldest first.
func (s *Session) FailureHistory(agent string) []Failure {
	var out []Failure
	for _, f := range s.Failures {
		if f.Agent == agent {
			out = append(out, f)
		}
	}
	return out
}

// sequenceDone reports whether every routed agent has completed.
func (s *Session) sequenceDone() bool {
	if s.Routing == nil || len(s.Routing.AgentSequence) == 0 {
		return false
	}
	for _, e := range s.Routing.AgentSequence {
		if e.Status != AgentCompleted {
			return false
		}
	}
	return true
}

// emptyObject is stored when a handoff context is missing or malformed.
var emptyObject = json.RawMessage(`{}`)
