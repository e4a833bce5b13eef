package checkpoint

import (
	"time"

	"github.com/fyrsmithlabs/agentflow/internal/session"
)

// Snapshot is the durable, write-once copy of a session taken at
// checkpoint time. Snapshots are immutable once written.
type Snapshot struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	CreatedAt time.Time        `json:"created_at"`
	Session   *session.Session `json:"session"`
}

// Action is the orchestrator's decision following agent failures.
type Action string

const (
	// ActionRetry re-runs the same agent with the same inputs.
	ActionRetry Action = "retry"

	// ActionReplan abandons the current approach and returns control to
	// the planning stage with failure context attached.
	ActionReplan Action = "replan"

	// ActionEscalate stops automatic recovery and surfaces the failure
	// history to a human operator.
	ActionEscalate Action = "escalate"
)

// Decision is the result of a recovery evaluation. It is an ordinary
// successful result, not an error: retry/replan/escalate is the designed
// response to agent failure.
type Decision struct {
	Agent    string            `json:"agent"`
	Action   Action            `json:"action"`
	Failures int               `json:"failures"`
	History  []session.Failure `json:"history,omitempty"`
}
