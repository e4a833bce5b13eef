package session

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentflow/internal/router"
)

// Service implements the orchestration operations on top of the store:
// routing application, agent lifecycle tracking and context handoffs.
type Service struct {
	store  *Store
	logger *zap.Logger
}

// NewService creates a session service.
func NewService(store *Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Store exposes the underlying store for components that snapshot or
// replace whole sessions (checkpointing).
func (svc *Service) Store() *Store {
	return svc.store
}

// Route classifies the current session's goal and writes the decision
// into the session's routing field, with every sequence entry pending.
func (svc *Service) Route(hasExistingPlan bool) (*Session, error) {
	var decision router.Decision
	sess, err := svc.store.Update(func(s *Session) error {
		decision = router.Route(s.Goal, hasExistingPlan)

		seq := make([]SequenceEntry, len(decision.AgentSequence))
		for i, agent := range decision.AgentSequence {
			seq[i] = SequenceEntry{Agent: agent, Status: AgentPending}
		}
		s.Routing = &Routing{
			Workflow:      Workflow(decision.Workflow),
			Confidence:    decision.Confidence,
			AgentSequence: seq,
		}
		s.Status = StatusExecuting
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("routed session",
		zap.String("session_id", sess.ID),
		zap.String("workflow", string(decision.Workflow)),
		zap.Float64("confidence", decision.Confidence),
	)
	return sess, nil
}

// AgentStart marks the named agent active in both the routed sequence
// and the accumulated agent states. Starting an agent that already holds
// a terminal state re-opens it, which is how retries work.
func (svc *Service) AgentStart(name string) (*Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyAgent
	}
	return svc.store.Update(func(s *Session) error {
		now := time.Now().UTC()

		st := s.AgentState(name)
		if st == nil {
			s.AgentStates = append(s.AgentStates, AgentState{Agent: name})
			st = &s.AgentStates[len(s.AgentStates)-1]
		}
		st.Status = AgentActive
		st.StartedAt = &now
		st.CompletedAt = nil

		setSequenceStatus(s, name, AgentActive)
		s.Status = StatusExecuting
		return nil
	})
}

// AgentComplete marks the agent completed and stores its output verbatim.
// Output has no enforced schema here; that contract belongs to whichever
// component consumes it.
func (svc *Service) AgentComplete(name string, output json.RawMessage) (*Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyAgent
	}
	return svc.store.Update(func(s *Session) error {
		now := time.Now().UTC()

		st := s.AgentState(name)
		if st == nil {
			s.AgentStates = append(s.AgentStates, AgentState{Agent: name})
			st = &s.AgentStates[len(s.AgentStates)-1]
		}
		st.Status = AgentCompleted
		st.CompletedAt = &now
		if output != nil {
			st.Output = output
		}

		setSequenceStatus(s, name, AgentCompleted)
		if s.sequenceDone() {
			s.Status = StatusCompleted
		}
		return nil
	})
}

// AgentFail appends to the failures log. It deliberately does not move
// the agent to a terminal failed status: the failures log is the source
// of truth for recovery decisions, and the agent stays eligible for a
// retry via a later AgentStart.
func (svc *Service) AgentFail(name, message string) (*Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyAgent
	}
	sess, err := svc.store.Update(func(s *Session) error {
		s.Failures = append(s.Failures, Failure{
			Agent:        name,
			ErrorMessage: message,
			Timestamp:    time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Warn("agent failed",
		zap.String("session_id", sess.ID),
		zap.String("agent", name),
		zap.Int("failure_count", sess.FailureCount(name)),
	)
	return sess, nil
}

// Handoff appends a context package from one agent to another. Handoffs
// are best-effort continuity aids: a context that is not valid JSON is
// degraded to an empty object instead of failing the operation.
func (svc *Service) Handoff(from, to string, context []byte) (*Session, error) {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return nil, ErrEmptyAgent
	}

	ctx := normalizeContext(context)
	if len(context) > 0 && !json.Valid(context) {
		svc.logger.Warn("handoff context was not valid JSON, storing empty object",
			zap.String("from", from),
			zap.String("to", to),
		)
	}

	return svc.store.Update(func(s *Session) error {
		s.Handoffs = append(s.Handoffs, Handoff{
			From:      from,
			To:        to,
			Context:   ctx,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
}

// GetHandoff returns the context of the most recent handoff addressed to
// the named agent, or an empty object if none exists.
func (svc *Service) GetHandoff(to string) (json.RawMessage, error) {
	sess, err := svc.store.Current()
	if err != nil {
		return nil, err
	}
	for i := len(sess.Handoffs) - 1; i >= 0; i-- {
		if sess.Handoffs[i].To == to {
			return sess.Handoffs[i].Context, nil
		}
	}
	return emptyObject, nil
}

// normalizeContext returns ctx if it is a valid JSON value, otherwise an
// empty object.
func normalizeContext(ctx []byte) json.RawMessage {
	if len(ctx) == 0 || !json.Valid(ctx) {
		return emptyObject
	}
	return json.RawMessage(ctx)
}

// setSequenceStatus updates the routed sequence entry for the named
// agent, if routing happened and the agent is part of the sequence.
func setSequenceStatus(s *Session, name string, status AgentStatus) {
	if s.Routing == nil {
		return
	}
	for i := range s.Routing.AgentSequence {
		if s.Routing.AgentSequence[i].Agent == name {
			s.Routing.AgentSequence[i].Status = status
		}
	}
}
