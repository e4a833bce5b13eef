// Package checkpoint snapshots session state for recovery and decides
// retry/replan/escalate outcomes from the failures log.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentflow/internal/config"
	"github.com/fyrsmithlabs/agentflow/internal/session"
	"github.com/fyrsmithlabs/agentflow/internal/storage"
)

const instrumentationName = "github.com/fyrsmithlabs/agentflow/internal/checkpoint"

var (
	// ErrSnapshotNotFound is returned when no snapshot matches the
	// given id or name.
	ErrSnapshotNotFound = errors.New("checkpoint snapshot not found")

	// ErrEmptyName is returned when a checkpoint is saved without a name.
	ErrEmptyName = errors.New("checkpoint name is required")
)

// Service manages checkpoint snapshots and recovery decisions.
type Service struct {
	store    *session.Store
	recovery config.RecoveryConfig
	logger   *zap.Logger

	tracer          trace.Tracer
	meter           metric.Meter
	saveCounter     metric.Int64Counter
	resumeCounter   metric.Int64Counter
	recoveryCounter metric.Int64Counter
}

// NewService creates a checkpoint service.
func NewService(store *session.Store, recovery config.RecoveryConfig, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:    store,
		recovery: recovery,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"agentflow.checkpoint.saves_total",
		metric.WithDescription("Total number of checkpoints saved"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.resumeCounter, err = s.meter.Int64Counter(
		"agentflow.checkpoint.resumes_total",
		metric.WithDescription("Total number of checkpoint resumes"),
		metric.WithUnit("{resume}"),
	)
	if err != nil {
		s.logger.Warn("failed to create resume counter", zap.Error(err))
	}

	s.recoveryCounter, err = s.meter.Int64Counter(
		"agentflow.recovery.decisions_total",
		metric.WithDescription("Total number of recovery decisions by action"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		s.logger.Warn("failed to create recovery counter", zap.Error(err))
	}
}

// newCheckpointID returns a time-derived id so snapshots order by
// creation time.
func newCheckpointID() string {
	return fmt.Sprintf("cp_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

func (s *Service) snapshotPath(id string) string {
	return filepath.Join(s.store.CheckpointsDir(), id+".json")
}

// Save snapshots the full current session state under a name. The
// snapshot file is write-once; the {id, name, timestamp} reference is
// appended to the session's checkpoint list.
func (s *Service) Save(ctx context.Context, name string) (*session.CheckpointRef, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.save")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	span.SetAttributes(attribute.String("checkpoint_name", name))

	var ref session.CheckpointRef
	_, err := s.store.Update(func(sess *session.Session) error {
		ref = session.CheckpointRef{
			ID:        newCheckpointID(),
			Name:      name,
			Timestamp: time.Now().UTC(),
		}

		// The snapshot captures the session as it stands at the moment
		// of the call, before the reference itself is appended.
		snap := &Snapshot{
			ID:        ref.ID,
			Name:      name,
			CreatedAt: ref.Timestamp,
			Session:   cloneSession(sess),
		}
		if err := storage.WriteJSONExcl(s.snapshotPath(ref.ID), snap); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}

		sess.Checkpoints = append(sess.Checkpoints, ref)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1)
	}
	s.logger.Info("saved checkpoint",
		zap.String("checkpoint_id", ref.ID),
		zap.String("name", name),
	)
	span.SetAttributes(attribute.String("checkpoint_id", ref.ID))
	return &ref, nil
}

// Load retrieves a snapshot by id, or by name via the current session's
// checkpoint list (the most recent reference with that name wins).
func (s *Service) Load(ctx context.Context, idOrName string) (*Snapshot, error) {
	_, span := s.tracer.Start(ctx, "checkpoint.load")
	defer span.End()

	var snap Snapshot
	err := storage.ReadJSON(s.snapshotPath(idOrName), &snap)
	if err == nil {
		return &snap, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		return nil, err
	}

	// Not an id on disk; resolve as a name through the current session.
	sess, serr := s.store.Current()
	if serr != nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, idOrName)
	}
	for i := len(sess.Checkpoints) - 1; i >= 0; i-- {
		if sess.Checkpoints[i].Name == idOrName {
			if rerr := storage.ReadJSON(s.snapshotPath(sess.Checkpoints[i].ID), &snap); rerr != nil {
				span.RecordError(rerr)
				return nil, rerr
			}
			return &snap, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, idOrName)
}

// Resume replaces the current session state with a snapshot's copy.
// Anything recorded after the checkpoint is, by definition, lost and
// must be re-derived by re-running.
func (s *Service) Resume(ctx context.Context, idOrName string) (*session.Session, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.resume")
	defer span.End()

	snap, err := s.Load(ctx, idOrName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	restored := cloneSession(snap.Session)
	if err := s.store.Replace(restored); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.resumeCounter != nil {
		s.resumeCounter.Add(ctx, 1)
	}
	s.logger.Info("resumed from checkpoint",
		zap.String("checkpoint_id", snap.ID),
		zap.String("name", snap.Name),
		zap.String("session_id", restored.ID),
	)
	return restored, nil
}

// Recover classifies the named agent's cumulative failure count into a
// recovery action. Pure over the failures log: no mutation happens here.
// Escalation carries the accumulated failure history so a human operator
// sees what went wrong instead of another silent retry.
func (s *Service) Recover(ctx context.Context, agent string) (*Decision, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.recover")
	defer span.End()

	if strings.TrimSpace(agent) == "" {
		return nil, session.ErrEmptyAgent
	}

	sess, err := s.store.Current()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	count := sess.FailureCount(agent)
	decision := &Decision{Agent: agent, Failures: count}

	switch {
	case count < s.recovery.RetryLimit:
		decision.Action = ActionRetry
	case count < s.recovery.ReplanLimit:
		decision.Action = ActionReplan
	default:
		decision.Action = ActionEscalate
		decision.History = sess.FailureHistory(agent)
	}

	if s.recoveryCounter != nil {
		s.recoveryCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", string(decision.Action)),
		))
	}
	s.logger.Info("recovery decision",
		zap.String("agent", agent),
		zap.Int("failures", count),
		zap.String("action", string(decision.Action)),
	)
	return decision, nil
}

// cloneSession copies a session so snapshot and live state never share
// backing slices.
func cloneSession(sess *session.Session) *session.Session {
	out := *sess
	out.AgentStates = append([]session.AgentState(nil), sess.AgentStates...)
	out.Handoffs = append([]session.Handoff(nil), sess.Handoffs...)
	out.Checkpoints = append([]session.CheckpointRef(nil), sess.Checkpoints...)
	out.Failures = append([]session.Failure(nil), sess.Failures...)
	if sess.Routing != nil {
		r := *sess.Routing
		r.AgentSequence = append([]session.SequenceEntry(nil), sess.Routing.AgentSequence...)
		out.Routing = &r
	}
	return &out
}
