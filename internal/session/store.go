// Package session holds the durable record of one orchestration run:
// the goal, the routing decision, accumulated agent lifecycle state,
// context handoffs and the append-only failures log. The CLI process
// exits between operations, so every mutation goes through the
// file-backed store.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentflow/internal/storage"
)

// Store persists sessions under a root directory:
//
//	<root>/sessions/<id>.json   one durable record per session
//	<root>/current              the active-session pointer
//	<root>/checkpoints/<id>.json  write-once snapshots
//
// Exactly one session may be current at a time; "current" is a pointer,
// not a copy. The store is an explicit handle so tests can run multiple
// independent stores in-process.
type Store struct {
	root        string
	lockTimeout time.Duration
	logger      *zap.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(root string, lockTimeout time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		root:        root,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// CheckpointsDir returns the directory holding checkpoint snapshots.
func (s *Store) CheckpointsDir() string {
	return filepath.Join(s.root, "checkpoints")
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.root, "sessions", id+".json")
}

func (s *Store) currentPath() string {
	return filepath.Join(s.root, "current")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.root, "state.lock")
}

// newSessionID returns an identifier unique per run and monotonically
// orderable by creation time (nanosecond prefix, uuid suffix).
func newSessionID() string {
	return fmt.Sprintf("sess_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// Init creates a new session with empty state and sets it as current.
func (s *Store) Init(goal string, mode Mode) (*Session, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrEmptyGoal
	}
	if !ValidMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	lock, err := storage.AcquireLock(s.lockPath(), s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	now := time.Now().UTC()
	sess := &Session{
		ID:          newSessionID(),
		Mode:        mode,
		Status:      StatusInitializing,
		Goal:        goal,
		AgentStates: []AgentState{},
		Handoffs:    []Handoff{},
		Checkpoints: []CheckpointRef{},
		Failures:    []Failure{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := storage.WriteJSON(s.sessionPath(sess.ID), sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	if err := storage.WriteString(s.currentPath(), sess.ID); err != nil {
		return nil, fmt.Errorf("failed to set current session: %w", err)
	}

	s.logger.Info("initialized session",
		zap.String("session_id", sess.ID),
		zap.String("mode", string(mode)),
	)
	return sess, nil
}

// Current returns the full record of the active session.
func (s *Store) Current() (*Session, error) {
	id, err := storage.ReadString(s.currentPath())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return s.Get(strings.TrimSpace(id))
}

// Get loads one session record by id.
func (s *Store) Get(id string) (*Session, error) {
	var sess Session
	if err := storage.ReadJSON(s.sessionPath(id), &sess); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: record for %s missing", ErrNoActiveSession, id)
		}
		return nil, err
	}
	return &sess, nil
}

// Update runs fn against the current session inside a locked
// load-mutate-write transaction. This is the only mutation path, so two
// racing invocations cannot lose updates.
func (s *Store) Update(fn func(*Session) error) (*Session, error) {
	lock, err := storage.AcquireLock(s.lockPath(), s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	sess, err := s.Current()
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()

	if err := storage.WriteJSON(s.sessionPath(sess.ID), sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return sess, nil
}

// Replace overwrites the current session state wholesale and points the
// current pointer at it. Used when resuming from a checkpoint snapshot.
func (s *Store) Replace(sess *Session) error {
	lock, err := storage.AcquireLock(s.lockPath(), s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	sess.UpdatedAt = time.Now().UTC()
	if err := storage.WriteJSON(s.sessionPath(sess.ID), sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := storage.WriteString(s.currentPath(), sess.ID); err != nil {
		return fmt.Errorf("failed to set current session: %w", err)
	}
	return nil
}

// Cleanup deletes the current session's record and clears the pointer.
// Calling it with no active session returns ErrNoActiveSession; callers
// that treat that as routine can check for it.
func (s *Store) Cleanup() error {
	lock, err := storage.AcquireLock(s.lockPath(), s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	sess, err := s.Current()
	if err != nil {
		return err
	}

	if err := storage.Remove(s.sessionPath(sess.ID)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := storage.Remove(s.currentPath()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	s.logger.Info("cleaned up session", zap.String("session_id", sess.ID))
	return nil
}
