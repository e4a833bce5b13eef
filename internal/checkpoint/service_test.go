package checkpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/agentflow/internal/config"
	"github.com/fyrsmithlabs/agentflow/internal/session"
)

func newTestService(t *testing.T) (*Service, *session.Service) {
	t.Helper()
	store := session.NewStore(t.TempDir(), 2*time.Second, nil)
	sessions := session.NewService(store, nil)

	svc, err := NewService(store, config.Default().Recovery, nil)
	require.NoError(t, err)
	return svc, sessions
}

func TestSave_AppendsReferenceAndWritesSnapshot(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("Add feature", session.ModeImplicit)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := svc.Save(ctx, "planning_complete")
	require.NoError(t, err)

	assert.NotEmpty(t, ref.ID)
	assert.Equal(t, "planning_complete", ref.Name)

	sess, err := sessions.Store().Current()
	require.NoError(t, err)
	require.Len(t, sess.Checkpoints, 1)
	assert.Equal(t, ref.ID, sess.Checkpoints[0].ID)

	snap, err := svc.Load(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "planning_complete", snap.Name)
	assert.Equal(t, sess.ID, snap.Session.ID)
}

func TestSave_EmptyName(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("goal", session.ModeImplicit)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestSave_NoActiveSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Save(context.Background(), "cp")
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
}

func TestRoundTrip_ResumeReproducesStateAtSaveTime(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("Add user authentication", session.ModeImplicit)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = sessions.Route(false)
	require.NoError(t, err)
	_, err = sessions.AgentStart("planner")
	require.NoError(t, err)
	_, err = sessions.AgentComplete("planner", json.RawMessage(`{"plan_id":"bp_001"}`))
	require.NoError(t, err)

	atSave, err := sessions.Store().Current()
	require.NoError(t, err)

	ref, err := svc.Save(ctx, "planning_complete")
	require.NoError(t, err)

	// Mutate past the checkpoint: this work is lost on resume.
	_, err = sessions.AgentStart("builder")
	require.NoError(t, err)
	_, err = sessions.AgentFail("builder", "crashed mid-build")
	require.NoError(t, err)

	restored, err := svc.Resume(ctx, ref.ID)
	require.NoError(t, err)

	assert.Equal(t, atSave.ID, restored.ID)
	assert.Equal(t, atSave.Goal, restored.Goal)
	assert.Equal(t, atSave.Routing, restored.Routing)
	assert.Equal(t, atSave.AgentStates, restored.AgentStates)
	assert.Empty(t, restored.Failures, "post-checkpoint failures are gone")
	assert.Nil(t, restored.AgentState("builder"))

	current, err := sessions.Store().Current()
	require.NoError(t, err)
	assert.Equal(t, atSave.AgentStates, current.AgentStates)
}

func TestResume_ByName(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("goal", session.ModeImplicit)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Save(ctx, "before_build")
	require.NoError(t, err)

	restored, err := svc.Resume(ctx, "before_build")
	require.NoError(t, err)
	assert.Equal(t, "goal", restored.Goal)
}

func TestResume_UnknownSnapshot(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("goal", session.ModeImplicit)
	require.NoError(t, err)

	_, err = svc.Resume(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshot_ExcludesOwnReference(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("goal", session.ModeImplicit)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := svc.Save(ctx, "first")
	require.NoError(t, err)

	snap, err := svc.Load(ctx, ref.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.Session.Checkpoints,
		"snapshot captures state at the moment of the call, before the reference is appended")
}

func TestRecover_ThresholdsAreMonotonic(t *testing.T) {
	tests := []struct {
		failures int
		want     Action
	}{
		{0, ActionRetry},
		{1, ActionRetry},
		{2, ActionRetry},
		{3, ActionReplan},
		{4, ActionReplan},
		{5, ActionEscalate},
		{7, ActionEscalate},
	}

	for _, tt := range tests {
		svc, sessions := newTestService(t)
		_, err := sessions.Store().Init("goal", session.ModeImplicit)
		require.NoError(t, err)

		for i := 0; i < tt.failures; i++ {
			_, err := sessions.AgentFail("builder", "boom")
			require.NoError(t, err)
		}

		d, err := svc.Recover(context.Background(), "builder")
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Action, "failures=%d", tt.failures)
		assert.Equal(t, tt.failures, d.Failures)
	}
}

func TestRecover_CountsAreScopedPerAgent(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("goal", session.ModeImplicit)
	require.NoError(t, err)

	// Drown the planner in failures; the builder stays retryable.
	for i := 0; i < 6; i++ {
		_, err := sessions.AgentFail("planner", "bad plan")
		require.NoError(t, err)
	}
	_, err = sessions.AgentFail("builder", "flaky test")
	require.NoError(t, err)

	ctx := context.Background()

	planner, err := svc.Recover(ctx, "planner")
	require.NoError(t, err)
	assert.Equal(t, ActionEscalate, planner.Action)

	builder, err := svc.Recover(ctx, "builder")
	require.NoError(t, err)
	assert.Equal(t, ActionRetry, builder.Action)
}

func TestRecover_EscalateCarriesHistory(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("goal", session.ModeImplicit)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := sessions.AgentFail("builder", "boom")
		require.NoError(t, err)
	}

	d, err := svc.Recover(context.Background(), "builder")
	require.NoError(t, err)

	assert.Equal(t, ActionEscalate, d.Action)
	require.Len(t, d.History, 5, "escalation surfaces the accumulated failure history")
	assert.Equal(t, "boom", d.History[0].ErrorMessage)
}

func TestRecover_DoesNotMutate(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("goal", session.ModeImplicit)
	require.NoError(t, err)
	_, err = sessions.AgentFail("builder", "boom")
	require.NoError(t, err)

	before, err := sessions.Store().Current()
	require.NoError(t, err)

	_, err = svc.Recover(context.Background(), "builder")
	require.NoError(t, err)

	after, err := sessions.Store().Current()
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.Failures, after.Failures)
}

func TestEndToEnd_FailureScenario(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := sessions.Store().Init("fix the flaky deploy", session.ModeImplicit)
	require.NoError(t, err)
	_, err = sessions.Route(false)
	require.NoError(t, err)

	_, err = sessions.AgentStart("builder")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := sessions.AgentFail("builder", "deploy script exits 1")
		require.NoError(t, err)
	}

	d, err := svc.Recover(context.Background(), "builder")
	require.NoError(t, err)
	assert.Equal(t, ActionEscalate, d.Action)
	assert.Equal(t, 5, d.Failures)
}
