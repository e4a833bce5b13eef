package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute_ExistingPlanWins(t *testing.T) {
	// Even a goal full of refactor/creation signals defers to the plan.
	d := Route("refactor and create the new module", true)

	assert.Equal(t, WorkflowBuildOnly, d.Workflow)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, []string{AgentBuilder}, d.AgentSequence)
}

func TestRoute_Classification(t *testing.T) {
	tests := []struct {
		name           string
		goal           string
		wantWorkflow   Workflow
		wantConfidence float64
		wantSequence   []string
	}{
		{
			name:           "refactor signal",
			goal:           "Refactor the storage layer",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.9,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
		{
			name:           "restructure signal",
			goal:           "restructure module boundaries",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.9,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
		{
			name:           "creation signal add",
			goal:           "Add user authentication",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.85,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
		{
			name:           "creation signal implement",
			goal:           "implement retry backoff",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.85,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
		{
			name:           "fix signal",
			goal:           "fix the login redirect",
			wantWorkflow:   WorkflowBuildOnly,
			wantConfidence: 0.7,
			wantSequence:   []string{AgentBuilder},
		},
		{
			name:           "typo signal",
			goal:           "correct a typo in the README",
			wantWorkflow:   WorkflowBuildOnly,
			wantConfidence: 0.7,
			wantSequence:   []string{AgentBuilder},
		},
		{
			name:           "refactor beats fix",
			goal:           "refactor the bug-prone parser",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.9,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
		{
			name:           "creation beats fix",
			goal:           "add a fix for slow queries",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.85,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
		{
			name:           "ambiguous default",
			goal:           "make it faster",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.5,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
		{
			name:           "keywords match on word boundaries",
			goal:           "debug the addendum",
			wantWorkflow:   WorkflowPlanThenBuild,
			wantConfidence: 0.5,
			wantSequence:   []string{AgentPlanner, AgentBuilder},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Route(tt.goal, false)
			assert.Equal(t, tt.wantWorkflow, d.Workflow)
			assert.Equal(t, tt.wantConfidence, d.Confidence)
			assert.Equal(t, tt.wantSequence, d.AgentSequence)
		})
	}
}

func TestRoute_Deterministic(t *testing.T) {
	goal := "Add caching to the API layer"
	first := Route(goal, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Route(goal, false))
	}
}
