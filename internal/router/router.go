// Package router classifies an orchestration goal into a workflow and an
// ordered agent sequence. Classification is deterministic keyword
// matching so the same goal always routes the same way, which keeps
// routing auditable and testable.
package router

import (
	"strings"
	"unicode"
)

// Workflow is the selected high-level plan shape.
type Workflow string

const (
	WorkflowBuildOnly      Workflow = "build_only"
	WorkflowPlanThenBuild  Workflow = "plan_then_build"
	WorkflowMultiTask      Workflow = "multi_task"
	WorkflowDecomposeFirst Workflow = "decompose_first"
)

// Agent names used in routed sequences.
const (
	AgentPlanner = "planner"
	AgentBuilder = "builder"
)

// Decision is the router's output for one goal.
type Decision struct {
	Workflow      Workflow `json:"workflow"`
	Confidence    float64  `json:"confidence"`
	AgentSequence []string `json:"agent_sequence"`
}

// Signal keyword sets, checked in precedence order. First match wins.
var (
	refactorSignals = []string{"refactor", "reorganize", "restructure"}
	creationSignals = []string{"add", "create", "implement", "build"}
	fixSignals      = []string{"fix", "bug", "typo", "error"}
)

// Route maps a goal (plus an existing-plan signal) to a workflow
// decision. Precedence:
//
//  1. existing plan            -> build_only, 1.0, [builder]
//  2. refactor signal          -> plan_then_build, 0.9, [planner builder]
//  3. creation signal          -> plan_then_build, 0.85, [planner builder]
//  4. small-fix signal         -> build_only, 0.7, [builder]
//  5. ambiguous                -> plan_then_build, 0.5, [planner builder]
//
// The ambiguous default biases toward the safer, more thorough path.
func Route(goal string, hasExistingPlan bool) Decision {
	if hasExistingPlan {
		return Decision{
			Workflow:      WorkflowBuildOnly,
			Confidence:    1.0,
			AgentSequence: []string{AgentBuilder},
		}
	}

	words := tokenize(goal)

	if containsAny(words, refactorSignals) {
		return Decision{
			Workflow:      WorkflowPlanThenBuild,
			Confidence:    0.9,
			AgentSequence: []string{AgentPlanner, AgentBuilder},
		}
	}
	if containsAny(words, creationSignals) {
		return Decision{
			Workflow:      WorkflowPlanThenBuild,
			Confidence:    0.85,
			AgentSequence: []string{AgentPlanner, AgentBuilder},
		}
	}
	if containsAny(words, fixSignals) {
		return Decision{
			Workflow:      WorkflowBuildOnly,
			Confidence:    0.7,
			AgentSequence: []string{AgentBuilder},
		}
	}

	return Decision{
		Workflow:      WorkflowPlanThenBuild,
		Confidence:    0.5,
		AgentSequence: []string{AgentPlanner, AgentBuilder},
	}
}

// tokenize lowercases the goal and splits it on non-alphanumeric runes
// so keyword matches land on word boundaries ("addendum" does not match
// "add", "debug" does not match "bug").
func tokenize(goal string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(goal), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func containsAny(words map[string]bool, signals []string) bool {
	for _, sig := range signals {
		if words[sig] {
			return true
		}
	}
	return false
}
