package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentflow/internal/session"
)

var (
	// initMode selects implicit or explicit routing confirmation.
	initMode string
	// routeHasPlan signals that an existing plan should be built directly.
	routeHasPlan bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(agentStartCmd)
	rootCmd.AddCommand(agentCompleteCmd)
	rootCmd.AddCommand(agentFailCmd)
	rootCmd.AddCommand(handoffCmd)
	rootCmd.AddCommand(getHandoffCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(cleanupCmd)

	initCmd.Flags().StringVar(&initMode, "mode", "implicit", "routing mode: implicit or explicit")
	routeCmd.Flags().BoolVar(&routeHasPlan, "has-plan", false, "an existing plan should be built directly")
}

var initCmd = &cobra.Command{
	Use:   "init <goal>",
	Short: "Create a new orchestration session",
	Long: `Create a new orchestration session for a goal and set it as current.

Examples:
  # Start a session with auto-applied routing
  aflow init "Add user authentication"

  # Surface routing decisions for confirmation
  aflow init "Refactor the storage layer" --mode explicit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInit,
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Classify the session goal into a workflow",
	Long: `Classify the current session's goal into a workflow and agent sequence,
and write the decision into the session.

Examples:
  aflow route
  aflow route --has-plan`,
	RunE: runRoute,
}

var agentStartCmd = &cobra.Command{
	Use:   "agent-start <name>",
	Short: "Mark an agent active",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentStart,
}

var agentCompleteCmd = &cobra.Command{
	Use:   "agent-complete <name> [output-json]",
	Short: "Mark an agent completed, storing its output verbatim",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAgentComplete,
}

var agentFailCmd = &cobra.Command{
	Use:   "agent-fail <name> <message>",
	Short: "Record an agent failure",
	Long: `Record an agent failure in the session's failure log. The agent stays
eligible for retry; use 'aflow recover' to decide what happens next.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAgentFail,
}

var handoffCmd = &cobra.Command{
	Use:   "handoff <from> <to> <context-json>",
	Short: "Pass a context package from one agent to another",
	Args:  cobra.ExactArgs(3),
	RunE:  runHandoff,
}

var getHandoffCmd = &cobra.Command{
	Use:   "get-handoff <name>",
	Short: "Get the latest context addressed to an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetHandoff,
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the full current session record",
	RunE:  runState,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete the current session and clear the pointer",
	RunE:  runCleanup,
}

func runInit(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess, err := svc.Store().Init(strings.Join(args, " "), session.Mode(initMode))
	if err != nil {
		return err
	}
	return outputJSON(sess)
}

func runRoute(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess, err := svc.Route(routeHasPlan)
	if err != nil {
		return err
	}
	return outputJSON(sess.Routing)
}

func runAgentStart(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess, err := svc.AgentStart(args[0])
	if err != nil {
		return err
	}
	return outputJSON(sess.AgentState(args[0]))
}

func runAgentComplete(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var output json.RawMessage
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("output must be valid JSON, got %q", args[1])
		}
		output = json.RawMessage(args[1])
	}

	sess, err := svc.AgentComplete(args[0], output)
	if err != nil {
		return err
	}
	return outputJSON(sess.AgentState(args[0]))
}

func runAgentFail(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess, err := svc.AgentFail(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	return outputJSON(map[string]any{
		"agent":    args[0],
		"failures": sess.FailureCount(args[0]),
	})
}

func runHandoff(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess, err := svc.Handoff(args[0], args[1], []byte(args[2]))
	if err != nil {
		return err
	}
	return outputJSON(sess.Handoffs[len(sess.Handoffs)-1])
}

func runGetHandoff(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, err := svc.GetHandoff(args[0])
	if err != nil {
		return err
	}
	return outputJSON(ctx)
}

func runState(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess, err := svc.Store().Current()
	if err != nil {
		return err
	}
	return outputJSON(sess)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	svc, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess, err := svc.Store().Current()
	if err != nil {
		return err
	}
	if err := svc.Store().Cleanup(); err != nil {
		return err
	}
	return outputJSON(map[string]string{"cleaned_up": sess.ID})
}
