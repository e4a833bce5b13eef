package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(recoverCmd)
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <name>",
	Short: "Snapshot the current session state under a name",
	Long: `Snapshot the full current session state under a name. Snapshots are
write-once; use 'aflow resume' to restore one.

Examples:
  aflow checkpoint planning_complete`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpoint,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <id-or-name>",
	Short: "Replace the current session state with a snapshot",
	Long: `Replace the current session state with a checkpoint snapshot and
continue from that point. Work recorded after the checkpoint is lost
and must be re-derived by re-running.

Examples:
  aflow resume planning_complete
  aflow resume cp_1756000000000000000_a1b2c3d4`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

var recoverCmd = &cobra.Command{
	Use:   "recover <agent>",
	Short: "Decide retry, replan or escalate for a failing agent",
	Long: `Classify an agent's cumulative failure count into a recovery action:
fewer than 3 failures retries, fewer than 5 replans, 5 or more
escalates to a human with the accumulated failure history.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecover,
}

func runCheckpoint(cmd *cobra.Command, args []string) error {
	svc, _, err := initCheckpoints()
	if err != nil {
		return err
	}

	ref, err := svc.Save(context.Background(), args[0])
	if err != nil {
		return err
	}
	return outputJSON(ref)
}

func runResume(cmd *cobra.Command, args []string) error {
	svc, _, err := initCheckpoints()
	if err != nil {
		return err
	}

	sess, err := svc.Resume(context.Background(), args[0])
	if err != nil {
		return err
	}
	return outputJSON(sess)
}

func runRecover(cmd *cobra.Command, args []string) error {
	svc, _, err := initCheckpoints()
	if err != nil {
		return err
	}

	decision, err := svc.Recover(context.Background(), args[0])
	if err != nil {
		return err
	}
	return outputJSON(decision)
}
