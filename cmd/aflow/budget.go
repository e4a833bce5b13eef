package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentflow/internal/budget"
)

func init() {
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(tierCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cacheSetCmd)
	rootCmd.AddCommand(cacheGetCmd)
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <path>",
	Short: "Estimate a file's approximate token count",
	Long: `Estimate a file's approximate token count. Prose files (.md, .txt)
use a words-based heuristic; everything else is treated as structured
content with a denser per-character heuristic. The figures are
estimates for budget thresholding, not tokenizer output.`,
	Args: cobra.ExactArgs(1),
	RunE: runEstimate,
}

var budgetCmd = &cobra.Command{
	Use:   "budget <pool|all>",
	Short: "Report pool usage against soft/hard limits",
	Long: `Report one pool's usage, or every pool's with 'all'. Usage is computed
at query time by summing estimates over the pool's current contents.

Examples:
  aflow budget learnings
  aflow budget all`,
	Args: cobra.ExactArgs(1),
	RunE: runBudget,
}

var tierCmd = &cobra.Command{
	Use:   "tier <date>",
	Short: "Classify a date into a retention tier",
	Long: `Classify a date (YYYY-MM-DD or RFC3339) into a retention tier:
up to 30 days old keeps full content, 31-90 days keeps a summary,
older items keep only an index reference.`,
	Args: cobra.ExactArgs(1),
	RunE: runTier,
}

var scanCmd = &cobra.Command{
	Use:   "scan <scope>",
	Short: "Scan a content corpus and bucket items by tier",
	Long: `Walk a content source (a directory under the storage root, or an
absolute path), classify each dated item into a retention tier and
report counts and estimated sizes per tier. A missing directory
reports zero items.

Examples:
  aflow scan learnings`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var cacheSetCmd = &cobra.Command{
	Use:   "cache-set <key> <content>",
	Short: "Store content verbatim under a cache key",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheSet,
}

var cacheGetCmd = &cobra.Command{
	Use:   "cache-get <key>",
	Short: "Get cached content by key",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheGet,
}

func runEstimate(cmd *cobra.Command, args []string) error {
	tokens, err := budget.EstimateFile(args[0])
	if err != nil {
		return err
	}
	return outputJSON(map[string]any{
		"path":   args[0],
		"kind":   budget.KindForPath(args[0]),
		"tokens": tokens,
	})
}

func runBudget(cmd *cobra.Command, args []string) error {
	m, err := initBudget()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if args[0] == "all" {
		all, err := m.BudgetAll(ctx)
		if err != nil {
			return err
		}
		return outputJSON(all)
	}

	b, err := m.Budget(ctx, args[0])
	if err != nil {
		return err
	}
	return outputJSON(b)
}

func runTier(cmd *cobra.Command, args []string) error {
	info, err := budget.Tier(args[0])
	if err != nil {
		return err
	}
	return outputJSON(info)
}

func runScan(cmd *cobra.Command, args []string) error {
	m, err := initBudget()
	if err != nil {
		return err
	}

	report, err := m.Scan(context.Background(), args[0])
	if err != nil {
		return err
	}
	return outputJSON(report)
}

func runCacheSet(cmd *cobra.Command, args []string) error {
	m, err := initBudget()
	if err != nil {
		return err
	}

	if err := m.CacheSet(context.Background(), args[0], args[1]); err != nil {
		return err
	}
	return outputJSON(map[string]string{"key": args[0], "status": "stored"})
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	m, err := initBudget()
	if err != nil {
		return err
	}

	content, err := m.CacheGet(context.Background(), args[0])
	if err != nil {
		return err
	}
	return outputJSON(map[string]string{"key": args[0], "content": content})
}
