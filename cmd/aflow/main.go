// Package main implements the aflow CLI, the command surface over the
// orchestration session store and the context budget manager. Every
// machine-readable command emits a single JSON value on stdout;
// diagnostics go to stderr.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentflow/internal/budget"
	"github.com/fyrsmithlabs/agentflow/internal/checkpoint"
	"github.com/fyrsmithlabs/agentflow/internal/config"
	"github.com/fyrsmithlabs/agentflow/internal/logging"
	"github.com/fyrsmithlabs/agentflow/internal/session"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// storageRoot overrides the configured storage root.
	storageRoot string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aflow",
	Short: "Multi-agent orchestration sessions and context budgets",
	Long: `aflow sequences agent invocations through a durable session record:
routing, lifecycle tracking, context handoffs, checkpoints and recovery
decisions. It also tracks approximate token budgets for named context
pools, tiers aging content and caches computed summaries.

The agents themselves run elsewhere; aflow only brokers their state.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/agentflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storageRoot, "root", "", "storage root (overrides config)")
}

// loadConfig loads configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}
	if storageRoot != "" {
		cfg.Storage.Root = storageRoot
	}
	return cfg, nil
}

// initSessions wires the session service and its store.
func initSessions() (*session.Service, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	store := session.NewStore(cfg.Storage.Root, cfg.Storage.LockTimeout, logger)
	return session.NewService(store, logger), logger, nil
}

// initCheckpoints wires the checkpoint service on top of the session store.
func initCheckpoints() (*checkpoint.Service, *session.Service, error) {
	sessions, logger, err := initSessions()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	svc, err := checkpoint.NewService(sessions.Store(), cfg.Recovery, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create checkpoint service: %w", err)
	}
	return svc, sessions, nil
}

// initBudget wires the budget manager.
func initBudget() (*budget.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return budget.NewManager(cfg, logger)
}

// outputJSON writes one indented JSON value to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
