// Package config provides configuration loading for agentflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for agentflow.
type Config struct {
	Storage  StorageConfig         `koanf:"storage"`
	Recovery RecoveryConfig        `koanf:"recovery"`
	Pools    map[string]PoolLimits `koanf:"pools"`
	Logging  LoggingConfig         `koanf:"logging"`
}

// StorageConfig controls where durable state lives.
type StorageConfig struct {
	// Root is the directory holding sessions, checkpoints, pools and cache.
	Root string `koanf:"root"`

	// LockTimeout bounds how long a command waits for the state lock.
	LockTimeout time.Duration `koanf:"lock_timeout"`
}

// RecoveryConfig holds the failure-count thresholds for recovery decisions.
// Failure counts below RetryLimit yield retry, below ReplanLimit yield
// replan, and anything at or above ReplanLimit escalates.
type RecoveryConfig struct {
	RetryLimit  int `koanf:"retry_limit"`
	ReplanLimit int `koanf:"replan_limit"`
}

// PoolLimits bounds one context pool in approximate token units.
type PoolLimits struct {
	SoftLimit int `koanf:"soft_limit"`
	HardLimit int `koanf:"hard_limit"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// KnownPools is the fixed set of budget categories.
var KnownPools = []string{"reserved", "learnings", "backlog", "plans", "context7", "working"}

// defaultPoolLimits returns the built-in soft/hard limits per pool.
func defaultPoolLimits() map[string]PoolLimits {
	return map[string]PoolLimits{
		"reserved":  {SoftLimit: 20000, HardLimit: 25000},
		"learnings": {SoftLimit: 15000, HardLimit: 20000},
		"backlog":   {SoftLimit: 8000, HardLimit: 10000},
		"plans":     {SoftLimit: 10000, HardLimit: 12000},
		"context7":  {SoftLimit: 20000, HardLimit: 25000},
		"working":   {SoftLimit: 30000, HardLimit: 40000},
	}
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Root == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Storage.Root = filepath.Join(home, ".local", "share", "agentflow")
		}
	}
	if cfg.Storage.LockTimeout == 0 {
		cfg.Storage.LockTimeout = 5 * time.Second
	}
	if cfg.Recovery.RetryLimit == 0 {
		cfg.Recovery.RetryLimit = 3
	}
	if cfg.Recovery.ReplanLimit == 0 {
		cfg.Recovery.ReplanLimit = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	defaults := defaultPoolLimits()
	if cfg.Pools == nil {
		cfg.Pools = defaults
		return
	}
	// Fill in pools the file did not mention.
	for name, limits := range defaults {
		if _, ok := cfg.Pools[name]; !ok {
			cfg.Pools[name] = limits
		}
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage root must be set")
	}
	if c.Storage.LockTimeout <= 0 {
		return fmt.Errorf("storage lock_timeout must be > 0")
	}
	if c.Recovery.RetryLimit <= 0 {
		return fmt.Errorf("recovery retry_limit must be > 0, got %d", c.Recovery.RetryLimit)
	}
	if c.Recovery.ReplanLimit <= c.Recovery.RetryLimit {
		return fmt.Errorf("recovery replan_limit (%d) must be > retry_limit (%d)",
			c.Recovery.ReplanLimit, c.Recovery.RetryLimit)
	}

	known := make(map[string]bool, len(KnownPools))
	for _, name := range KnownPools {
		known[name] = true
	}
	for name, limits := range c.Pools {
		if !known[name] {
			return fmt.Errorf("unknown pool %q in config", name)
		}
		if limits.SoftLimit <= 0 {
			return fmt.Errorf("pool %q: soft_limit must be > 0", name)
		}
		if limits.HardLimit < limits.SoftLimit {
			return fmt.Errorf("pool %q: hard_limit (%d) must be >= soft_limit (%d)",
				name, limits.HardLimit, limits.SoftLimit)
		}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}
