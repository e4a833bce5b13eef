package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Recovery.RetryLimit)
	assert.Equal(t, 5, cfg.Recovery.ReplanLimit)
	assert.Equal(t, 5*time.Second, cfg.Storage.LockTimeout)
	assert.Equal(t, "console", cfg.Logging.Format)

	// Every known pool has limits.
	for _, name := range KnownPools {
		limits, ok := cfg.Pools[name]
		require.True(t, ok, "pool %s missing from defaults", name)
		assert.Greater(t, limits.SoftLimit, 0)
		assert.GreaterOrEqual(t, limits.HardLimit, limits.SoftLimit)
	}
}

func TestLoadWithFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  root: /tmp/aflow-test
recovery:
  retry_limit: 2
  replan_limit: 4
pools:
  working:
    soft_limit: 1000
    hard_limit: 2000
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/aflow-test", cfg.Storage.Root)
	assert.Equal(t, 2, cfg.Recovery.RetryLimit)
	assert.Equal(t, 4, cfg.Recovery.ReplanLimit)
	assert.Equal(t, 1000, cfg.Pools["working"].SoftLimit)
	assert.Equal(t, 2000, cfg.Pools["working"].HardLimit)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Pools absent from the file still get defaults.
	assert.Equal(t, 15000, cfg.Pools["learnings"].SoftLimit)
}

func TestLoadWithFile_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  root: /from/file\n"), 0600))

	t.Setenv("AFLOW_STORAGE_ROOT", "/from/env")
	t.Setenv("AFLOW_LOGGING_LEVEL", "warn")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.Storage.Root, "env must win over file")
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) { c.Storage.Root = "/tmp/x" },
			wantErr: "",
		},
		{
			name:    "unknown pool",
			mutate:  func(c *Config) { c.Storage.Root = "/tmp/x"; c.Pools["scratch"] = PoolLimits{SoftLimit: 1, HardLimit: 2} },
			wantErr: "unknown pool",
		},
		{
			name:    "hard below soft",
			mutate:  func(c *Config) { c.Storage.Root = "/tmp/x"; c.Pools["plans"] = PoolLimits{SoftLimit: 100, HardLimit: 50} },
			wantErr: "hard_limit",
		},
		{
			name:    "replan not above retry",
			mutate:  func(c *Config) { c.Storage.Root = "/tmp/x"; c.Recovery = RecoveryConfig{RetryLimit: 5, ReplanLimit: 5} },
			wantErr: "replan_limit",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Storage.Root = "/tmp/x"; c.Logging.Format = "xml" },
			wantErr: "format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
