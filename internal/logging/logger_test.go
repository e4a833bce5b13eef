package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentflow/internal/config"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	orig := stderrWriter
	stderrWriter = &buf
	defer func() { stderrWriter = orig }()

	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	logger.Info("session created", zap.String("session_id", "sess_1"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session created", entry["msg"])
	assert.Equal(t, "agentflow", entry["service"])
	assert.Equal(t, "sess_1", entry["session_id"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	orig := stderrWriter
	stderrWriter = &buf
	defer func() { stderrWriter = orig }()

	logger, err := New(config.LoggingConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)

	logger.Info("should be filtered")
	logger.Warn("should appear")
	_ = logger.Sync()

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}
