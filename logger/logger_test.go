package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/saiset-co/sai-appstate/types"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("bogus"))
}

func TestManagerWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "appstate.log")

	manager, err := NewManager(context.Background(), &types.LoggerConfig{
		Level: "debug",
		Config: map[string]interface{}{
			"format": "json",
			"output": "file",
			"file":   logFile,
		},
	})
	require.NoError(t, err)
	require.NoError(t, manager.Start())

	manager.Info("cache rehydrated", zap.Int("entries", 3))
	manager.ErrorWithErrStack("storage write failed", errors.New("quota exceeded"))

	require.NoError(t, manager.Stop())
	assert.False(t, manager.IsRunning())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cache rehydrated")
	assert.Contains(t, string(data), "quota exceeded")
	assert.Contains(t, string(data), "stack")
}

func TestManagerLifecycle(t *testing.T) {
	manager, err := NewManager(context.Background(), &types.LoggerConfig{Type: "nop"})
	require.NoError(t, err)

	require.ErrorIs(t, manager.Stop(), types.ErrNotRunning)
	require.NoError(t, manager.Start())
	require.ErrorIs(t, manager.Start(), types.ErrAlreadyRunning)
	assert.True(t, manager.IsRunning())
}

func TestUnknownLoggerType(t *testing.T) {
	_, err := NewManager(context.Background(), &types.LoggerConfig{Type: "syslog"})
	require.ErrorIs(t, err, types.ErrLoggerTypeUnknown)
}

func TestCustomLoggerCreator(t *testing.T) {
	RegisterLogger("custom", func(config interface{}) (types.Logger, error) {
		return NewNop(), nil
	})

	manager, err := NewManager(context.Background(), &types.LoggerConfig{Type: "custom"})
	require.NoError(t, err)
	manager.Debug("ignored")
}
