package logger

import (
	"testing"

	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("invalid level falls back to info", func(t *testing.T) {
		log, err := NewLogger(&config.LoggingConfig{Level: "loud", Format: "console"}, &config.AppConfig{Name: "test", Environment: "development"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("debug level in production", func(t *testing.T) {
		log, err := NewLogger(&config.LoggingConfig{Level: "debug", Format: "json"}, &config.AppConfig{Name: "test", Environment: "production"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})
}
