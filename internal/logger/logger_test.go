package logger_test

import (
	"testing"

	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("development console", func(t *testing.T) {
		log, err := logger.NewLogger(&config.LoggingConfig{Level: "debug", Format: "console"}, &config.AppConfig{Name: "test", Environment: "development"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(-1))
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		log, err := logger.NewLogger(&config.LoggingConfig{Level: "loud", Format: "json"}, &config.AppConfig{Name: "test", Environment: "production"})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(-1))
		assert.True(t, log.Core().Enabled(0))
	})
}
