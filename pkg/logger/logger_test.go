package logger

import (
	"path/filepath"
	"testing"

	"helpmarket_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	cases := []struct {
		mode, level string
		want        zapcore.Level
	}{
		{"debug", "", zap.DebugLevel},
		{"release", "", zap.InfoLevel},
		{"release", "warn", zap.WarnLevel},
		{"debug", "error", zap.ErrorLevel},
		{"release", "verbose", zap.InfoLevel},
	}
	for _, tc := range cases {
		cfg := &config.Config{Server: config.ServerConfig{Mode: tc.mode}, Log: config.LogConfig{Level: tc.level}}
		assert.Equal(t, tc.want, level(cfg), "%s/%s", tc.mode, tc.level)
	}
}

func TestInitLoggerRespectsLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Log:    config.LogConfig{File: filepath.Join(t.TempDir(), "app.log"), Level: "warn"},
	}
	InitLogger(cfg)

	assert.False(t, Log.Core().Enabled(zap.InfoLevel))
	assert.True(t, Log.Core().Enabled(zap.WarnLevel))
}
