package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// capture redirects log output into a buffer for the test's duration and
// restores the default level afterwards.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() {
		logger.SetLogLevel("INFO")
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	level, ok := logger.ParseLevel("debug")
	require.True(t, ok)
	assert.Equal(t, logger.LevelDebug, level)

	level, ok = logger.ParseLevel("WARN")
	require.True(t, ok)
	assert.Equal(t, logger.LevelWarn, level)

	level, ok = logger.ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, logger.LevelInfo, level)
}

func TestLevelThresholdFiltersMessages(t *testing.T) {
	buf := capture(t)
	logger.SetLogLevel("WARN")

	logger.Debugf("debug line")
	logger.Infof("info line")
	logger.Warnf("warn line")
	logger.Errorf("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "[WARN] warn line")
	assert.Contains(t, out, "[ERROR] error line")
}

func TestDebugLevelEmitsEverything(t *testing.T) {
	buf := capture(t)
	logger.SetLogLevel("DEBUG")

	logger.Debugf("detail %d", 7)
	assert.Contains(t, buf.String(), "[DEBUG] detail 7")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	buf := capture(t)
	logger.SetLogLevel("chatty")

	assert.Contains(t, buf.String(), "Unknown log level 'chatty'")

	logger.Debugf("hidden")
	logger.Infof("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[INFO] shown")
}
