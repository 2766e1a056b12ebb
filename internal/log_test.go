package internal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" debug "))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelWarn)

	logger.Info("dropped %d", 1)
	logger.Debug("dropped")
	logger.Warn("kept %s", "warning")
	logger.Error("kept error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept warning", entry["message"])
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelInfo).With("ensemble", "iter-0")

	logger.Info("loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "iter-0", entry["ensemble"])
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
}
