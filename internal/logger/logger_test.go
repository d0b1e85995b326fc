package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonpair/backend/internal/config"
)

func TestInit_TextWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(&Options{Level: "debug", Format: "text", Component: "relay", Output: &buf})

	Debug("message relayed", "room", "abc12345")

	out := buf.String()
	assert.Contains(t, out, "msg=\"message relayed\"")
	assert.Contains(t, out, "component=relay")
	assert.Contains(t, out, "room=abc12345")
}

func TestInit_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(&Options{Level: "warn", Format: "JSON", Output: &buf})

	Info("hidden")
	Warn("shown", "user", int64(7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, float64(7), rec["user"])
}

func TestInitFromConfig_Nil(t *testing.T) {
	InitFromConfig(nil)
	assert.NotNil(t, L())

	cfg := &config.Config{}
	cfg.Log.Level = "error"
	InitFromConfig(cfg)
	assert.False(t, L().Enabled(t.Context(), slog.LevelWarn))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
