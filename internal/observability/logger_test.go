package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf, ServiceName: "logisplit"})

	logger.WithSession("abc").WithOperation("transfer").Info().
		Int("page", 2).
		Err(errors.New("boom")).
		Msg("tick applied")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "logisplit", entry["service"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.Equal(t, "transfer", entry["operation"])
	assert.Equal(t, "tick applied", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.EqualValues(t, 2, entry["page"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})

	logger.Debug().Msg("hidden")
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel_UnknownDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "verbose-ish", Format: "json", Output: &buf})

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNop(t *testing.T) {
	// Must not panic
	Nop().Error().Str("k", "v").Msg("discarded")
}
