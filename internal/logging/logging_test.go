package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Str("op", "FETCH_BALANCE").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"op":"FETCH_BALANCE"`)
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Format: "console", Output: &buf})
	require.NoError(t, err)

	logger.Info().Msg("ready")
	assert.Contains(t, buf.String(), "ready")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connector.log")
	var buf bytes.Buffer
	logger, closer, err := New(Config{File: path, Output: &buf})
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, buf.String(), "to file")
}

func TestNew_Invalid(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}
