package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(&buf, Options{Level: "debug"})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug().Str("messageId", "msg-1").Msg("Starting stream")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "msg-1", line["messageId"])
	assert.Equal(t, "Starting stream", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(&buf, Options{})
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	logger.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestNewMirrorsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillflow.log")
	var buf bytes.Buffer
	logger, closeFn, err := New(&buf, Options{File: path})
	require.NoError(t, err)

	logger.Warn().Msg("Empty company context received")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Empty company context received")
	assert.Equal(t, buf.String(), string(data))
}
