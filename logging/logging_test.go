package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "logfmt")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("effect failed", "collection", "deal_c")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "effect failed")
	assert.Contains(t, out, "collection=deal_c")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "DEBUG", "json")
	require.NoError(t, err)

	logger.Debug("loaded", "count", 5)
	assert.Contains(t, buf.String(), `"count":5`)
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
