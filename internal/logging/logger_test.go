package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptions_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Level: slog.LevelInfo, Output: &buf})

	logger.Info("persist failed", "error", errors.New("boom"))
	assert.Contains(t, buf.String(), "err=boom")
	assert.NotContains(t, buf.String(), "error=")
}

func TestNewWithOptions_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Level: slog.LevelWarn, Format: "json", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown", "machine", "network")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"machine":"network"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := logging.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = logging.ParseLevel("chatty")
	assert.Error(t, err)
}
