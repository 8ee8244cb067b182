package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive_BadListenAddress(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "received.xml")

	_, err := execute(t, "receive", "--listen", "256.0.0.1:99999", "--out", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "receiver failed")
}

func TestReceive_UnwritableOutput(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "missing", "received.xml")

	_, err := execute(t, "receive", "--out", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open output")
}

func TestReceive_RejectsArguments(t *testing.T) {
	_, err := execute(t, "receive", "extra")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
