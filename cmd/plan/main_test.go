package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fertTiming/internal/config"
)

func TestConfigExitCode(t *testing.T) {
	dir := t.TempDir()

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("bench:\n  runs: -1\n"), 0o644))
	_, err := config.Load(invalid)
	require.Error(t, err)
	_, code := configExitCode(err)
	assert.Equal(t, 2, code)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("bench: [\n"), 0o644))
	_, err = config.Load(broken)
	require.Error(t, err)
	_, code = configExitCode(err)
	assert.Equal(t, 1, code)

	_, err = config.Load(dir)
	require.Error(t, err)
	_, code = configExitCode(err)
	assert.Equal(t, 1, code)
}
