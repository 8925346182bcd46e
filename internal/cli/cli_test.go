package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ScenePathForms(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	cfg, exit, err := Parse([]string{"-scene", "scene.toml"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "scene.toml", cfg.ScenePath)

	cfg, _, err = Parse([]string{"-s", "short.toml"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "short.toml", cfg.ScenePath)

	cfg, _, err = Parse([]string{"positional.toml"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "positional.toml", cfg.ScenePath)
}

func TestParse_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidFlags(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	_, _, err := Parse([]string{"-log-format", "yaml", "scene.toml"}, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "invalid log-format")

	_, _, err = Parse([]string{"-log-level", "loud", "scene.toml"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "invalid log-level")

	_, _, err = Parse([]string{"-workers", "-3", "scene.toml"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "WorkerCount")
}

func TestParse_Overrides(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, _, err := Parse([]string{"-o", "custom.ppm", "-workers", "4", "-arena-capacity", "8192", "scene.toml"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "custom.ppm", cfg.Output)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 8192, cfg.ArenaCapacity)
}
