package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NoArgsShowsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, run(&out, nil))
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_InvalidFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, []string{"-log-level", "loud", "scene.toml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log-level")
}

func TestRun_RendersScene(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.toml")
	outPath := filepath.Join(dir, "out.ppm")
	require.NoError(t, os.WriteFile(scenePath, []byte(`
[image]
width = 4
height = 4

[[material]]
name = "white"
source = '''
shader "white" {
  output "bxdf" {
    type  = "closure"
    value = make_closure("lambert", color(1, 1, 1))
  }
}
'''

[[sphere]]
center = [0.0, 0.0, -2.0]
radius = 0.5
material = "white"
`), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(&out, []string{"-o", outPath, "-log-level", "error", scenePath}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "P3\n4 4\n255\n"))
}
