package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/voxraw/internal/config"
)

const validScenario = `
name: ok
description: "minimal"
frames:
  - name: "0001"
    models:
      - file: a-1,1,1,1.vdb
        voxels: [[0, 0, 0, 1]]
assertions:
  - type: file_count
    count: 4
`

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(validScenario))
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	require.Len(t, s.Frames, 1)
	require.Len(t, s.Frames[0].Models, 1)
	assert.Equal(t, [][]float64{{0, 0, 0, 1}}, s.Frames[0].Models[0].Voxels)

	cfg, err := s.runConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", `description: x
frames: [{name: "1"}]
assertions: [{type: file_count}]`, "name is required"},
		{"missing description", `name: x
frames: [{name: "1"}]
assertions: [{type: file_count}]`, "description is required"},
		{"no frames", `name: x
description: x
assertions: [{type: file_count}]`, "frames list"},
		{"no assertions", `name: x
description: x
frames: [{name: "1"}]`, "assertions list or expect_error"},
		{"unknown field", `name: x
description: x
framez: []`, "failed to parse YAML"},
		{"bad voxel", `name: x
description: x
frames: [{name: "1", models: [{file: "a-1,1,1,1.vdb", voxels: [[0, 0, 1]]}]}]
assertions: [{type: file_count}]`, "want [x, y, z, value]"},
		{"frame path", `name: x
description: x
frames: [{name: "a/b"}]
assertions: [{type: file_count}]`, "invalid name"},
		{"unknown assertion", `name: x
description: x
frames: [{name: "1"}]
assertions: [{type: trace_order}]`, "unknown assertion type"},
		{"unknown summary field", `name: x
description: x
frames: [{name: "1"}]
assertions: [{type: summary, expect: {voxels: 1}}]`, "unknown summary field"},
		{"byte range", `name: x
description: x
frames: [{name: "1"}]
assertions: [{type: file_bytes, path: p, bytes: [256]}]`, "out of range"},
		{"bad settings", `name: x
description: x
settings: {merge: average}
frames: [{name: "1"}]
assertions: [{type: file_count}]`, "invalid config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(validScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: [\n"), 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.yaml")
}
