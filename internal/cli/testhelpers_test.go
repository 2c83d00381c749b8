package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/voxraw/internal/grid"
	"github.com/roach88/voxraw/internal/gridio"
)

func TestMain(m *testing.M) {
	gridio.Initialize()
	os.Exit(m.Run())
}

// writeTree creates <root>/0001 with the two-model foo/bar frame.
func writeTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "vdb")
	dir := filepath.Join(root, "0001")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for name, v := range map[string]float32{"foo-1,0,0,1.vdb": 0.5, "bar-0,1,0,1.vdb": 0.2} {
		g := grid.New(0)
		g.Set(grid.Coord{}, v)
		require.NoError(t, gridio.Write(filepath.Join(dir, name), map[string]*grid.Grid{"density": g}))
	}
	return root
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
