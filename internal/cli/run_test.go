package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/voxraw/internal/export"
	"github.com/roach88/voxraw/internal/frame"
)

func TestRun_WritesChannels(t *testing.T) {
	in := writeTree(t)
	out := filepath.Join(t.TempDir(), "raw")

	stdout, _, err := execute(t, "run", "--input", in, "--output", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Processed 1 frame(s)")
	assert.Contains(t, stdout, "4 written, 0 failed")

	for _, ch := range []string{"red", "green", "blue", "alpha"} {
		_, err := os.Stat(filepath.Join(out, "0001", ch+"1,1,1.raw"))
		assert.NoError(t, err, ch)
	}
	data, err := os.ReadFile(filepath.Join(out, "0001", "alpha1,1,1.raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte{export.Quantize(0.2)}, data)
}

func TestRun_JSONOutput(t *testing.T) {
	in := writeTree(t)
	out := filepath.Join(t.TempDir(), "raw")

	stdout, _, err := execute(t, "--format", "json", "run", "-i", in, "-o", out)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, frame.Summary{Frames: 1, Models: 2, Files: 4}, resp.Data.Summary)
	assert.Equal(t, "union", resp.Data.Settings.Merge)
	assert.Empty(t, resp.Data.RunID)
}

func TestRun_FlagsOverrideConfigFile(t *testing.T) {
	in := writeTree(t)
	out := filepath.Join(t.TempDir(), "raw")
	cfgPath := filepath.Join(t.TempDir(), "voxraw.yaml")
	cfg := "input: " + in + "\noutput: " + out + "\nmerge: max\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	// File alone: max keeps the denser model.
	_, _, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(out, "0001", "alpha1,1,1.raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte{export.Quantize(0.5)}, data)

	// Explicit flag wins over the file.
	_, _, err = execute(t, "run", "--config", cfgPath, "--merge", "union")
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(out, "0001", "alpha1,1,1.raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte{export.Quantize(0.2)}, data)
}

func TestRun_InvalidConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "voxraw.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("merge: average\n"), 0o644))

	stdout, _, err := execute(t, "run", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E201]")
}

func TestRun_UnknownMergeFlag(t *testing.T) {
	in := writeTree(t)
	_, _, err := execute(t, "run", "--input", in, "--merge", "average")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_MissingInputDir(t *testing.T) {
	stdout, _, err := execute(t, "run", "--input", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E005]")
}

func TestRun_UnreadableModelAborts(t *testing.T) {
	in := writeTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(in, "0001", "junk-1,1,1,1.vdb"), []byte("nope"), 0o644))
	out := filepath.Join(t.TempDir(), "raw")

	stdout, _, err := execute(t, "run", "--input", in, "--output", out)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E301]")

	_, _, err = execute(t, "run", "--input", in, "--output", out, "--on-read-error", "skip")
	require.NoError(t, err)
}

func TestRun_RecordsLedger(t *testing.T) {
	in := writeTree(t)
	out := filepath.Join(t.TempDir(), "raw")
	db := filepath.Join(t.TempDir(), "ledger.db")

	stdout, _, err := execute(t, "--format", "json", "run", "--input", in, "--output", out, "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.RunID, 36)

	stdout, _, err = execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, resp.Data.RunID)
	assert.Contains(t, stdout, "ok")

	stdout, _, err = execute(t, "history", "--db", db, "--run", resp.Data.RunID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "frame 0001: models [bar foo]")
	assert.Contains(t, stdout, filepath.Join(out, "0001", "red1,1,1.raw"))
}
