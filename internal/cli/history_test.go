package cli

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/voxraw/internal/frame"
	"github.com/roach88/voxraw/internal/store"
)

func seedLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	st, err := store.Open(path, store.WithIDGenerator(store.NewFixedGenerator("run-a", "run-b")))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	a, err := st.BeginRun(ctx, store.RunInfo{InputDir: "vdb", OutputDir: "raw"})
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, a, frame.Summary{Frames: 2, Files: 8}, nil))

	b, err := st.BeginRun(ctx, store.RunInfo{InputDir: "vdb", OutputDir: "raw"})
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, b, frame.Summary{}, errors.New("frame 0001: bad magic")))
	return path
}

func TestHistory_ListsRuns(t *testing.T) {
	db := seedLedger(t)

	stdout, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "run-a  ok")
	assert.Contains(t, stdout, "frames=2 files=8")
	assert.Contains(t, stdout, "run-b  failed")
	assert.Contains(t, stdout, `error="frame 0001: bad magic"`)
}

func TestHistory_JSON(t *testing.T) {
	db := seedLedger(t)

	stdout, _, err := execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data RunList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, "run-a", resp.Data.Runs[0].ID)
	assert.Equal(t, int64(2), resp.Data.Runs[1].Seq)
}

func TestHistory_UnknownRun(t *testing.T) {
	db := seedLedger(t)

	_, _, err := execute(t, "history", "--db", db, "--run", "run-z")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistory_MissingLedger(t *testing.T) {
	_, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistory_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
