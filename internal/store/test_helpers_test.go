package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/voxraw/internal/export"
	"github.com/roach88/voxraw/internal/frame"
	"github.com/roach88/voxraw/internal/grid"
	"github.com/roach88/voxraw/internal/testutil"
)

var testEpoch = testutil.Epoch

// createTestStore opens a fresh ledger with fixed IDs and a ticking clock.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{"run-1", "run-2", "run-3"}
	}
	clock := testutil.NewDeterministicClock(testEpoch, time.Second)

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(NewFixedGenerator(ids...)), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFrame builds a frame result with one output per named channel.
func createTestFrame(name string, models []string, channels ...frame.Channel) frame.FrameResult {
	fr := frame.FrameResult{Frame: name, Models: models}
	for _, ch := range channels {
		fr.Outputs = append(fr.Outputs, frame.Output{
			Channel: ch,
			Result: export.Result{
				Path:   filepath.Join("raw", name, ch.String()+"1,1,1.raw"),
				Dim:    grid.Coord{X: 1, Y: 1, Z: 1},
				Bytes:  1,
				SHA256: "sha-" + ch.String(),
			},
		})
	}
	return fr
}
