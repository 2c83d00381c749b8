package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/voxraw/internal/fsutil"
	"github.com/roach88/voxraw/internal/frame"
	"github.com/roach88/voxraw/internal/grid"
	"github.com/roach88/voxraw/internal/gridio"
	"github.com/roach88/voxraw/internal/store"
	"github.com/roach88/voxraw/internal/testutil"
)

// outputRoot is where the in-memory filesystem collects exports.
const outputRoot = "out"

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh temporary input tree, a fresh in-memory output
// filesystem and a fresh in-memory ledger. The run ID is the scenario name.
//
// Execution flow:
//  1. Write every model grid and extra file under a temp directory
//  2. Run frame.Processor over it with the scenario settings
//  3. Collect exported files and the ledger's output records
//  4. Check expect_error and every assertion
func Run(scenario *Scenario) (*Result, error) {
	gridio.Initialize()

	cfg, err := scenario.runConfig()
	if err != nil {
		return nil, err
	}

	input, err := os.MkdirTemp("", "voxraw-scenario-")
	if err != nil {
		return nil, fmt.Errorf("create input dir: %w", err)
	}
	defer os.RemoveAll(input)

	if err := materialize(input, scenario.Frames); err != nil {
		return nil, err
	}

	cfg.Input = input
	cfg.Output = outputRoot
	fc, err := cfg.FrameConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewFixedRunID(scenario.Name)),
		store.WithClock(testutil.NewDeterministicClock(testutil.Epoch, 0).Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	runID, err := st.BeginRun(ctx, store.RunInfo{InputDir: scenario.Name, OutputDir: outputRoot, Settings: scenario.Settings})
	if err != nil {
		return nil, err
	}

	// Suppress logs in tests
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer slog.SetDefault(prev)

	fsys := fsutil.NewMemoryFileSystem()
	result := NewResult()
	sum, runErr := frame.New(fc, fsys, st.Recorder(runID)).Process(ctx)
	result.Summary = sum
	if err := st.FinishRun(ctx, runID, sum, runErr); err != nil {
		return nil, err
	}

	if err := collect(fsys, result); err != nil {
		return nil, err
	}
	if result.Recorded, err = st.ReadOutputs(ctx, runID); err != nil {
		return nil, err
	}

	switch {
	case runErr != nil:
		result.RunError = runErr.Error()
		if scenario.ExpectError == "" {
			result.AddError(fmt.Sprintf("run failed: %v", runErr))
		} else if !strings.Contains(runErr.Error(), scenario.ExpectError) {
			result.AddError(fmt.Sprintf("run error %q does not contain %q", runErr.Error(), scenario.ExpectError))
		}
	case scenario.ExpectError != "":
		result.AddError(fmt.Sprintf("expected run to fail with %q, but it succeeded", scenario.ExpectError))
	}

	for _, a := range scenario.Assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// materialize writes the scenario's input tree under root.
func materialize(root string, frames []FrameSpec) error {
	for _, f := range frames {
		dir := filepath.Join(root, f.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create frame dir: %w", err)
		}
		for _, m := range f.Models {
			name := m.Grid
			if name == "" {
				name = "density"
			}
			g := grid.New(m.Background)
			for _, v := range m.Voxels {
				g.Set(grid.Coord{X: int32(v[0]), Y: int32(v[1]), Z: int32(v[2])}, float32(v[3]))
			}
			if err := gridio.Write(filepath.Join(dir, m.File), map[string]*grid.Grid{name: g}); err != nil {
				return fmt.Errorf("write model %s/%s: %w", f.Name, m.File, err)
			}
		}
		for _, x := range f.ExtraFiles {
			if err := os.WriteFile(filepath.Join(dir, x.Name), []byte(x.Content), 0o644); err != nil {
				return fmt.Errorf("write %s/%s: %w", f.Name, x.Name, err)
			}
		}
	}
	return nil
}

func collect(fsys *fsutil.MemoryFileSystem, result *Result) error {
	for _, p := range fsys.Files(outputRoot) {
		data, err := fsys.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(outputRoot, p)
		if err != nil {
			return err
		}
		result.Files = append(result.Files, OutputFile{Path: filepath.ToSlash(rel), Data: data})
	}
	return nil
}
