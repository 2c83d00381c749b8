package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/voxraw/internal/grid"
	"github.com/roach88/voxraw/internal/gridio"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Grid string
}

// GridStats describes one grid of a grid file.
type GridStats struct {
	Path        string     `json:"path"`
	Grid        string     `json:"grid"`
	Grids       []string   `json:"grids"`
	Background  float32    `json:"background"`
	ActiveCount int        `json:"active_count"`
	LeafCount   int        `json:"leaf_count"`
	BBoxMin     grid.Coord `json:"bbox_min"`
	BBoxMax     grid.Coord `json:"bbox_max"`
	Dim         grid.Coord `json:"dim"`
	Min         float64    `json:"min"`
	Max         float64    `json:"max"`
	Mean        float64    `json:"mean"`
	StdDev      float64    `json:"stddev"`
}

func (s GridStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", s.Path, s.Grid)
	fmt.Fprintf(&b, "  grids:      %s\n", strings.Join(s.Grids, ", "))
	fmt.Fprintf(&b, "  background: %g\n", s.Background)
	fmt.Fprintf(&b, "  active:     %d voxels in %d leaves\n", s.ActiveCount, s.LeafCount)
	if s.ActiveCount == 0 {
		b.WriteString("  bbox:       empty")
		return b.String()
	}
	fmt.Fprintf(&b, "  bbox:       %s .. %s (%d,%d,%d)\n", s.BBoxMin, s.BBoxMax, s.Dim.X, s.Dim.Y, s.Dim.Z)
	fmt.Fprintf(&b, "  values:     min %g, max %g, mean %g, stddev %g", s.Min, s.Max, s.Mean, s.StdDev)
	return b.String()
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <grid-file>",
		Short: "Show topology and value statistics of a grid",
		Long: `Read one grid from a grid file and report its active bounding box,
dimensions, active voxel count and value statistics.

Example:
  voxraw inspect vdb/0001/smoke-1,0,0,1.vdb
  voxraw inspect --grid temperature --format json model.vdb`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Grid, "grid", "density", "grid name to inspect")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	gridio.Initialize()

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open grid file", err)
	}
	names, err := gridio.Names(f)
	f.Close()
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read grid file", err)
	}
	formatter.VerboseLog("%s holds grids %v", path, names)

	g, err := gridio.Read(path, opts.Grid)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), map[string]any{"grids": names})
		return WrapExitError(ExitFailure, "failed to read grid", err)
	}

	return formatter.Success(Inspect(path, opts.Grid, names, g))
}

// Inspect computes GridStats for g.
func Inspect(path, name string, names []string, g *grid.Grid) GridStats {
	s := GridStats{
		Path:        path,
		Grid:        name,
		Grids:       names,
		Background:  g.Background(),
		ActiveCount: g.ActiveCount(),
		LeafCount:   g.LeafCount(),
	}
	if s.ActiveCount == 0 {
		return s
	}

	box := g.ActiveBBox()
	s.BBoxMin, s.BBoxMax, s.Dim = box.Min, box.Max, box.Dim()

	values := make([]float64, 0, s.ActiveCount)
	g.ForEachActive(func(_ grid.Coord, v float32) {
		values = append(values, float64(v))
	})
	s.Min, s.Max = floats.Min(values), floats.Max(values)
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}
