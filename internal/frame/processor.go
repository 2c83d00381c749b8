// Package frame walks a tree of per-frame model directories and drives each
// frame through the pipeline: scale per channel, composite, optional
// difference-of-Gaussians, dense export.
//
// Frames are processed one at a time in lexical order and every frame is
// independent: no grid survives from one frame to the next.
package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/voxraw/internal/composite"
	"github.com/roach88/voxraw/internal/export"
	"github.com/roach88/voxraw/internal/filter"
	"github.com/roach88/voxraw/internal/fsutil"
	"github.com/roach88/voxraw/internal/grid"
	"github.com/roach88/voxraw/internal/gridio"
)

// ReadErrorPolicy decides what happens when a model file cannot be parsed
// or read.
type ReadErrorPolicy string

const (
	// Abort fails the frame and stops the run.
	Abort ReadErrorPolicy = "abort"
	// Skip logs the model and continues with the rest of the frame.
	Skip ReadErrorPolicy = "skip"
)

// Config controls a Processor.
type Config struct {
	InputDir    string
	OutputDir   string
	GridName    string
	Policy      composite.Policy
	DoG         bool
	CutoffMask  bool
	OnReadError ReadErrorPolicy
}

// Output is one exported channel volume.
type Output struct {
	Channel Channel
	export.Result
}

// FrameResult summarizes one processed frame.
type FrameResult struct {
	Frame   string
	Models  []string
	Skipped []string
	Outputs []Output
	// Failed counts channels whose export was skipped after an open or write
	// failure.
	Failed int
}

// Summary totals a whole run.
type Summary struct {
	Frames        int
	EmptyFrames   int
	Models        int
	SkippedModels int
	Files         int
	FailedFiles   int
}

func (s *Summary) add(fr FrameResult) {
	s.Frames++
	if len(fr.Models) == 0 {
		s.EmptyFrames++
	}
	s.Models += len(fr.Models)
	s.SkippedModels += len(fr.Skipped)
	s.Files += len(fr.Outputs)
	s.FailedFiles += fr.Failed
}

// Recorder receives every processed frame. The run ledger implements it.
type Recorder interface {
	RecordFrame(ctx context.Context, fr FrameResult) error
}

// GridReader loads the named grid from a model file.
type GridReader func(path, name string) (*grid.Grid, error)

// Processor runs the pipeline over an input tree.
type Processor struct {
	cfg      Config
	fs       fsutil.FileSystem
	exporter *export.Exporter
	recorder Recorder
	read     GridReader
	logger   *slog.Logger
}

// New creates a Processor that reads grids with gridio and writes through
// fsys. rec may be nil.
func New(cfg Config, fsys fsutil.FileSystem, rec Recorder) *Processor {
	if cfg.Policy == nil {
		cfg.Policy = composite.Union
	}
	if cfg.GridName == "" {
		cfg.GridName = "density"
	}
	if cfg.OnReadError == "" {
		cfg.OnReadError = Abort
	}
	return &Processor{
		cfg:      cfg,
		fs:       fsys,
		exporter: export.New(fsys),
		recorder: rec,
		read:     gridio.Read,
		logger:   slog.Default(),
	}
}

// WithReader replaces the grid reader. Tests use it to inject failures.
func (p *Processor) WithReader(read GridReader) *Processor {
	p.read = read
	return p
}

// Process handles every frame directory under the input root. It stops at
// the first frame error or when ctx is cancelled.
func (p *Processor) Process(ctx context.Context) (Summary, error) {
	var sum Summary

	if err := p.fs.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return sum, fmt.Errorf("create output dir: %w", err)
	}
	entries, err := os.ReadDir(p.cfg.InputDir)
	if err != nil {
		return sum, fmt.Errorf("read input dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		fr, err := p.ProcessFrame(ctx, entry.Name())
		if err != nil {
			return sum, err
		}
		sum.add(fr)
	}
	return sum, nil
}

// ProcessFrame runs one frame directory through the pipeline.
func (p *Processor) ProcessFrame(ctx context.Context, name string) (FrameResult, error) {
	fr := FrameResult{Frame: name}
	dir := filepath.Join(p.cfg.InputDir, name)
	p.logger.Info("parsing frame", "frame", name)

	set, err := p.loadModels(ctx, dir, &fr)
	if err != nil {
		return fr, fmt.Errorf("frame %s: %w", name, err)
	}
	fr.Models = set.Models

	if set.Len() == 0 {
		p.logger.Warn("frame has no models, skipping", "frame", name)
		return fr, p.record(ctx, fr)
	}

	outDir := filepath.Join(p.cfg.OutputDir, name)
	if err := p.fs.MkdirAll(outDir, 0o755); err != nil {
		return fr, fmt.Errorf("frame %s: create output dir: %w", name, err)
	}

	for _, ch := range Channels {
		merged, err := p.channel(set, ch)
		if err != nil {
			return fr, fmt.Errorf("frame %s: %s: %w", name, ch, err)
		}
		res, ok := p.exporter.Export(merged, filepath.Join(outDir, ch.String()))
		if !ok {
			fr.Failed++
			continue
		}
		fr.Outputs = append(fr.Outputs, Output{Channel: ch, Result: res})
	}

	return fr, p.record(ctx, fr)
}

func (p *Processor) record(ctx context.Context, fr FrameResult) error {
	if p.recorder == nil {
		return nil
	}
	if err := p.recorder.RecordFrame(ctx, fr); err != nil {
		return fmt.Errorf("frame %s: record: %w", fr.Frame, err)
	}
	return nil
}

func (p *Processor) loadModels(ctx context.Context, dir string, fr *FrameResult) (*ChannelSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	set := &ChannelSet{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name())

		m, err := ParseModelFile(path)
		if err == nil {
			var g *grid.Grid
			if g, err = p.read(path, p.cfg.GridName); err == nil {
				p.logger.Info("loaded model", "model", m.Name, "voxels", g.ActiveCount())
				set.Add(m, g)
				continue
			}
		}
		if p.cfg.OnReadError != Skip {
			return nil, err
		}
		p.logger.Warn("skipping model", "path", path, "error", err)
		fr.Skipped = append(fr.Skipped, entry.Name())
	}
	return set, nil
}

// channel composites one channel and applies the optional cutoff mask and
// band-pass filter.
func (p *Processor) channel(set *ChannelSet, ch Channel) (*grid.Grid, error) {
	merged, err := composite.Composite(set.Grids[ch], p.cfg.Policy)
	if err != nil {
		return nil, err
	}
	if p.cfg.CutoffMask && set.Cutoff != nil {
		merged = composite.Intersect(merged, set.Cutoff)
	}
	if p.cfg.DoG {
		merged = filter.DoG(merged)
	}
	return merged, nil
}

// IsReadError reports whether err came from an unreadable or malformed model.
func IsReadError(err error) bool {
	return errors.Is(err, ErrMalformedFilename) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, gridio.ErrBadMagic) ||
		errors.Is(err, gridio.ErrGridNotFound) ||
		errors.Is(err, gridio.ErrCorrupt) ||
		errors.Is(err, gridio.ErrUnsupportedType)
}
