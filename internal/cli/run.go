package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/voxraw/internal/composite"
	"github.com/roach88/voxraw/internal/config"
	"github.com/roach88/voxraw/internal/frame"
	"github.com/roach88/voxraw/internal/fsutil"
	"github.com/roach88/voxraw/internal/gridio"
	"github.com/roach88/voxraw/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFile  string
	Input       string
	Output      string
	Grid        string
	Merge       string
	DoG         bool
	CutoffMask  bool
	OnReadError string
	Database    string

	// IDGenerator allows overriding the ledger run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunReport is the run command's success payload.
type RunReport struct {
	RunID    string        `json:"run_id,omitempty"`
	Settings config.Config `json:"settings"`
	Summary  frame.Summary `json:"summary"`
}

func (r RunReport) String() string {
	var b strings.Builder
	s := r.Summary
	fmt.Fprintf(&b, "Processed %d frame(s) from %s into %s\n", s.Frames, r.Settings.Input, r.Settings.Output)
	fmt.Fprintf(&b, "  models:  %d loaded, %d skipped\n", s.Models, s.SkippedModels)
	fmt.Fprintf(&b, "  files:   %d written, %d failed\n", s.Files, s.FailedFiles)
	if s.EmptyFrames > 0 {
		fmt.Fprintf(&b, "  empty:   %d frame(s) without models\n", s.EmptyFrames)
	}
	if r.RunID != "" {
		fmt.Fprintf(&b, "  run id:  %s\n", r.RunID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every frame of an input tree",
		Long: `Process every frame directory of the input tree.

Each frame directory holds model files named <model>-<r>,<g>,<b>,<a>.vdb.
Every model is scaled into four channels by its weights, the channels are
composited, optionally band-pass filtered, and written as
<output>/<frame>/<channel><dx>,<dy>,<dz>.raw.

Settings come from --config when given; explicit flags override the file.

Example:
  voxraw run
  voxraw run --input ./vdb --output ./raw/ --dog
  voxraw run --config voxraw.yaml --db ./ledger.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", def.Input, "input root holding one directory per frame")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", def.Output, "output root")
	cmd.Flags().StringVar(&opts.Grid, "grid", def.Grid, "grid name to read from each model file")
	cmd.Flags().StringVar(&opts.Merge, "merge", def.Merge, fmt.Sprintf("merge policy %v", composite.PolicyNames()))
	cmd.Flags().BoolVar(&opts.DoG, "dog", def.DoG, "apply the difference-of-Gaussians filter")
	cmd.Flags().BoolVar(&opts.CutoffMask, "cutoff-mask", def.CutoffMask, "restrict channels to the capture_range model's voxels")
	cmd.Flags().StringVar(&opts.OnReadError, "on-read-error", def.OnReadError, "unreadable model handling (abort|skip)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite ledger")

	return cmd
}

// resolveConfig loads the config file, if any, and applies explicitly set
// flags on top of it.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = opts.Input
	}
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}
	if flags.Changed("grid") {
		cfg.Grid = opts.Grid
	}
	if flags.Changed("merge") {
		cfg.Merge = opts.Merge
	}
	if flags.Changed("dog") {
		cfg.DoG = opts.DoG
	}
	if flags.Changed("cutoff-mask") {
		cfg.CutoffMask = opts.CutoffMask
	}
	if flags.Changed("on-read-error") {
		cfg.OnReadError = opts.OnReadError
	}
	return cfg, nil
}

func setupLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	setupLogging(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		code := ErrCodeInvalidConfig
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	fc, err := cfg.FrameConfig()
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	if info, err := os.Stat(cfg.Input); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("input directory not found: %s", cfg.Input)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	gridio.Initialize()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after current frame", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		rec   frame.Recorder
		st    *store.Store
		runID string
	)
	if opts.Database != "" {
		var storeOpts []store.Option
		if opts.IDGenerator != nil {
			storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
		}
		st, err = store.Open(opts.Database, storeOpts...)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open ledger", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing ledger", "error", closeErr)
			}
		}()
		runID, err = st.BeginRun(ctx, store.RunInfo{InputDir: cfg.Input, OutputDir: cfg.Output, Settings: cfg})
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		rec = st.Recorder(runID)
		slog.Info("recording run", "db", opts.Database, "run_id", runID)
	}

	slog.Info("processing", "input", cfg.Input, "output", cfg.Output, "merge", cfg.Merge, "dog", cfg.DoG)
	sum, runErr := frame.New(fc, fsutil.OSFileSystem{}, rec).Process(ctx)

	if st != nil {
		if err := st.FinishRun(context.WithoutCancel(ctx), runID, sum, runErr); err != nil {
			slog.Error("failed to finish run", "run_id", runID, "error", err)
		}
	}

	if runErr != nil {
		code := ErrCodeProcessing
		if frame.IsReadError(runErr) {
			code = ErrCodeReadFailed
		}
		_ = formatter.Error(code, runErr.Error(), sum)
		return WrapExitError(ExitFailure, "processing failed", runErr)
	}

	return formatter.Success(RunReport{RunID: runID, Settings: cfg, Summary: sum})
}
