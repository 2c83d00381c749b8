package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/voxraw/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunList is the history command's payload when listing runs.
type RunList struct {
	Runs []store.RunRecord `json:"runs"`
}

func (l RunList) String() string {
	if len(l.Runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for _, r := range l.Runs {
		fmt.Fprintf(&b, "%4d  %s  %-7s  %s  frames=%d files=%d failed=%d",
			r.Seq, r.ID, r.Status, r.StartedAt.Local().Format(time.DateTime),
			r.Summary.Frames, r.Summary.Files, r.Summary.FailedFiles)
		if r.Error != "" {
			fmt.Fprintf(&b, "  error=%q", r.Error)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// RunDetail is the history command's payload for a single run.
type RunDetail struct {
	Run     store.RunRecord      `json:"run"`
	Frames  []store.FrameRecord  `json:"frames"`
	Outputs []store.OutputRecord `json:"outputs"`
}

func (d RunDetail) String() string {
	var b strings.Builder
	r := d.Run
	fmt.Fprintf(&b, "Run %s (#%d) %s\n", r.ID, r.Seq, r.Status)
	fmt.Fprintf(&b, "  %s -> %s\n", r.InputDir, r.OutputDir)
	fmt.Fprintf(&b, "  settings %s\n", r.Settings)
	for _, f := range d.Frames {
		fmt.Fprintf(&b, "  frame %s: models %v", f.Frame, f.Models)
		if len(f.Skipped) > 0 {
			fmt.Fprintf(&b, " skipped %v", f.Skipped)
		}
		b.WriteByte('\n')
	}
	for _, o := range d.Outputs {
		fmt.Fprintf(&b, "  %s  %8d bytes  %s\n", o.SHA256, o.Bytes, o.Path)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded in a ledger",
		Long: `List the runs recorded with "voxraw run --db", oldest first.
With --run, show one run's frames and every file it wrote with its SHA-256.

Example:
  voxraw history --db ./ledger.db
  voxraw history --db ./ledger.db --run 0192f0c4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run in detail")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Don't create a ledger as a side effect of reading one.
	if _, err := os.Stat(opts.Database); err != nil {
		msg := fmt.Sprintf("ledger not found: %s", opts.Database)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitFailure, "failed to list runs", err)
		}
		return formatter.Success(RunList{Runs: runs})
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	frames, err := st.ReadFrames(ctx, run.ID)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read frames", err)
	}
	outputs, err := st.ReadOutputs(ctx, run.ID)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read outputs", err)
	}
	return formatter.Success(RunDetail{Run: run, Frames: frames, Outputs: outputs})
}
