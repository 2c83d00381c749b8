package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/voxraw/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool          `json:"valid"`
	Path     string        `json:"path"`
	Settings config.Config `json:"settings"`
}

func (r ValidationResult) String() string {
	s := r.Settings
	return fmt.Sprintf("✓ %s is valid\n  input %s, output %s, grid %s, merge %s, dog %t, cutoff_mask %t, on_read_error %s",
		r.Path, s.Input, s.Output, s.Grid, s.Merge, s.DoG, s.CutoffMask, s.OnReadError)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a config file without processing",
		Long: `Check a YAML config file against the voxraw config schema.

Unknown keys, unknown merge policies and invalid read-error handling are
reported with their position. On success the resolved settings, defaults
included, are printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	formatter.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	if err == nil {
		_, err = cfg.FrameConfig()
	}
	if err != nil {
		code := ErrCodeInvalidConfig
		switch {
		case errors.Is(err, os.ErrNotExist):
			code = ErrCodeNotFound
		case !errors.Is(err, config.ErrInvalidConfig):
			code = ErrCodeGeneric
		}
		return outputValidateError(formatter, code, err.Error(), map[string]string{"path": path})
	}

	return formatter.Success(ValidationResult{Valid: true, Path: path, Settings: cfg})
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Validation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
