package harness

import (
	"github.com/roach88/voxraw/internal/frame"
	"github.com/roach88/voxraw/internal/store"
)

// OutputFile is one exported volume, keyed by its path relative to the
// output root.
type OutputFile struct {
	Path string `json:"path"`
	Data []byte `json:"data"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the run behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Summary is the processor's run summary.
	Summary frame.Summary `json:"summary"`

	// Files holds every exported file in sorted path order.
	Files []OutputFile `json:"files"`

	// Recorded is what the run ledger holds for the run.
	Recorded []store.OutputRecord `json:"recorded"`

	// RunError is the processor error, if any.
	RunError string `json:"run_error,omitempty"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Files:  []OutputFile{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// File returns the exported file at path, if any.
func (r *Result) File(path string) (OutputFile, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return OutputFile{}, false
}
