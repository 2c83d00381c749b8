package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/voxraw/internal/frame"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Files    []string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Files) > 0 {
		fmt.Fprintf(&buf, "\nExported files:\n")
		for _, f := range e.Files {
			fmt.Fprintf(&buf, "  %s\n", f)
		}
	}
	return buf.String()
}

var summaryFields = map[string]func(frame.Summary) int{
	"frames":         func(s frame.Summary) int { return s.Frames },
	"empty_frames":   func(s frame.Summary) int { return s.EmptyFrames },
	"models":         func(s frame.Summary) int { return s.Models },
	"skipped_models": func(s frame.Summary) int { return s.SkippedModels },
	"files":          func(s frame.Summary) int { return s.Files },
	"failed_files":   func(s frame.Summary) int { return s.FailedFiles },
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertFileCount:
		if len(r.Files) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d files", a.Count),
				Actual:   fmt.Sprintf("%d files", len(r.Files)),
				Files:    fileNames(r),
			}
		}
	case AssertFileExists:
		if _, ok := r.File(a.Path); !ok {
			return &AssertionError{Type: a.Type, Expected: a.Path, Actual: "not written", Files: fileNames(r)}
		}
	case AssertFileBytes:
		f, ok := r.File(a.Path)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: a.Path, Actual: "not written", Files: fileNames(r)}
		}
		got := make([]int, len(f.Data))
		for i, b := range f.Data {
			got[i] = int(b)
		}
		if !slices.Equal(got, a.Bytes) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s = %v", a.Path, a.Bytes),
				Actual:   fmt.Sprintf("%s = %v", a.Path, got),
			}
		}
	case AssertSummary:
		keys := make([]string, 0, len(a.Expect))
		for k := range a.Expect {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if got := summaryFields[k](r.Summary); got != a.Expect[k] {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%s = %d", k, a.Expect[k]),
					Actual:   fmt.Sprintf("%s = %d", k, got),
				}
			}
		}
	case AssertRecordedOutputs:
		if len(r.Recorded) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d recorded outputs", a.Count),
				Actual:   fmt.Sprintf("%d recorded outputs", len(r.Recorded)),
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func fileNames(r *Result) []string {
	names := make([]string, len(r.Files))
	for i, f := range r.Files {
		names[i] = f.Path
	}
	return names
}
