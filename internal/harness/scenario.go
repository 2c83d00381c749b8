package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/voxraw/internal/config"
)

// Scenario defines an end-to-end pipeline test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Settings override the default run config. Keys match the config file.
	Settings map[string]any `yaml:"settings,omitempty"`

	// Frames is the input tree, one entry per frame directory.
	Frames []FrameSpec `yaml:"frames"`

	// ExpectError, if set, requires the run to fail with an error containing
	// this text.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the exported files and run summary.
	Assertions []Assertion `yaml:"assertions"`
}

// FrameSpec is one frame directory.
type FrameSpec struct {
	Name       string      `yaml:"name"`
	Models     []ModelSpec `yaml:"models"`
	ExtraFiles []ExtraFile `yaml:"extra_files,omitempty"`
}

// ModelSpec is one model file holding a single grid.
type ModelSpec struct {
	// File is the file name, e.g. "smoke-1,0,0,1.vdb".
	File string `yaml:"file"`

	// Grid is the grid name inside the file. Defaults to "density".
	Grid string `yaml:"grid,omitempty"`

	Background float32 `yaml:"background,omitempty"`

	// Voxels are active voxels as [x, y, z, value].
	Voxels [][]float64 `yaml:"voxels"`
}

// ExtraFile is a non-grid file placed verbatim in a frame directory.
type ExtraFile struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is an output path relative to the output root
	// (file_exists, file_bytes).
	Path string `yaml:"path,omitempty"`

	// Bytes are the expected file contents (file_bytes).
	Bytes []int `yaml:"bytes,omitempty"`

	// Count is the expected number of files (file_count, recorded_outputs).
	Count int `yaml:"count,omitempty"`

	// Expect holds summary counters by name (summary).
	Expect map[string]int `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertFileCount       = "file_count"
	AssertFileExists      = "file_exists"
	AssertFileBytes       = "file_bytes"
	AssertSummary         = "summary"
	AssertRecordedOutputs = "recorded_outputs"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// runConfig resolves the scenario settings through the config schema.
func (s *Scenario) runConfig() (config.Config, error) {
	if len(s.Settings) == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(s.Settings)
	if err != nil {
		return config.Config{}, fmt.Errorf("settings: %w", err)
	}
	return config.Parse(s.Name+".settings", data)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Frames) == 0 {
		return fmt.Errorf("frames list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list or expect_error is required")
	}
	if _, err := s.runConfig(); err != nil {
		return err
	}

	for i, f := range s.Frames {
		if f.Name == "" || strings.ContainsAny(f.Name, `/\`) {
			return fmt.Errorf("frames[%d]: invalid name %q", i, f.Name)
		}
		for j, m := range f.Models {
			if m.File == "" || strings.ContainsAny(m.File, `/\`) {
				return fmt.Errorf("frames[%d].models[%d]: invalid file %q", i, j, m.File)
			}
			for k, v := range m.Voxels {
				if len(v) != 4 {
					return fmt.Errorf("frames[%d].models[%d].voxels[%d]: want [x, y, z, value], got %d numbers", i, j, k, len(v))
				}
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFileCount, AssertRecordedOutputs:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertFileExists:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for file_exists", index)
		}
	case AssertFileBytes:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for file_bytes", index)
		}
		for _, b := range a.Bytes {
			if b < 0 || b > 255 {
				return fmt.Errorf("assertions[%d]: byte value %d out of range", index, b)
			}
		}
	case AssertSummary:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for summary", index)
		}
		for k := range a.Expect {
			if _, ok := summaryFields[k]; !ok {
				return fmt.Errorf("assertions[%d]: unknown summary field %q", index, k)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
