// Package config loads run settings from YAML.
//
// A config file is checked against an embedded CUE schema before it is
// decoded, so unknown keys and out-of-range enum values are rejected with a
// position instead of being silently ignored.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/voxraw/internal/composite"
	"github.com/roach88/voxraw/internal/frame"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalidConfig is returned when a config file fails schema validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config mirrors the YAML file. Missing keys keep their Default values.
type Config struct {
	Input       string `yaml:"input" json:"input"`
	Output      string `yaml:"output" json:"output"`
	Grid        string `yaml:"grid" json:"grid"`
	Merge       string `yaml:"merge" json:"merge"`
	DoG         bool   `yaml:"dog" json:"dog"`
	CutoffMask  bool   `yaml:"cutoff_mask" json:"cutoff_mask"`
	OnReadError string `yaml:"on_read_error" json:"on_read_error"`
}

// Default returns the settings used when no file or flag overrides them.
func Default() Config {
	return Config{
		Input:       "./vdb",
		Output:      "./raw/",
		Grid:        "density",
		Merge:       composite.DefaultPolicy,
		OnReadError: string(frame.Abort),
	}
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func schema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile config schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Config"))
	})
	return schemaCtx, schemaDef, schemaErr
}

// Validate checks YAML data against the schema. filename is used only in
// error positions.
func Validate(filename string, data []byte) error {
	ctx, def, err := schema()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	f, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filename, err)
	}
	v := ctx.BuildFile(f)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filename, err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, cueerrors.Details(err, nil))
	}
	return nil
}

// Parse validates data and decodes it over Default.
func Parse(filename string, data []byte) (Config, error) {
	cfg := Default()
	if err := Validate(filename, data); err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filename, err)
	}
	return cfg, nil
}

// Load reads and parses the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// FrameConfig resolves the settings into processor options.
func (c Config) FrameConfig() (frame.Config, error) {
	policy, err := composite.PolicyByName(c.Merge)
	if err != nil {
		return frame.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	onErr := frame.ReadErrorPolicy(c.OnReadError)
	if onErr != frame.Abort && onErr != frame.Skip {
		return frame.Config{}, fmt.Errorf("%w: on_read_error must be %q or %q, got %q",
			ErrInvalidConfig, frame.Abort, frame.Skip, c.OnReadError)
	}
	return frame.Config{
		InputDir:    c.Input,
		OutputDir:   c.Output,
		GridName:    c.Grid,
		Policy:      policy,
		DoG:         c.DoG,
		CutoffMask:  c.CutoffMask,
		OnReadError: onErr,
	}, nil
}
