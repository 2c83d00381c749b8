package frame

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrMalformedFilename is returned for model files whose names do not follow
// <model>-<r>,<g>,<b>,<a>.<ext>.
var ErrMalformedFilename = errors.New("malformed model filename")

// CutoffModel is the reserved model name whose grid is kept as the cutoff
// mask for a frame.
const CutoffModel = "capture_range"

// extLen is the length of the trailing extension, dot included (".vdb").
const extLen = 4

// ModelFile is a parsed model file name.
type ModelFile struct {
	Path    string
	Name    string
	Weights [NumChannels]float32
}

// IsCutoff reports whether this model is the reserved cutoff model.
func (m ModelFile) IsCutoff() bool {
	return m.Name == CutoffModel
}

// ParseModelFile extracts the model name and channel weights from path.
//
// The model name is everything before the first '-' of the base name, NFC
// normalized so that names from decomposing filesystems compare equal. The
// weights are the four comma-separated numbers between the last '-' and the
// extension.
func ParseModelFile(path string) (ModelFile, error) {
	base := filepath.Base(path)
	first := strings.IndexByte(base, '-')
	last := strings.LastIndexByte(base, '-')
	if first <= 0 {
		return ModelFile{}, fmt.Errorf("%w: %q: missing model name", ErrMalformedFilename, base)
	}
	if len(base)-last-1 <= extLen {
		return ModelFile{}, fmt.Errorf("%w: %q: missing channel weights", ErrMalformedFilename, base)
	}

	fields := strings.Split(base[last+1:len(base)-extLen], ",")
	if len(fields) != NumChannels {
		return ModelFile{}, fmt.Errorf("%w: %q: want %d channel weights, got %d",
			ErrMalformedFilename, base, NumChannels, len(fields))
	}

	m := ModelFile{
		Path: path,
		Name: norm.NFC.String(base[:first]),
	}
	for i, f := range fields {
		w, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return ModelFile{}, fmt.Errorf("%w: %q: channel %s: %w", ErrMalformedFilename, base, Channel(i), err)
		}
		m.Weights[i] = float32(w)
	}
	return m, nil
}
