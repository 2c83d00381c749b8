// Package gridio reads and writes named sparse grids.
//
// A file holds one or more grids keyed by name. Each grid is stored as a
// small header followed by a zstd-compressed block of leaf nodes: the leaf
// origin, its active mask, and only the active values. All integers are
// little-endian.
//
// The package must be initialized once per process with Initialize before any
// grid is read or written. Initialization registers the value codecs the
// reader understands; calling it again is a no-op.
package gridio

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
)

var (
	// ErrNotInitialized is returned when Read or Write runs before Initialize.
	ErrNotInitialized = errors.New("gridio: library not initialized")

	// ErrGridNotFound is returned when a file has no grid with the requested name.
	ErrGridNotFound = errors.New("gridio: grid not found")

	// ErrBadMagic is returned for input that is not a grid file.
	ErrBadMagic = errors.New("gridio: not a grid file")

	// ErrUnsupportedType is returned for a grid whose value type has no codec.
	ErrUnsupportedType = errors.New("gridio: unsupported value type")

	// ErrCorrupt is returned when a grid's header or leaf block is
	// inconsistent: lengths out of range, or payload left over after the
	// last leaf.
	ErrCorrupt = errors.New("gridio: corrupt grid data")
)

// valueCodec converts between stored values and in-memory float32 values.
type valueCodec struct {
	size   int
	decode func([]byte) float32
	encode func([]byte, float32)
}

// Value type names recorded in grid headers.
const (
	TypeFloat  = "float"
	TypeDouble = "double"
)

var (
	initMu      sync.Mutex
	initialized bool
	codecs      map[string]valueCodec
)

// Initialize performs the one-time process-wide setup of the grid library.
// It is safe to call more than once.
func Initialize() {
	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		return
	}
	codecs = map[string]valueCodec{
		TypeFloat: {
			size:   4,
			decode: func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) },
			encode: func(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) },
		},
		// Double grids are narrowed to float32 on read.
		TypeDouble: {
			size:   8,
			decode: func(b []byte) float32 { return float32(math.Float64frombits(binary.LittleEndian.Uint64(b))) },
			encode: func(b []byte, v float32) { binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v))) },
		},
	}
	initialized = true
}

// Initialized reports whether Initialize has run.
func Initialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initialized
}

func lookupCodec(name string) (valueCodec, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if !initialized {
		return valueCodec{}, ErrNotInitialized
	}
	c, ok := codecs[name]
	if !ok {
		return valueCodec{}, ErrUnsupportedType
	}
	return c, nil
}

// uninitialize resets the library state. Tests use it to exercise the
// uninitialized path.
func uninitialize() {
	initMu.Lock()
	defer initMu.Unlock()
	initialized = false
	codecs = nil
}
