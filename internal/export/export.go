// Package export rasterizes sparse grids into dense unsigned 8-bit volumes.
//
// A grid's active bounding box is written voxel by voxel, x fastest, then y,
// then z, one byte per voxel with no header. The box dimensions travel in the
// file name: <prefix><dx>,<dy>,<dz>.raw.
package export

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/voxraw/internal/fsutil"
	"github.com/roach88/voxraw/internal/grid"
)

// Result describes one exported volume.
type Result struct {
	Path   string
	Dim    grid.Coord
	Bytes  int64
	SHA256 string
}

// Exporter writes dense volumes through a FileSystem.
type Exporter struct {
	FS     fsutil.FileSystem
	Logger *slog.Logger
}

// New returns an Exporter writing through fsys and logging to slog.Default.
func New(fsys fsutil.FileSystem) *Exporter {
	return &Exporter{FS: fsys}
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// FileName returns the output name for a volume of the given dimensions.
func FileName(prefix string, dim grid.Coord) string {
	return fmt.Sprintf("%s%d,%d,%d.raw", prefix, dim.X, dim.Y, dim.Z)
}

// Quantize maps a density to a byte by scaling by 255 and truncating toward
// zero. There is no clamping: values outside [0,1] wrap modulo 256.
func Quantize(v float32) byte {
	return byte(int32(v * 255))
}

// Dense returns the quantized active bounding box of g in scan order.
func Dense(g *grid.Grid) []byte {
	box := g.ActiveBBox()
	out := make([]byte, 0, box.Volume())
	r := g.ConstAccessor()
	box.ForEach(func(c grid.Coord) {
		out = append(out, Quantize(r.Get(c)))
	})
	return out
}

// Export writes g to FileName(prefix, dims). If the file cannot be created
// the failure is logged and nothing is written; ok is false in that case and
// when a write fails part way.
func (e *Exporter) Export(g *grid.Grid, prefix string) (res Result, ok bool) {
	box := g.ActiveBBox()
	res = Result{Path: FileName(prefix, box.Dim()), Dim: box.Dim()}

	f, err := e.FS.Create(res.Path)
	if err != nil {
		e.logger().Error("can't write to file", "path", res.Path, "error", err)
		return res, false
	}

	h := sha256.New()
	w := bufio.NewWriter(io.MultiWriter(f, h))
	r := g.ConstAccessor()
	var writeErr error
	box.ForEach(func(c grid.Coord) {
		if writeErr != nil {
			return
		}
		writeErr = w.WriteByte(Quantize(r.Get(c)))
		if writeErr == nil {
			res.Bytes++
		}
	})
	if writeErr == nil {
		writeErr = w.Flush()
	}
	if err := f.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		e.logger().Error("write failed", "path", res.Path, "error", writeErr)
		return res, false
	}

	res.SHA256 = hex.EncodeToString(h.Sum(nil))
	e.logger().Debug("exported volume", "path", res.Path, "dim", res.Dim.String(), "bytes", res.Bytes)
	return res, true
}
