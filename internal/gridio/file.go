package gridio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"
	"os"
	"slices"

	"github.com/roach88/voxraw/internal/grid"
)

const (
	magic         = "VXRG"
	formatVersion = uint16(1)

	leafHeaderSize = 3*4 + grid.MaskWords*8
	maxNameLen     = math.MaxUint16

	// maxRawBlock caps one grid's uncompressed leaf block.
	maxRawBlock = 1 << 30
)

// Read opens path and returns the grid stored under name.
func Read(path, name string) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read grid %q: %w", path, err)
	}
	defer f.Close()

	g, err := ReadFrom(bufio.NewReader(f), name)
	if err != nil {
		return nil, fmt.Errorf("read grid %q: %w", path, err)
	}
	return g, nil
}

// Write stores grids in a new file at path, replacing any existing file.
func Write(path string, grids map[string]*grid.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write grid %q: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := WriteTo(w, grids); err != nil {
		f.Close()
		return fmt.Errorf("write grid %q: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write grid %q: %w", path, err)
	}
	return f.Close()
}

// WriteTo encodes grids to w as float grids, ordered by name.
func WriteTo(w io.Writer, grids map[string]*grid.Grid) error {
	codec, err := lookupCodec(TypeFloat)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(grids))
	for name := range grids {
		if len(name) > maxNameLen {
			return fmt.Errorf("grid name too long: %d bytes", len(name))
		}
		names = append(names, name)
	}
	slices.Sort(names)

	hdr := []byte(magic)
	hdr = binary.LittleEndian.AppendUint16(hdr, formatVersion)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(names)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	for _, name := range names {
		if err := writeGrid(w, name, TypeFloat, codec, grids[name]); err != nil {
			return fmt.Errorf("grid %q: %w", name, err)
		}
	}
	return nil
}

func writeGrid(w io.Writer, name, valueType string, codec valueCodec, g *grid.Grid) error {
	var payload []byte
	leaves := 0
	scratch := make([]byte, codec.size)
	g.ForEachLeaf(func(d grid.LeafData) {
		leaves++
		payload = binary.LittleEndian.AppendUint32(payload, uint32(d.Origin.X))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(d.Origin.Y))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(d.Origin.Z))
		for _, word := range d.Mask {
			payload = binary.LittleEndian.AppendUint64(payload, word)
		}
		for _, v := range d.Values {
			codec.encode(scratch, v)
			payload = append(payload, scratch...)
		}
	})

	compressed, err := compressZstd(payload)
	if err != nil {
		return fmt.Errorf("compress leaves: %w", err)
	}

	var hdr []byte
	hdr = appendString(hdr, name)
	hdr = appendString(hdr, valueType)
	codec.encode(scratch, g.Background())
	hdr = append(hdr, scratch...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(leaves))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(payload)))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(compressed)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(len(s)))
	return append(b, s...)
}

// gridHeader describes one stored grid before its leaf block.
type gridHeader struct {
	Name       string
	ValueType  string
	Background float32
	Leaves     uint32
	RawLen     uint32
	CompLen    uint32

	codec valueCodec
}

func readFileHeader(r io.Reader) (uint32, error) {
	var hdr [4 + 2 + 4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrBadMagic
		}
		return 0, err
	}
	if string(hdr[:4]) != magic {
		return 0, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != formatVersion {
		return 0, fmt.Errorf("unsupported format version %d", v)
	}
	return binary.LittleEndian.Uint32(hdr[6:]), nil
}

func readString(r io.Reader) (string, error) {
	var n [2]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	buf := make([]byte, binary.LittleEndian.Uint16(n[:]))
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readGridHeader(r io.Reader) (gridHeader, error) {
	var h gridHeader
	var err error
	if h.Name, err = readString(r); err != nil {
		return h, fmt.Errorf("grid name: %w", err)
	}
	if h.ValueType, err = readString(r); err != nil {
		return h, fmt.Errorf("grid %q value type: %w", h.Name, err)
	}
	if h.codec, err = lookupCodec(h.ValueType); err != nil {
		return h, fmt.Errorf("grid %q (%s): %w", h.Name, h.ValueType, err)
	}
	buf := make([]byte, h.codec.size+12)
	if _, err := io.ReadFull(r, buf); err != nil {
		return h, fmt.Errorf("grid %q header: %w", h.Name, err)
	}
	h.Background = h.codec.decode(buf)
	rest := buf[h.codec.size:]
	h.Leaves = binary.LittleEndian.Uint32(rest[0:4])
	h.RawLen = binary.LittleEndian.Uint32(rest[4:8])
	h.CompLen = binary.LittleEndian.Uint32(rest[8:12])
	if err := h.checkLengths(); err != nil {
		return h, err
	}
	return h, nil
}

// checkLengths rejects headers whose block sizes cannot belong to Leaves
// leaves, before anything is allocated from them.
func (h gridHeader) checkLengths() error {
	leaves := uint64(h.Leaves)
	minRaw := leaves * leafHeaderSize
	maxRaw := leaves * uint64(leafHeaderSize+grid.LeafVoxels*h.codec.size)
	raw := uint64(h.RawLen)
	if raw < minRaw || raw > maxRaw || raw > maxRawBlock {
		return fmt.Errorf("%w: grid %q: %d leaves cannot fill %d bytes", ErrCorrupt, h.Name, h.Leaves, h.RawLen)
	}
	if uint64(h.CompLen) > maxCompressedLen(raw) || (raw == 0) != (h.CompLen == 0) {
		return fmt.Errorf("%w: grid %q: compressed block of %d bytes for %d raw", ErrCorrupt, h.Name, h.CompLen, h.RawLen)
	}
	return nil
}

// maxCompressedLen is an upper bound on zstd output for n input bytes,
// frame overhead included.
func maxCompressedLen(n uint64) uint64 {
	return n + n>>7 + 1024
}

// ReadFrom decodes the grid stored under name from r.
func ReadFrom(r io.Reader, name string) (*grid.Grid, error) {
	if !Initialized() {
		return nil, ErrNotInitialized
	}
	count, err := readFileHeader(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		h, err := readGridHeader(r)
		if err != nil {
			return nil, err
		}
		if h.Name != name {
			if _, err := io.CopyN(io.Discard, r, int64(h.CompLen)); err != nil {
				return nil, fmt.Errorf("skip grid %q: %w", h.Name, err)
			}
			continue
		}
		return decodeLeaves(r, h)
	}
	return nil, fmt.Errorf("%w: %q", ErrGridNotFound, name)
}

// Names lists the grids stored in r in file order.
func Names(r io.Reader) ([]string, error) {
	if !Initialized() {
		return nil, ErrNotInitialized
	}
	count, err := readFileHeader(r)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		h, err := readGridHeader(r)
		if err != nil {
			return nil, err
		}
		if _, err := io.CopyN(io.Discard, r, int64(h.CompLen)); err != nil {
			return nil, fmt.Errorf("skip grid %q: %w", h.Name, err)
		}
		names = append(names, h.Name)
	}
	return names, nil
}

func decodeLeaves(r io.Reader, h gridHeader) (*grid.Grid, error) {
	// Grow with the bytes actually present rather than trusting CompLen.
	var compressed bytes.Buffer
	if _, err := io.CopyN(&compressed, r, int64(h.CompLen)); err != nil {
		return nil, fmt.Errorf("grid %q leaves: %w", h.Name, err)
	}
	payload, err := decompressZstd(compressed.Bytes(), h.RawLen)
	if err != nil {
		return nil, fmt.Errorf("grid %q decompress: %w", h.Name, err)
	}
	if len(payload) != int(h.RawLen) {
		return nil, fmt.Errorf("%w: grid %q: leaf block is %d bytes, header says %d", ErrCorrupt, h.Name, len(payload), h.RawLen)
	}

	g := grid.New(h.Background)
	for i := uint32(0); i < h.Leaves; i++ {
		if len(payload) < leafHeaderSize {
			return nil, fmt.Errorf("%w: grid %q: truncated leaf %d", ErrCorrupt, h.Name, i)
		}
		var d grid.LeafData
		d.Origin = grid.Coord{
			X: int32(binary.LittleEndian.Uint32(payload[0:4])),
			Y: int32(binary.LittleEndian.Uint32(payload[4:8])),
			Z: int32(binary.LittleEndian.Uint32(payload[8:12])),
		}
		active := 0
		for w := range d.Mask {
			d.Mask[w] = binary.LittleEndian.Uint64(payload[12+8*w:])
			active += bits.OnesCount64(d.Mask[w])
		}
		payload = payload[leafHeaderSize:]

		need := active * h.codec.size
		if len(payload) < need {
			return nil, fmt.Errorf("%w: grid %q: truncated values in leaf %s", ErrCorrupt, h.Name, d.Origin)
		}
		d.Values = make([]float32, active)
		for k := range d.Values {
			d.Values[k] = h.codec.decode(payload[k*h.codec.size:])
		}
		payload = payload[need:]

		if err := g.InsertLeaf(d); err != nil {
			return nil, fmt.Errorf("grid %q: %w", h.Name, err)
		}
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("%w: grid %q: %d bytes after the last leaf", ErrCorrupt, h.Name, len(payload))
	}
	return g, nil
}
