package grid

import (
	"fmt"
	"math/bits"
)

// MaskWords is the number of 64-bit words in a leaf's active mask.
const MaskWords = maskWords

// LeafData is a detached view of one leaf for serializers: its origin, its
// active mask, and the active values in ascending mask order.
type LeafData struct {
	Origin Coord
	Mask   [MaskWords]uint64
	Values []float32
}

// ForEachLeaf calls fn for every non-empty leaf in deterministic order.
// The LeafData passed to fn is a copy and may be retained.
func (g *Grid) ForEachLeaf(fn func(LeafData)) {
	for _, origin := range g.sortedOrigins() {
		l := g.leaves[origin]
		d := LeafData{Origin: origin, Mask: l.mask, Values: make([]float32, 0, l.count)}
		l.forEachOn(func(i int) {
			d.Values = append(d.Values, l.values[i])
		})
		fn(d)
	}
}

// LeafCount returns the number of non-empty leaves.
func (g *Grid) LeafCount() int {
	n := 0
	for _, l := range g.leaves {
		if l.count > 0 {
			n++
		}
	}
	return n
}

// InsertLeaf activates every voxel named by d. The origin must be leaf
// aligned and Values must hold one entry per set mask bit.
func (g *Grid) InsertLeaf(d LeafData) error {
	if leafOrigin(d.Origin) != d.Origin {
		return fmt.Errorf("leaf origin %s is not aligned to %d", d.Origin, LeafDim)
	}
	n := 0
	for _, w := range d.Mask {
		n += bits.OnesCount64(w)
	}
	if n != len(d.Values) {
		return fmt.Errorf("leaf %s: mask has %d active voxels, got %d values", d.Origin, n, len(d.Values))
	}
	l := g.touchLeaf(d.Origin)
	tmp := leaf{mask: d.Mask}
	k := 0
	tmp.forEachOn(func(i int) {
		l.set(i, d.Values[k])
		k++
	})
	return nil
}
