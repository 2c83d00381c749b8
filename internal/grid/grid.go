package grid

import (
	"math/bits"
	"slices"
)

// Leaf node geometry.
const (
	LeafLog2Dim = 3
	LeafDim     = 1 << LeafLog2Dim
	LeafVoxels  = LeafDim * LeafDim * LeafDim

	leafMask  = LeafDim - 1
	maskWords = LeafVoxels / 64
)

type leaf struct {
	values [LeafVoxels]float32
	mask   [maskWords]uint64
	count  int
}

func leafOrigin(c Coord) Coord {
	return Coord{c.X &^ leafMask, c.Y &^ leafMask, c.Z &^ leafMask}
}

// leafIndex is x-fastest inside the leaf so that scanning indices in order
// walks the leaf the same way BBox.ForEach walks a box.
func leafIndex(c Coord) int {
	return int(c.X&leafMask) | int(c.Y&leafMask)<<LeafLog2Dim | int(c.Z&leafMask)<<(2*LeafLog2Dim)
}

func indexCoord(origin Coord, i int) Coord {
	return Coord{
		origin.X + int32(i&leafMask),
		origin.Y + int32((i>>LeafLog2Dim)&leafMask),
		origin.Z + int32(i>>(2*LeafLog2Dim)),
	}
}

func (l *leaf) isOn(i int) bool {
	return l.mask[i>>6]&(1<<(uint(i)&63)) != 0
}

func (l *leaf) set(i int, v float32) {
	if !l.isOn(i) {
		l.mask[i>>6] |= 1 << (uint(i) & 63)
		l.count++
	}
	l.values[i] = v
}

func (l *leaf) clear(i int, background float32) {
	if l.isOn(i) {
		l.mask[i>>6] &^= 1 << (uint(i) & 63)
		l.count--
	}
	l.values[i] = background
}

// forEachOn calls fn for every active index in ascending order.
func (l *leaf) forEachOn(fn func(i int)) {
	for w, word := range l.mask {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			fn(w*64 + b)
			word &= word - 1
		}
	}
}

// Grid is a sparse float32 volume with a single background value.
type Grid struct {
	background float32
	leaves     map[Coord]*leaf
}

// New returns an empty grid with the given background value.
func New(background float32) *Grid {
	return &Grid{
		background: background,
		leaves:     make(map[Coord]*leaf),
	}
}

// Background returns the value of every inactive coordinate.
func (g *Grid) Background() float32 {
	return g.background
}

func (g *Grid) newLeaf() *leaf {
	l := &leaf{}
	if g.background != 0 {
		for i := range l.values {
			l.values[i] = g.background
		}
	}
	return l
}

func (g *Grid) touchLeaf(origin Coord) *leaf {
	l, ok := g.leaves[origin]
	if !ok {
		l = g.newLeaf()
		g.leaves[origin] = l
	}
	return l
}

// Get returns the value at c, or the background if c is inactive.
func (g *Grid) Get(c Coord) float32 {
	l, ok := g.leaves[leafOrigin(c)]
	if !ok {
		return g.background
	}
	i := leafIndex(c)
	if !l.isOn(i) {
		return g.background
	}
	return l.values[i]
}

// IsActive reports whether c holds an explicitly stored value.
func (g *Grid) IsActive(c Coord) bool {
	l, ok := g.leaves[leafOrigin(c)]
	return ok && l.isOn(leafIndex(c))
}

// Set stores v at c and marks c active.
func (g *Grid) Set(c Coord, v float32) {
	g.touchLeaf(leafOrigin(c)).set(leafIndex(c), v)
}

// SetInactive reverts c to the background value.
func (g *Grid) SetInactive(c Coord) {
	if l, ok := g.leaves[leafOrigin(c)]; ok {
		l.clear(leafIndex(c), g.background)
	}
}

// ActiveCount returns the number of active voxels.
func (g *Grid) ActiveCount() int {
	n := 0
	for _, l := range g.leaves {
		n += l.count
	}
	return n
}

// Empty reports whether the grid has no active voxels.
func (g *Grid) Empty() bool {
	for _, l := range g.leaves {
		if l.count > 0 {
			return false
		}
	}
	return true
}

// ActiveBBox returns the smallest box enclosing every active voxel. It is
// recomputed on each call.
func (g *Grid) ActiveBBox() BBox {
	box := EmptyBBox()
	for origin, l := range g.leaves {
		if l.count == 0 {
			continue
		}
		if l.count == LeafVoxels {
			box.Expand(origin)
			box.Expand(Coord{origin.X + leafMask, origin.Y + leafMask, origin.Z + leafMask})
			continue
		}
		l.forEachOn(func(i int) {
			box.Expand(indexCoord(origin, i))
		})
	}
	return box
}

// sortedOrigins returns the origins of non-empty leaves ordered by z, y, x.
func (g *Grid) sortedOrigins() []Coord {
	origins := make([]Coord, 0, len(g.leaves))
	for origin, l := range g.leaves {
		if l.count > 0 {
			origins = append(origins, origin)
		}
	}
	slices.SortFunc(origins, func(a, b Coord) int {
		switch {
		case a.Z != b.Z:
			return cmpInt32(a.Z, b.Z)
		case a.Y != b.Y:
			return cmpInt32(a.Y, b.Y)
		default:
			return cmpInt32(a.X, b.X)
		}
	})
	return origins
}

func cmpInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ForEachActive calls fn for every active voxel. The order is deterministic:
// leaves sorted by origin (z, then y, then x), voxels x-fastest within a leaf.
func (g *Grid) ForEachActive(fn func(c Coord, v float32)) {
	for _, origin := range g.sortedOrigins() {
		l := g.leaves[origin]
		l.forEachOn(func(i int) {
			fn(indexCoord(origin, i), l.values[i])
		})
	}
}

// UpdateActive replaces every active value with fn(c, v). Topology is
// unchanged.
func (g *Grid) UpdateActive(fn func(c Coord, v float32) float32) {
	for origin, l := range g.leaves {
		l.forEachOn(func(i int) {
			l.values[i] = fn(indexCoord(origin, i), l.values[i])
		})
	}
}

// DeepCopy returns an independent copy of the grid.
func (g *Grid) DeepCopy() *Grid {
	out := &Grid{
		background: g.background,
		leaves:     make(map[Coord]*leaf, len(g.leaves)),
	}
	for origin, l := range g.leaves {
		cp := *l
		out.leaves[origin] = &cp
	}
	return out
}

// Combine evaluates fn over the union of a's and b's active topologies.
// A coordinate active in either grid is active in the result with value
// fn(a.Get(c), b.Get(c)); the result's background is fn of both backgrounds.
// Neither input is modified.
func Combine(a, b *Grid, fn func(a, b float32) float32) *Grid {
	out := New(fn(a.background, b.background))
	acc := out.Accessor()
	ra := a.ConstAccessor()
	rb := b.ConstAccessor()

	a.ForEachActive(func(c Coord, v float32) {
		acc.Set(c, fn(v, rb.Get(c)))
	})
	b.ForEachActive(func(c Coord, v float32) {
		if ra.IsActive(c) {
			return
		}
		acc.Set(c, fn(ra.Get(c), v))
	})
	return out
}
