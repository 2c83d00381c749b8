package grid

import (
	"fmt"
	"math"
)

// Coord is an integer voxel coordinate.
type Coord struct {
	X, Y, Z int32
}

// Axis selects one of the three principal axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lower-case axis letter.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Add returns the component-wise sum of c and o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// Step returns c moved n voxels along axis.
func (c Coord) Step(axis Axis, n int32) Coord {
	switch axis {
	case AxisX:
		c.X += n
	case AxisY:
		c.Y += n
	case AxisZ:
		c.Z += n
	}
	return c
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// BBox is an inclusive axis-aligned box of voxel coordinates.
// A box with Min greater than Max on any axis is empty.
type BBox struct {
	Min, Max Coord
}

// EmptyBBox returns a box that contains nothing and grows to fit the first
// coordinate passed to Expand.
func EmptyBBox() BBox {
	return BBox{
		Min: Coord{math.MaxInt32, math.MaxInt32, math.MaxInt32},
		Max: Coord{math.MinInt32, math.MinInt32, math.MinInt32},
	}
}

// NewBBox returns the box spanning min..max inclusive.
func NewBBox(min, max Coord) BBox {
	return BBox{Min: min, Max: max}
}

// IsEmpty reports whether the box contains no coordinates.
func (b BBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Expand grows the box to include c.
func (b *BBox) Expand(c Coord) {
	b.Min.X = min(b.Min.X, c.X)
	b.Min.Y = min(b.Min.Y, c.Y)
	b.Min.Z = min(b.Min.Z, c.Z)
	b.Max.X = max(b.Max.X, c.X)
	b.Max.Y = max(b.Max.Y, c.Y)
	b.Max.Z = max(b.Max.Z, c.Z)
}

// Contains reports whether c lies inside the box.
func (b BBox) Contains(c Coord) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Dim returns the number of voxels along each axis. An empty box has
// dimensions (0,0,0).
func (b BBox) Dim() Coord {
	if b.IsEmpty() {
		return Coord{}
	}
	return Coord{
		b.Max.X - b.Min.X + 1,
		b.Max.Y - b.Min.Y + 1,
		b.Max.Z - b.Min.Z + 1,
	}
}

// Volume returns the number of voxels in the box.
func (b BBox) Volume() int64 {
	d := b.Dim()
	return int64(d.X) * int64(d.Y) * int64(d.Z)
}

// ForEach calls fn for every coordinate in the box with x varying fastest,
// then y, then z.
func (b BBox) ForEach(fn func(Coord)) {
	if b.IsEmpty() {
		return
	}
	for z := b.Min.Z; ; z++ {
		for y := b.Min.Y; ; y++ {
			for x := b.Min.X; ; x++ {
				fn(Coord{x, y, z})
				if x == b.Max.X {
					break
				}
			}
			if y == b.Max.Y {
				break
			}
		}
		if z == b.Max.Z {
			break
		}
	}
}

func (b BBox) String() string {
	if b.IsEmpty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%s -> %s]", b.Min, b.Max)
}
