package filter

import (
	"github.com/roach88/voxraw/internal/grid"
)

// Convolve applies k along axis to every voxel of g's active bounding box.
//
// The result starts as a deep copy of g, so it keeps g's background and any
// active voxels, and then every coordinate in the box is written and marked
// active, including those whose result equals the background. Taps that fall
// on inactive coordinates read the background value.
//
// Each output is a float32 running sum taken in tap order with float32
// weights.
func Convolve(g *grid.Grid, k Kernel, axis grid.Axis) *grid.Grid {
	in := g.ConstAccessor()
	out := g.DeepCopy()
	w := out.Accessor()

	radius := int32(k.Radius())
	weights := k.Float32()
	g.ActiveBBox().ForEach(func(p grid.Coord) {
		var acc float32
		for i, wt := range weights {
			// The explicit conversion keeps the product rounded before the
			// add, so no fused multiply-add is emitted.
			acc += float32(wt * in.Get(p.Step(axis, int32(i)-radius)))
		}
		w.Set(p, acc)
	})
	return out
}

// ConvolveXYZ applies k along x, then y, then z: a 3D convolution with the
// rank-1 kernel k⊗k⊗k.
func ConvolveXYZ(g *grid.Grid, k Kernel) *grid.Grid {
	return Convolve(Convolve(Convolve(g, k, grid.AxisX), k, grid.AxisY), k, grid.AxisZ)
}
