package composite

import "github.com/roach88/voxraw/internal/grid"

// Scale returns a copy of g with every active value multiplied by weight.
// The background is not scaled and the active topology is unchanged, so a
// zero weight yields active voxels holding zero.
func Scale(g *grid.Grid, weight float32) *grid.Grid {
	out := g.DeepCopy()
	out.UpdateActive(func(_ grid.Coord, v float32) float32 {
		return v * weight
	})
	return out
}
