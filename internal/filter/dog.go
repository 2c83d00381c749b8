package filter

import "github.com/roach88/voxraw/internal/grid"

// DoG returns the difference of Gaussians of g: the BigGauss blur minus the
// SmallGauss blur, combined over the union of both blurs' active voxels.
// The result keeps frequencies between the two kernels' bandwidths.
func DoG(g *grid.Grid) *grid.Grid {
	small := ConvolveXYZ(g, SmallGauss)
	big := ConvolveXYZ(g, BigGauss)
	return grid.Combine(big, small, func(a, b float32) float32 {
		return a - b
	})
}
