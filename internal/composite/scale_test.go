package composite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/voxraw/internal/grid"
)

func densityGrid() *grid.Grid {
	g := grid.New(0.1)
	g.Set(grid.Coord{X: 0, Y: 0, Z: 0}, 0.5)
	g.Set(grid.Coord{X: 1, Y: 0, Z: 0}, 0.25)
	g.Set(grid.Coord{X: -4, Y: 9, Z: 2}, 1)
	return g
}

func TestScale_MultipliesActiveValuesOnly(t *testing.T) {
	g := densityGrid()

	out := Scale(g, 2)

	assert.Equal(t, float32(1), out.Get(grid.Coord{}))
	assert.Equal(t, float32(0.5), out.Get(grid.Coord{X: 1}))
	assert.Equal(t, float32(2), out.Get(grid.Coord{X: -4, Y: 9, Z: 2}))
	assert.Equal(t, float32(0.1), out.Background())
	assert.Equal(t, float32(0.1), out.Get(grid.Coord{X: 50}))
	assert.Equal(t, g.ActiveBBox(), out.ActiveBBox())
}

func TestScale_ZeroWeightKeepsTopology(t *testing.T) {
	g := densityGrid()

	out := Scale(g, 0)

	assert.Equal(t, g.ActiveCount(), out.ActiveCount())
	out.ForEachActive(func(c grid.Coord, v float32) {
		assert.Equal(t, float32(0), v, "voxel %s", c)
	})
	assert.Equal(t, float32(0.1), out.Background())
}

func TestScale_DoesNotMutateInput(t *testing.T) {
	g := densityGrid()

	_ = Scale(g, 3)

	assert.Equal(t, float32(0.5), g.Get(grid.Coord{}))
}

func TestScale_Linearity(t *testing.T) {
	g := densityGrid()
	pairs := [][2]float32{{0.5, 0.25}, {1, 0}, {0.2, 0.7}, {-1, 2}}

	for _, p := range pairs {
		w1, w2 := p[0], p[1]
		sum := Scale(g, w1+w2)
		a := Scale(g, w1)
		b := Scale(g, w2)

		require.Equal(t, g.ActiveCount(), sum.ActiveCount())
		g.ForEachActive(func(c grid.Coord, _ float32) {
			assert.InDelta(t, a.Get(c)+b.Get(c), sum.Get(c), 1e-6, "w1=%v w2=%v voxel %s", w1, w2, c)
		})
	}
}
