package composite

import (
	"errors"

	"github.com/roach88/voxraw/internal/grid"
)

// ErrEmptyInput is returned by Composite for an empty grid list.
var ErrEmptyInput = errors.New("composite: empty grid list")

// Composite folds grids left to right into a new grid. The accumulator starts
// as a deep copy of grids[0]; each later grid is merged into it in list order.
// The result keeps the first grid's background. No input is modified.
func Composite(grids []*grid.Grid, policy Policy) (*grid.Grid, error) {
	if len(grids) == 0 {
		return nil, ErrEmptyInput
	}
	acc := grids[0].DeepCopy()
	for _, next := range grids[1:] {
		merge(acc, next, policy)
	}
	return acc, nil
}

// merge folds next into acc in place. acc is always a grid Composite owns.
func merge(acc, next *grid.Grid, policy Policy) {
	w := acc.Accessor()
	next.ForEachActive(func(c grid.Coord, v float32) {
		if w.IsActive(c) {
			w.Set(c, policy.Merge(w.Get(c), v))
			return
		}
		w.Set(c, v)
	})
}

// Intersect returns a copy of g restricted to voxels that are also active in
// mask. Values come from g.
func Intersect(g, mask *grid.Grid) *grid.Grid {
	out := grid.New(g.Background())
	w := out.Accessor()
	m := mask.ConstAccessor()
	g.ForEachActive(func(c grid.Coord, v float32) {
		if m.IsActive(c) {
			w.Set(c, v)
		}
	})
	return out
}
