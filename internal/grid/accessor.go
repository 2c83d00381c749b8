package grid

// Accessor provides amortized reads and writes by caching the last leaf it
// touched. It is only valid for the grid that created it.
type Accessor struct {
	g      *Grid
	origin Coord
	leaf   *leaf
}

// Accessor returns a read-write accessor for g.
func (g *Grid) Accessor() *Accessor {
	return &Accessor{g: g}
}

func (a *Accessor) lookup(c Coord, create bool) *leaf {
	origin := leafOrigin(c)
	if a.leaf != nil && origin == a.origin {
		return a.leaf
	}
	var l *leaf
	if create {
		l = a.g.touchLeaf(origin)
	} else {
		l = a.g.leaves[origin]
		if l == nil {
			return nil
		}
	}
	a.origin, a.leaf = origin, l
	return l
}

// Get returns the value at c, or the background if c is inactive.
func (a *Accessor) Get(c Coord) float32 {
	l := a.lookup(c, false)
	if l == nil {
		return a.g.background
	}
	i := leafIndex(c)
	if !l.isOn(i) {
		return a.g.background
	}
	return l.values[i]
}

// IsActive reports whether c is active.
func (a *Accessor) IsActive(c Coord) bool {
	l := a.lookup(c, false)
	return l != nil && l.isOn(leafIndex(c))
}

// Set stores v at c and marks it active.
func (a *Accessor) Set(c Coord, v float32) {
	a.lookup(c, true).set(leafIndex(c), v)
}

// ConstAccessor is a read-only Accessor.
type ConstAccessor struct {
	a Accessor
}

// ConstAccessor returns a read-only accessor for g.
func (g *Grid) ConstAccessor() *ConstAccessor {
	return &ConstAccessor{a: Accessor{g: g}}
}

// Get returns the value at c, or the background if c is inactive.
func (r *ConstAccessor) Get(c Coord) float32 {
	return r.a.Get(c)
}

// IsActive reports whether c is active.
func (r *ConstAccessor) IsActive(c Coord) bool {
	return r.a.IsActive(c)
}
