package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBBox_ForEachOrderIsXFastest(t *testing.T) {
	box := NewBBox(Coord{0, 0, 0}, Coord{1, 1, 1})

	var got []Coord
	box.ForEach(func(c Coord) { got = append(got, c) })

	want := []Coord{
		{0, 0, 0}, {1, 0, 0},
		{0, 1, 0}, {1, 1, 0},
		{0, 0, 1}, {1, 0, 1},
		{0, 1, 1}, {1, 1, 1},
	}
	assert.Equal(t, want, got)
}

func TestBBox_Empty(t *testing.T) {
	box := EmptyBBox()

	assert.True(t, box.IsEmpty())
	assert.Equal(t, Coord{}, box.Dim())
	assert.Equal(t, int64(0), box.Volume())

	called := false
	box.ForEach(func(Coord) { called = true })
	assert.False(t, called)

	box.Expand(Coord{2, -3, 4})
	assert.False(t, box.IsEmpty())
	assert.Equal(t, Coord{1, 1, 1}, box.Dim())
}

func TestBBox_ContainsAndVolume(t *testing.T) {
	box := NewBBox(Coord{-1, -1, -1}, Coord{1, 2, 3})

	assert.True(t, box.Contains(Coord{0, 0, 0}))
	assert.True(t, box.Contains(Coord{1, 2, 3}))
	assert.False(t, box.Contains(Coord{2, 0, 0}))
	assert.Equal(t, int64(3*4*5), box.Volume())
}

func TestCoord_Step(t *testing.T) {
	c := Coord{1, 2, 3}

	assert.Equal(t, Coord{-1, 2, 3}, c.Step(AxisX, -2))
	assert.Equal(t, Coord{1, 5, 3}, c.Step(AxisY, 3))
	assert.Equal(t, Coord{1, 2, 4}, c.Step(AxisZ, 1))
	assert.Equal(t, "y", AxisY.String())
}
