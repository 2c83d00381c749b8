package frame

import (
	"fmt"

	"github.com/roach88/voxraw/internal/composite"
	"github.com/roach88/voxraw/internal/grid"
)

// Channel identifies one of the four output volumes.
type Channel int

const (
	Red Channel = iota
	Green
	Blue
	Alpha

	NumChannels = 4
)

// Channels lists every channel in export order.
var Channels = [NumChannels]Channel{Red, Green, Blue, Alpha}

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Alpha:
		return "alpha"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ChannelSet accumulates per-channel weighted grids for one frame.
type ChannelSet struct {
	Grids  [NumChannels][]*grid.Grid
	Models []string

	// Cutoff is the grid of the CutoffModel, if the frame has one.
	Cutoff *grid.Grid
}

// Add appends one scaled copy of g per channel using m's weights.
func (s *ChannelSet) Add(m ModelFile, g *grid.Grid) {
	if m.IsCutoff() {
		s.Cutoff = g
	}
	for _, ch := range Channels {
		s.Grids[ch] = append(s.Grids[ch], composite.Scale(g, m.Weights[ch]))
	}
	s.Models = append(s.Models, m.Name)
}

// Len returns the number of models added.
func (s *ChannelSet) Len() int {
	return len(s.Models)
}
