package detector

import (
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// A Layout describes the geometry of a detector.
type Layout interface {
	Type() Type

	// NumLayers returns the number of layers of the detector.
	NumLayers() int

	// ActiveStaves returns the staves that are simulated, in layer order.
	ActiveStaves() []StaveID

	// NumChips returns the number of chip ids of the detector, including
	// chips on staves that are not simulated.
	NumChips() int

	// GlobalChipID maps a position to the detector-wide chip id.
	GlobalChipID(pos Position) int

	// PositionOf maps a global chip id back to its position.
	PositionOf(id int) Position

	// BuildStave creates the chips of a stave.
	BuildStave(b stave.Builder, id StaveID) stave.Stave
}

func layerOf(id int, cumulative []int) int {
	layer := 0
	for layer < len(cumulative)-1 && id >= cumulative[layer+1] {
		layer++
	}

	return layer
}

func checkStaveCount(where string, layer, n, max int) error {
	if n > max {
		return sim.NewConfigError(where,
			"layer %d has %d staves, at most %d are possible", layer, n, max)
	}

	return nil
}
