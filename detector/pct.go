package detector

import (
	"fmt"

	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// PCTChipsPerStave is the number of chips of a PCT stave. All of them are
// read out like inner barrel chips.
const PCTChipsPerStave = 12

// PCTLayout is the layout of the proton CT demonstrator: identical layers
// of identical staves.
type PCTLayout struct {
	layers         int
	stavesPerLayer int
}

// NewPCTLayout creates a PCT layout.
func NewPCTLayout(layers, stavesPerLayer int) (*PCTLayout, error) {
	if layers <= 0 || stavesPerLayer <= 0 {
		return nil, sim.NewConfigError("pct",
			"%d layers of %d staves: no layers are active",
			layers, stavesPerLayer)
	}

	return &PCTLayout{layers: layers, stavesPerLayer: stavesPerLayer}, nil
}

// Type returns TypePCT.
func (l *PCTLayout) Type() Type {
	return TypePCT
}

// NumLayers returns the number of layers.
func (l *PCTLayout) NumLayers() int {
	return l.layers
}

// ActiveStaves returns all the staves.
func (l *PCTLayout) ActiveStaves() []StaveID {
	ids := make([]StaveID, 0, l.layers*l.stavesPerLayer)

	for layer := 0; layer < l.layers; layer++ {
		for s := 0; s < l.stavesPerLayer; s++ {
			ids = append(ids, StaveID{Layer: layer, Stave: s})
		}
	}

	return ids
}

// NumChips returns the number of chips.
func (l *PCTLayout) NumChips() int {
	return l.layers * l.stavesPerLayer * PCTChipsPerStave
}

func (l *PCTLayout) GlobalChipID(pos Position) int {
	return (pos.Layer*l.stavesPerLayer+pos.Stave)*PCTChipsPerStave +
		pos.ModuleChip
}

func (l *PCTLayout) PositionOf(id int) Position {
	staveIdx := id / PCTChipsPerStave

	return Position{
		Layer:      staveIdx / l.stavesPerLayer,
		Stave:      staveIdx % l.stavesPerLayer,
		ModuleChip: id % PCTChipsPerStave,
	}
}

// BuildStave builds a 12-chip inner barrel stave.
func (l *PCTLayout) BuildStave(b stave.Builder, id StaveID) stave.Stave {
	name := fmt.Sprintf("Stave_%d_%d", id.Layer, id.Stave)
	b = b.WithGlobalIDFunc(func(p stave.Placement) int {
		return l.GlobalChipID(Position{
			Layer:      id.Layer,
			Stave:      id.Stave,
			ModuleChip: p.ModuleChip,
		})
	})

	return b.BuildInnerBarrelStave(name, PCTChipsPerStave)
}
