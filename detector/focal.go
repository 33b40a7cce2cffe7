package detector

import (
	"fmt"

	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// FoCal geometry. An inner stave is an 8-chip inner barrel module followed
// by a 7-chip outer barrel module. An outer stave is three 5-chip outer
// barrel modules.
const (
	FocalNumLayers              = 2
	FocalQuadrants              = 4
	FocalStavesPerQuadrant      = 33
	FocalInnerStavesPerQuadrant = 15
	FocalChipsPerStave          = 15
	FocalChipsPerIBModule       = stave.FocalInnerIBChips
	FocalChipsPerOBModule       = stave.FocalOuterModuleSlave + 1
	FocalStavesPerLayer         = FocalQuadrants * FocalStavesPerQuadrant
	FocalChipsPerLayer          = FocalStavesPerLayer * FocalChipsPerStave
)

// FocalLayout is the layout of the FoCal pixel layers.
type FocalLayout struct {
	stavesPerQuadrant int
}

// NewFocalLayout creates a FoCal layout that simulates the first
// stavesPerQuadrant staves of every quadrant.
func NewFocalLayout(stavesPerQuadrant int) (*FocalLayout, error) {
	if stavesPerQuadrant <= 0 {
		return nil, sim.NewConfigError("focal", "no staves are active")
	}

	err := checkStaveCount("focal", 0, stavesPerQuadrant, FocalStavesPerQuadrant)
	if err != nil {
		return nil, err
	}

	return &FocalLayout{stavesPerQuadrant: stavesPerQuadrant}, nil
}

// Type returns TypeFocal.
func (l *FocalLayout) Type() Type {
	return TypeFocal
}

// NumLayers returns 2.
func (l *FocalLayout) NumLayers() int {
	return FocalNumLayers
}

// ActiveStaves returns the simulated staves. Stave ids are numbered across
// quadrants, so they are not consecutive when not all staves are simulated.
func (l *FocalLayout) ActiveStaves() []StaveID {
	var ids []StaveID

	for layer := 0; layer < FocalNumLayers; layer++ {
		for q := 0; q < FocalQuadrants; q++ {
			for i := 0; i < l.stavesPerQuadrant; i++ {
				ids = append(ids, StaveID{
					Layer: layer,
					Stave: q*FocalStavesPerQuadrant + i,
				})
			}
		}
	}

	return ids
}

// NumChips returns the number of chips of both layers.
func (l *FocalLayout) NumChips() int {
	return FocalNumLayers * FocalChipsPerLayer
}

// IsInnerStave tells if a stave holds an inner barrel module.
func IsInnerStave(staveIdx int) bool {
	return staveIdx%FocalStavesPerQuadrant < FocalInnerStavesPerQuadrant
}

// GlobalChipID maps a position to a chip id. Module and ModuleChip are
// relative to the stave type.
func (l *FocalLayout) GlobalChipID(pos Position) int {
	return pos.Layer*FocalChipsPerLayer +
		pos.Stave*FocalChipsPerStave +
		focalChipInStave(pos.Stave, pos.Module, pos.ModuleChip)
}

func focalChipInStave(staveIdx, module, moduleChip int) int {
	if IsInnerStave(staveIdx) {
		return module*FocalChipsPerIBModule + moduleChip
	}

	return module*FocalChipsPerOBModule + moduleChip
}

// PositionOf maps a chip id to its position.
func (l *FocalLayout) PositionOf(id int) Position {
	layer := id / FocalChipsPerLayer
	inLayer := id % FocalChipsPerLayer
	staveIdx := inLayer / FocalChipsPerStave
	inStave := inLayer % FocalChipsPerStave

	pos := Position{Layer: layer, Stave: staveIdx}

	moduleSize := FocalChipsPerOBModule
	if IsInnerStave(staveIdx) {
		moduleSize = FocalChipsPerIBModule
	}

	pos.Module = inStave / moduleSize
	pos.ModuleChip = inStave % moduleSize

	return pos
}

// BuildStave builds an inner or an outer stave depending on where the stave
// sits in its quadrant.
func (l *FocalLayout) BuildStave(b stave.Builder, id StaveID) stave.Stave {
	name := fmt.Sprintf("Stave_%d_%d", id.Layer, id.Stave)
	b = b.WithGlobalIDFunc(func(p stave.Placement) int {
		return l.GlobalChipID(Position{
			Layer:      id.Layer,
			Stave:      id.Stave,
			Module:     p.Module,
			ModuleChip: p.ModuleChip,
		})
	})

	if IsInnerStave(id.Stave) {
		return b.BuildFocalInnerStave(name)
	}

	return b.BuildFocalOuterStave(name)
}
