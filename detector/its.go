package detector

import (
	"fmt"

	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// ITS geometry.
const (
	ITSNumLayers          = 7
	ITSInnerLayers        = 3
	ITSMiddleLayers       = 2
	ITSChipsPerIBStave    = stave.ITSInnerBarrelChips
	ITSChipsPerHalfModule = stave.ITSHalfModuleSlaves + 1
	ITSChipsPerModule     = 2 * ITSChipsPerHalfModule
	ITSModulesPerMBStave  = 8
	ITSModulesPerOBStave  = 14
)

// ITSStavesPerLayer is the number of staves of each ITS layer.
var ITSStavesPerLayer = [ITSNumLayers]int{12, 16, 20, 24, 30, 42, 48}

// ITSLayout is the layout of the ALICE Inner Tracking System.
type ITSLayout struct {
	activeStaves [ITSNumLayers]int
	cumulative   []int
}

// NewITSLayout creates an ITS layout with the given number of simulated
// staves per layer.
func NewITSLayout(staves [ITSNumLayers]int) (*ITSLayout, error) {
	total := 0

	for l, n := range staves {
		if n < 0 {
			return nil, sim.NewConfigError("its",
				"layer %d has a negative stave count", l)
		}

		err := checkStaveCount("its", l, n, ITSStavesPerLayer[l])
		if err != nil {
			return nil, err
		}

		total += n
	}

	if total == 0 {
		return nil, sim.NewConfigError("its", "no layers are active")
	}

	l := &ITSLayout{activeStaves: staves}

	l.cumulative = make([]int, ITSNumLayers)
	for i := 1; i < ITSNumLayers; i++ {
		l.cumulative[i] = l.cumulative[i-1] +
			ITSStavesPerLayer[i-1]*ITSChipsPerStave(i-1)
	}

	return l, nil
}

// ITSChipsPerStave returns the number of chips of a stave of a layer.
func ITSChipsPerStave(layer int) int {
	return ITSModulesPerStave(layer) * itsChipsPerModule(layer)
}

// ITSModulesPerStave returns the number of modules of a stave of a layer.
func ITSModulesPerStave(layer int) int {
	switch {
	case layer < ITSInnerLayers:
		return 1
	case layer < ITSInnerLayers+ITSMiddleLayers:
		return ITSModulesPerMBStave
	default:
		return ITSModulesPerOBStave
	}
}

func itsChipsPerModule(layer int) int {
	if layer < ITSInnerLayers {
		return ITSChipsPerIBStave
	}

	return ITSChipsPerModule
}

func itsModulesPerSubStave(layer int) int {
	if layer < ITSInnerLayers {
		return 1
	}

	return ITSModulesPerStave(layer) / 2
}

// Type returns TypeITS.
func (l *ITSLayout) Type() Type {
	return TypeITS
}

// NumLayers returns 7.
func (l *ITSLayout) NumLayers() int {
	return ITSNumLayers
}

// ActiveStaves returns the simulated staves.
func (l *ITSLayout) ActiveStaves() []StaveID {
	var ids []StaveID

	for layer, n := range l.activeStaves {
		for s := 0; s < n; s++ {
			ids = append(ids, StaveID{Layer: layer, Stave: s})
		}
	}

	return ids
}

// NumChips returns the number of chips of the full ITS.
func (l *ITSLayout) NumChips() int {
	last := ITSNumLayers - 1
	return l.cumulative[last] + ITSStavesPerLayer[last]*ITSChipsPerStave(last)
}

// GlobalChipID maps a position to a chip id.
func (l *ITSLayout) GlobalChipID(pos Position) int {
	id := l.cumulative[pos.Layer]
	id += pos.Stave * ITSChipsPerStave(pos.Layer)
	id += pos.SubStave * itsModulesPerSubStave(pos.Layer) *
		itsChipsPerModule(pos.Layer)
	id += pos.Module * itsChipsPerModule(pos.Layer)
	id += pos.ModuleChip

	return id
}

// PositionOf maps a chip id to its position.
func (l *ITSLayout) PositionOf(id int) Position {
	layer := layerOf(id, l.cumulative)
	inLayer := id - l.cumulative[layer]
	inStave := inLayer % ITSChipsPerStave(layer)

	pos := Position{
		Layer:      layer,
		Stave:      inLayer / ITSChipsPerStave(layer),
		Module:     inStave / itsChipsPerModule(layer),
		ModuleChip: inStave % itsChipsPerModule(layer),
	}

	if layer >= ITSInnerLayers {
		pos.SubStave = pos.Module / itsModulesPerSubStave(layer)
		pos.Module %= itsModulesPerSubStave(layer)
	}

	return pos
}

// BuildStave builds an inner barrel stave for layers 0 to 2 and a middle or
// outer barrel stave for the others.
func (l *ITSLayout) BuildStave(b stave.Builder, id StaveID) stave.Stave {
	name := fmt.Sprintf("Stave_%d_%d", id.Layer, id.Stave)
	b = b.WithGlobalIDFunc(func(p stave.Placement) int {
		return l.GlobalChipID(Position{
			Layer:      id.Layer,
			Stave:      id.Stave,
			SubStave:   p.SubStave,
			Module:     p.Module,
			ModuleChip: p.ModuleChip,
		})
	})

	if id.Layer < ITSInnerLayers {
		return b.BuildInnerBarrelStave(name, ITSChipsPerIBStave)
	}

	return b.BuildMBOBStave(name, ITSModulesPerStave(id.Layer))
}
