package detector

import (
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/readoutunit"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// Detector owns the staves and Readout Units of a simulation.
type Detector struct {
	layout     Layout
	singleChip bool

	staveIDs []StaveID
	staves   []stave.Stave
	rus      []*readoutunit.ReadoutUnit
	chips    map[int]*alpide.Chip
	ruOf     map[*alpide.Chip]*readoutunit.ReadoutUnit
}

// Layout returns the layout of the detector.
func (d *Detector) Layout() Layout {
	return d.layout
}

// SingleChip tells if only one chip is simulated.
func (d *Detector) SingleChip() bool {
	return d.singleChip
}

// StaveIDs returns the ids of the simulated staves, in the order of
// ReadoutUnits.
func (d *Detector) StaveIDs() []StaveID {
	return d.staveIDs
}

// Staves returns the simulated staves.
func (d *Detector) Staves() []stave.Stave {
	return d.staves
}

// ReadoutUnits returns the Readout Units, one per stave, in busy ring
// order.
func (d *Detector) ReadoutUnits() []*readoutunit.ReadoutUnit {
	return d.rus
}

// Chip returns the chip with a global id. It returns nil when the chip is
// not simulated.
func (d *Detector) Chip(globalID int) *alpide.Chip {
	return d.chips[globalID]
}

// ChipAt returns the chip at a position. It returns nil when the chip is not
// simulated.
func (d *Detector) ChipAt(pos Position) *alpide.Chip {
	if d.singleChip {
		if pos == (Position{}) {
			return d.chips[0]
		}

		return nil
	}

	return d.chips[d.layout.GlobalChipID(pos)]
}

// Chips returns all the chips in stave order.
func (d *Detector) Chips() []*alpide.Chip {
	var chips []*alpide.Chip
	for _, s := range d.staves {
		chips = append(chips, s.Chips()...)
	}

	return chips
}

// NumChips returns the number of simulated chips.
func (d *Detector) NumChips() int {
	return len(d.chips)
}

// PositionOf returns the position of a simulated chip.
func (d *Detector) PositionOf(c *alpide.Chip) Position {
	if d.singleChip {
		return Position{}
	}

	return d.layout.PositionOf(c.GlobalID())
}

// ReadoutUnitOf returns the Readout Unit that reads out a chip.
func (d *Detector) ReadoutUnitOf(c *alpide.Chip) *readoutunit.ReadoutUnit {
	return d.ruOf[c]
}

// Trigger hands a trigger to every Readout Unit.
func (d *Detector) Trigger(now sim.VTimeInNs, trigID uint64) error {
	for _, ru := range d.rus {
		if err := ru.Trigger(now, trigID); err != nil {
			return err
		}
	}

	return nil
}

// Finalize closes the open busy intervals of every data link.
func (d *Detector) Finalize(now sim.VTimeInNs) {
	for _, ru := range d.rus {
		ru.Finalize(now)
	}
}
