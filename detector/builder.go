package detector

import (
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/readoutunit"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// Builder builds detectors.
type Builder struct {
	ctx        *sim.Context
	layout     Layout
	singleChip bool
	chip       alpide.Builder
	ru         readoutunit.Builder
}

// MakeBuilder returns a Builder with default chips and Readout Units.
func MakeBuilder() Builder {
	return Builder{
		chip: alpide.MakeBuilder(),
		ru:   readoutunit.MakeBuilder(),
	}
}

// WithContext sets the simulation context.
func (b Builder) WithContext(ctx *sim.Context) Builder {
	b.ctx = ctx
	return b
}

// WithLayout sets the detector layout.
func (b Builder) WithLayout(l Layout) Builder {
	b.layout = l
	return b
}

// WithSingleChip simulates a single chip with its own Readout Unit instead
// of the staves of the layout.
func (b Builder) WithSingleChip(single bool) Builder {
	b.singleChip = single
	return b
}

// WithChipBuilder sets the template of the chips.
func (b Builder) WithChipBuilder(cb alpide.Builder) Builder {
	b.chip = cb
	return b
}

// WithReadoutUnitBuilder sets the template of the Readout Units.
func (b Builder) WithReadoutUnitBuilder(rb readoutunit.Builder) Builder {
	b.ru = rb
	return b
}

// Build creates the staves and Readout Units and connects the busy ring.
func (b Builder) Build() (*Detector, error) {
	if b.ctx == nil {
		panic("detector: context not set")
	}

	if b.layout == nil && !b.singleChip {
		return nil, sim.NewConfigError("detector", "no detector layout")
	}

	d := &Detector{
		layout:     b.layout,
		singleChip: b.singleChip,
		chips:      make(map[int]*alpide.Chip),
		ruOf:       make(map[*alpide.Chip]*readoutunit.ReadoutUnit),
	}

	sb := stave.MakeBuilder().
		WithContext(b.ctx).
		WithChipBuilder(b.chip.WithContext(b.ctx))
	rb := b.ru.WithContext(b.ctx)

	if b.singleChip {
		id := StaveID{}
		s := sb.BuildSingleChip("SingleChip")
		d.addStave(id, s, rb.Build(id.Layer, id.Stave, s))
	} else {
		for _, id := range b.layout.ActiveStaves() {
			s := b.layout.BuildStave(sb, id)
			d.addStave(id, s, rb.Build(id.Layer, id.Stave, s))
		}
	}

	readoutunit.ConnectRing(d.rus)

	b.ctx.Logger.Info("detector built",
		"module", "detector",
		"staves", len(d.staves),
		"chips", len(d.chips),
		"readout_units", len(d.rus))

	return d, nil
}

func (d *Detector) addStave(
	id StaveID,
	s stave.Stave,
	ru *readoutunit.ReadoutUnit,
) {
	d.staveIDs = append(d.staveIDs, id)
	d.staves = append(d.staves, s)
	d.rus = append(d.rus, ru)

	for _, c := range s.Chips() {
		d.chips[c.GlobalID()] = c
		d.ruOf[c] = ru
	}
}
