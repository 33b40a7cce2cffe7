package readoutunit

import (
	"fmt"

	"github.com/sarchlab/alpidesim/parser"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// Builder builds Readout Units.
type Builder struct {
	ctx              *sim.Context
	filterEnabled    bool
	filterTime       sim.VTimeInNs
	busyTriggerHold  bool
	busyThreshold    int
	dataRateInterval sim.VTimeInNs
	saveFrames       bool
}

// MakeBuilder returns a Builder with trigger filtering and trigger hold
// disabled. A unit is locally busy as soon as one data link is busy.
func MakeBuilder() Builder {
	return Builder{
		dataRateInterval: parser.DefaultDataRateInterval,
	}
}

// WithContext sets the simulation context.
func (b Builder) WithContext(ctx *sim.Context) Builder {
	b.ctx = ctx
	return b
}

// WithTriggerFilter drops triggers that come less than t after the last
// trigger that passed the filter.
func (b Builder) WithTriggerFilter(enable bool, t sim.VTimeInNs) Builder {
	b.filterEnabled = enable
	b.filterTime = t

	return b
}

// WithBusyTriggerHold holds back triggers on control links with busy data
// links.
func (b Builder) WithBusyTriggerHold(hold bool) Builder {
	b.busyTriggerHold = hold
	return b
}

// WithBusyThreshold sets how many data links may be busy before the unit is
// locally busy.
func (b Builder) WithBusyThreshold(n int) Builder {
	b.busyThreshold = n
	return b
}

// WithDataRateInterval sets the width of the data rate buckets of the data
// link parsers.
func (b Builder) WithDataRateInterval(t sim.VTimeInNs) Builder {
	b.dataRateInterval = t
	return b
}

// WithSaveFrames makes the data link parsers keep the frames and their
// pixels.
func (b Builder) WithSaveFrames(save bool) Builder {
	b.saveFrames = save
	return b
}

// Build creates the Readout Unit of a stave and connects the data links of
// the stave to it.
func (b Builder) Build(layer, staveIdx int, st stave.Stave) *ReadoutUnit {
	if b.ctx == nil {
		panic("readout unit: context not set")
	}

	name := fmt.Sprintf("RU_%d_%d", layer, staveIdx)

	r := &ReadoutUnit{
		layer:           layer,
		staveIdx:        staveIdx,
		stave:           st,
		ctrlLinks:       st.ControlLinks(),
		filterEnabled:   b.filterEnabled,
		filterTime:      b.filterTime,
		busyTriggerHold: b.busyTriggerHold,
		busyThreshold:   b.busyThreshold,
	}

	r.TickingComponent = sim.NewTickingComponent(
		name, b.ctx.Engine, b.ctx.Freq, r)
	r.logger = b.ctx.Logger.With("module", "ru", "ru", name)

	r.lastSentTrigID = make([]uint64, len(r.ctrlLinks))
	r.triggerStats = make([]TriggerStats, len(r.ctrlLinks))

	pb := parser.MakeBuilder().
		WithLogger(b.ctx.Logger).
		WithDataRateInterval(b.dataRateInterval).
		WithSaveFrames(b.saveFrames).
		WithHits(b.saveFrames)

	for i, chip := range st.DataLinks() {
		p := pb.Build(fmt.Sprintf("%s.DataLink[%d]", name, i))
		p.AcceptHook(r)
		chip.ConnectDataSink(p)
		r.parsers = append(r.parsers, p)
	}

	return r
}
