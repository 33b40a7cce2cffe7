package alpide

import (
	"fmt"

	"github.com/sarchlab/alpidesim/sim"
)

// Builder can build chips.
type Builder struct {
	ctx             *sim.Context
	chipID          int
	globalID        int
	continuous      bool
	strobeExtension bool
	strobeLength    sim.VTimeInNs
	minBusyCycles   int
	dtuDelay        int
	clustering      bool
	fastReadout     bool
	deadTime        sim.VTimeInNs
	activeTime      sim.VTimeInNs
	regionFIFOSize  int
	obMode          bool
	obMaster        bool
}

// MakeBuilder returns a Builder with the default chip settings.
func MakeBuilder() Builder {
	return Builder{
		strobeLength:   100,
		minBusyCycles:  8,
		dtuDelay:       10,
		clustering:     true,
		fastReadout:    true,
		deadTime:       200,
		activeTime:     6000,
		regionFIFOSize: DefaultRegionFIFOSize,
	}
}

// WithContext sets the simulation context of the chip.
func (b Builder) WithContext(ctx *sim.Context) Builder {
	b.ctx = ctx
	return b
}

// WithChipID sets the 4-bit chip id and the detector-wide id of the chip.
func (b Builder) WithChipID(chipID, globalID int) Builder {
	b.chipID = chipID
	b.globalID = globalID

	return b
}

// WithContinuousMode selects continuous instead of triggered mode.
func (b Builder) WithContinuousMode(continuous bool) Builder {
	b.continuous = continuous
	return b
}

// WithStrobeExtension lets triggers during a strobe extend it.
func (b Builder) WithStrobeExtension(enable bool) Builder {
	b.strobeExtension = enable
	return b
}

// WithStrobeLength sets how long a strobe lasts after a trigger.
func (b Builder) WithStrobeLength(t sim.VTimeInNs) Builder {
	b.strobeLength = t
	return b
}

// WithMinBusyCycles sets the minimum width of the busy signal in cycles.
func (b Builder) WithMinBusyCycles(n int) Builder {
	b.minBusyCycles = n
	return b
}

// WithDTUDelay sets the delay of the data transfer unit in cycles.
func (b Builder) WithDTUDelay(n int) Builder {
	b.dtuDelay = n
	return b
}

// WithClustering enables DATA_LONG words.
func (b Builder) WithClustering(enable bool) Builder {
	b.clustering = enable
	return b
}

// WithFastReadout selects 2 instead of 4 cycles per pixel read.
func (b Builder) WithFastReadout(fast bool) Builder {
	b.fastReadout = fast
	return b
}

// WithPixelShaping sets the dead time and active time of the front end.
func (b Builder) WithPixelShaping(deadTime, activeTime sim.VTimeInNs) Builder {
	b.deadTime = deadTime
	b.activeTime = activeTime

	return b
}

// WithRegionFIFOSize sets the depth of the region FIFOs.
func (b Builder) WithRegionFIFOSize(n int) Builder {
	b.regionFIFOSize = n
	return b
}

// WithOBMode builds an outer barrel chip, either the master that transmits
// for the module or a slave.
func (b Builder) WithOBMode(master bool) Builder {
	b.obMode = true
	b.obMaster = master

	return b
}

// WithIBMode builds an inner barrel chip.
func (b Builder) WithIBMode() Builder {
	b.obMode = false
	b.obMaster = false

	return b
}

// Build creates a chip and schedules its first tick.
func (b Builder) Build(name string) *Chip {
	if b.ctx == nil {
		panic(fmt.Sprintf("chip %s: context not set", name))
	}

	c := &Chip{
		chipID:          b.chipID,
		globalID:        b.globalID,
		continuous:      b.continuous,
		strobeExtension: b.strobeExtension,
		strobeLength:    b.strobeLength,
		minBusyCycles:   b.minBusyCycles,
		obMode:          b.obMode,
		obMaster:        b.obMaster,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.ctx.Engine, b.ctx.Freq, c)
	c.logger = b.ctx.Logger.With("module", "alpide", "chip", b.globalID)

	c.matrix = NewPixelMatrix()
	c.frontEnd = NewPixelFrontEnd(b.deadTime, b.activeTime)

	c.rrus = make([]*RegionReadoutUnit, NRegions)
	for r := range c.rrus {
		c.rrus[r] = NewRegionReadoutUnit(name, r, c.matrix,
			b.regionFIFOSize, b.clustering, b.fastReadout)
	}

	c.frameStartFIFO = sim.NewBuffer(name+".FrameStartFIFO", TRUFrameFIFOSize)
	c.frameEndFIFO = sim.NewBuffer(name+".FrameEndFIFO", TRUFrameFIFOSize)
	c.dmuFIFO = sim.NewBuffer(name+".DMUFIFO", DMUFIFOSize)
	c.busyFIFO = sim.NewBuffer(name+".BusyFIFO", BusyFIFOSize)

	c.tru = &TopReadoutUnit{
		chipID:     b.chipID,
		rrus:       c.rrus,
		frameStart: c.frameStartFIFO,
		frameEnd:   c.frameEndFIFO,
		dmu:        c.dmuFIFO,
		onWord:     c.countWord,
	}

	c.fillDTU(b.dtuDelay)
	c.TickLater()

	return c
}
