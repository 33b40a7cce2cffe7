package alpide

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/alpidesim/sim"
)

// HookPosBusyChange marks a change of the busy line of a chip. The item is
// the new state as a bool.
var HookPosBusyChange = &sim.HookPos{Name: "ChipBusyChange"}

// Stats are the counters of a chip.
type Stats struct {
	TriggersReceived   uint64
	TriggersAccepted   uint64
	TriggersRejected   uint64
	StrobeExtensions   uint64
	BusyTransitions    uint64
	BusyViolations     uint64
	FlushedIncompletes uint64
	ReadoutAborts      uint64
	FatalEntries       uint64
	LatchedPixelHits   uint64
	DuplicatePixelHits uint64
	DataWords          [NumDataTypes]uint64
}

// Chip is a model of one ALPIDE pixel chip. It composes the front end, the
// pixel matrix with its multi event buffers, the region readout units, the
// top readout unit, and the framing logic, and drives them from one clock.
type Chip struct {
	*sim.TickingComponent

	logger *slog.Logger

	chipID          int
	globalID        int
	continuous      bool
	strobeExtension bool
	strobeLength    sim.VTimeInNs
	minBusyCycles   int
	obMode          bool
	obMaster        bool

	matrix   *PixelMatrix
	frontEnd *PixelFrontEnd
	rrus     []*RegionReadoutUnit
	tru      *TopReadoutUnit

	frameStartFIFO sim.Buffer
	frameEndFIFO   sim.Buffer
	dmuFIFO        sim.Buffer
	busyFIFO       sim.Buffer

	readoutState          frameReadoutState
	frameReadoutStart     bool
	nextFrameEnd          FrameEndWord
	strobeActive          bool
	strobeStart           sim.VTimeInNs
	strobeSeq             uint64
	strobeBunchCounter    int
	chipReady             bool
	busyViolation         bool
	flushedIncomplete     bool
	frameFIFOBusy         bool
	readoutAbort          bool
	fatal                 bool
	bunchCounter          int
	trigIDCount           uint64
	trigIDForStrobe       uint64
	busy                  bool
	busyOnCycles          int
	busyOffCycles         int
	busyTransitionInFrame bool

	sink             DataSink
	linkStalled      bool
	dtu              []dtuSlot
	dtuHead          int
	dataOutTrigID    uint64
	slaves           []*Chip
	obSel            int
	obNextSel        int
	obWord           DataWord
	obByteIndex      int
	obBytesRemaining int

	stats Stats
}

// Handle handles strobe events. Tick events go to the embedded
// TickingComponent.
func (c *Chip) Handle(e sim.Event) error {
	switch e := e.(type) {
	case strobeEndEvent:
		return c.handleStrobeEnd(e)
	default:
		return c.TickingComponent.Handle(e)
	}
}

// Tick runs one clock cycle of the readout logic.
func (c *Chip) Tick() (bool, error) {
	now := c.Engine.CurrentTime()

	c.frameReadout(now)

	for _, u := range c.rrus {
		u.tick(c.frameReadoutStart, c.readoutAbort)
	}

	c.tru.tick(c.readoutAbort, c.fatal)
	c.dataTransmission(now)
	c.updateBusyStatus()

	return true, nil
}

// Transport executes a control command.
func (c *Chip) Transport(cmd ControlCommand) error {
	if cmd.ChipID != BroadcastChipID && int(cmd.ChipID) != c.chipID {
		return nil
	}

	now := c.Engine.CurrentTime()

	switch cmd.Opcode {
	case OpcodeTrigger:
		c.trigger(now, cmd.Data)
	case OpcodeRORST:
		c.readoutReset(now)
	default:
		return sim.NewRuntimeModelError(c.Name(), now,
			"unknown control opcode 0x%02X", cmd.Opcode)
	}

	return nil
}

// InjectHit hands a pixel hit that arrived at time t to the front end.
func (c *Chip) InjectHit(col, row int, t sim.VTimeInNs) error {
	if err := c.frontEnd.Inject(col, row, t); err != nil {
		return sim.NewRuntimeModelError(c.Name(), c.Engine.CurrentTime(),
			"injecting hit: %v", err)
	}

	return nil
}

// ConnectDataSink sets where the serial output of the chip goes.
func (c *Chip) ConnectDataSink(sink DataSink) {
	c.sink = sink
}

// AttachSlave connects an outer barrel slave to this master's local bus.
func (c *Chip) AttachSlave(slave *Chip) error {
	if !c.obMode || !c.obMaster {
		return sim.NewConfigError(c.Name(), "only outer barrel masters accept slaves")
	}

	if !slave.obMode || slave.obMaster {
		return sim.NewConfigError(slave.Name(), "not an outer barrel slave")
	}

	c.slaves = append(c.slaves, slave)

	return nil
}

// SetLinkStalled stops or resumes draining the DMU FIFO into the data link.
// Busy words are still transmitted while the link is stalled.
func (c *Chip) SetLinkStalled(stalled bool) {
	c.linkStalled = stalled
}

// ChipID returns the 4-bit chip id sent in CHIP_HEADER words.
func (c *Chip) ChipID() int {
	return c.chipID
}

// GlobalID returns the id of the chip in the detector.
func (c *Chip) GlobalID() int {
	return c.globalID
}

// IsOBMaster tells if the chip transmits for an outer barrel module.
func (c *Chip) IsOBMaster() bool {
	return c.obMode && c.obMaster
}

// IsOBSlave tells if the chip sends its data through an outer barrel master.
func (c *Chip) IsOBSlave() bool {
	return c.obMode && !c.obMaster
}

// BusyStatus returns the busy line of the chip.
func (c *Chip) BusyStatus() bool {
	return c.busy
}

// Matrix returns the pixel matrix.
func (c *Chip) Matrix() *PixelMatrix {
	return c.matrix
}

// NumMEBsInUse returns the number of multi event buffers holding a frame.
func (c *Chip) NumMEBsInUse() int {
	return c.matrix.NumSlices()
}

// FrameStartFIFO returns the FIFO of frame start words.
func (c *Chip) FrameStartFIFO() sim.Buffer {
	return c.frameStartFIFO
}

// FrameEndFIFO returns the FIFO of frame end words.
func (c *Chip) FrameEndFIFO() sim.Buffer {
	return c.frameEndFIFO
}

// DMUFIFO returns the FIFO between the TRU and the data link.
func (c *Chip) DMUFIFO() sim.Buffer {
	return c.dmuFIFO
}

// BusyFIFO returns the FIFO of pending BUSY_ON and BUSY_OFF words.
func (c *Chip) BusyFIFO() sim.Buffer {
	return c.busyFIFO
}

// RegionReadoutUnits returns the readout units of the 32 regions.
func (c *Chip) RegionReadoutUnits() []*RegionReadoutUnit {
	return c.rrus
}

// Stats returns a snapshot of the chip counters.
func (c *Chip) Stats() Stats {
	s := c.stats
	s.LatchedPixelHits = c.matrix.LatchedHits()
	s.DuplicatePixelHits = c.matrix.DuplicateHits()

	return s
}

// MEBHistogram returns the time spent with each number of multi event
// buffers in use, up to now.
func (c *Chip) MEBHistogram(now sim.VTimeInNs) map[int]sim.VTimeInNs {
	h := c.matrix.Occupancy()
	h.Finalize(now)

	out := make(map[int]sim.VTimeInNs)
	for _, l := range h.Levels() {
		out[l] = h.Duration(l)
	}

	return out
}

func (c *Chip) countWord(w DataWord) {
	c.stats.DataWords[w.Type]++
}

func (c *Chip) String() string {
	return fmt.Sprintf("%s(global %d)", c.Name(), c.globalID)
}
