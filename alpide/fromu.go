package alpide

import (
	"github.com/sarchlab/alpidesim/sim"
)

// FROMUState is the state of the framing and readout management unit.
type FROMUState int

// The FROMU states.
const (
	FROMUIdle FROMUState = iota
	FROMUFraming
	FROMUReadoutAbort
	FROMUFatal
)

func (s FROMUState) String() string {
	switch s {
	case FROMUIdle:
		return "IDLE"
	case FROMUFraming:
		return "FRAMING"
	case FROMUReadoutAbort:
		return "READOUT_ABORT"
	case FROMUFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

type frameReadoutState int

const (
	waitForEvents frameReadoutState = iota
	regionReadoutStart
	waitForRegionReadout
	regionReadoutDone
)

// strobeEndEvent ends a strobe window. Events from a strobe that was
// extended or superseded carry an old sequence number and are ignored.
type strobeEndEvent struct {
	*sim.EventBase
	seq uint64
}

// FROMUState returns the current state of the framing logic.
func (c *Chip) FROMUState() FROMUState {
	switch {
	case c.fatal:
		return FROMUFatal
	case c.readoutAbort:
		return FROMUReadoutAbort
	case c.strobeActive:
		return FROMUFraming
	default:
		return FROMUIdle
	}
}

func (c *Chip) trigger(now sim.VTimeInNs, increment uint16) {
	c.stats.TriggersReceived++
	c.trigIDCount += uint64(increment)

	switch {
	case !c.strobeActive:
		c.trigIDForStrobe = c.trigIDCount
		c.startStrobe(now)
	case c.strobeExtension:
		c.stats.StrobeExtensions++
		if s := c.matrix.Newest(); c.chipReady && s != nil {
			s.StrobeExtended = true
		}

		c.scheduleStrobeEnd(now + c.strobeLength)
	default:
		c.stats.TriggersRejected++
	}
}

func (c *Chip) startStrobe(now sim.VTimeInNs) {
	c.strobeActive = true
	c.strobeStart = now
	c.strobeBunchCounter = c.bunchCounter
	c.frontEnd.RemoveInactiveHits(now)

	inUse := c.matrix.NumSlices()

	switch {
	case c.frameFIFOBusy || inUse == MEBCount:
		c.rejectStrobe(now)
		return
	case c.continuous && inUse == MEBCount-1:
		c.matrix.FlushOldest()
		c.flushedIncomplete = true
		c.stats.FlushedIncompletes++
	}

	if _, err := c.matrix.OpenSlice(c.trigIDForStrobe, now); err != nil {
		c.rejectStrobe(now)
		return
	}

	c.stats.TriggersAccepted++
	c.chipReady = true
	c.busyViolation = false
	c.scheduleStrobeEnd(now + c.strobeLength)
}

func (c *Chip) rejectStrobe(now sim.VTimeInNs) {
	c.stats.TriggersRejected++
	c.stats.BusyViolations++
	c.chipReady = false
	c.busyViolation = true
	c.scheduleStrobeEnd(now)
}

func (c *Chip) scheduleStrobeEnd(t sim.VTimeInNs) {
	c.strobeSeq++
	c.Engine.Schedule(strobeEndEvent{
		EventBase: sim.NewEventBase(t, c),
		seq:       c.strobeSeq,
	})
}

func (c *Chip) handleStrobeEnd(e strobeEndEvent) error {
	if e.seq != c.strobeSeq || !c.strobeActive {
		return nil
	}

	now := e.Time()

	if c.chipReady {
		if err := c.frontEnd.Latch(c.strobeStart, now, c.matrix); err != nil {
			return sim.NewRuntimeModelError(c.Name(), now, "latching hits: %v", err)
		}

		if err := c.matrix.CloseSlice(now); err != nil {
			return sim.NewRuntimeModelError(c.Name(), now, "closing frame: %v", err)
		}
	}

	c.chipReady = false
	c.strobeActive = false

	start := FrameStartWord{
		BusyViolation: c.busyViolation,
		BunchCounter:  c.strobeBunchCounter,
		TriggerID:     c.trigIDForStrobe,
	}
	c.busyViolation = false

	c.updateFrameFIFOWatermarks(now)

	if c.frameStartFIFO.CanPush() {
		c.frameStartFIFO.Push(start)
	}

	return nil
}

// updateFrameFIFOWatermarks applies the TRU frame FIFO watermarks. Once in
// data overrun mode, the chip stays there until both frame FIFOs are empty.
func (c *Chip) updateFrameFIFOWatermarks(now sim.VTimeInNs) {
	size := c.frameStartFIFO.Size()

	switch {
	case size == 0 && c.frameEndFIFO.Size() == 0:
		c.frameFIFOsDrained(now)
	case !c.frameStartFIFO.CanPush():
		c.frameFIFOBusy = true
		c.readoutAbort = true

		if !c.fatal {
			c.logger.Info("entered fatal mode", "time_ns", now)
			c.stats.FatalEntries++
		}

		c.fatal = true
	case size >= TRUFrameFIFOAlmostFull2:
		if !c.readoutAbort {
			c.logger.Info("entered data overrun mode", "time_ns", now)
			c.stats.ReadoutAborts++
		}

		c.frameFIFOBusy = true
		c.readoutAbort = true
	case size >= TRUFrameFIFOAlmostFull1:
		c.frameFIFOBusy = true
	case !c.readoutAbort:
		c.frameFIFOBusy = false
	}
}

// frameFIFOsDrained releases the frame FIFO busy and leaves data overrun
// mode. Fatal mode is only left through a readout reset.
func (c *Chip) frameFIFOsDrained(now sim.VTimeInNs) {
	if c.fatal {
		return
	}

	if c.readoutAbort {
		c.logger.Info("exited data overrun mode", "time_ns", now)
	}

	c.frameFIFOBusy = false
	c.readoutAbort = false
}

func (c *Chip) frameReadout(now sim.VTimeInNs) {
	if c.frameFIFOBusy &&
		c.frameStartFIFO.Size() == 0 && c.frameEndFIFO.Size() == 0 {
		c.frameFIFOsDrained(now)
	}

	c.bunchCounter++
	if c.bunchCounter == LHCOrbitBunchCount {
		c.bunchCounter = 0
	}

	c.frameReadoutStart = false
	inUse := c.matrix.NumSlices()

	switch c.readoutState {
	case waitForEvents:
		if inUse > 1 || (inUse == 1 && !c.strobeActive) {
			c.readoutState = regionReadoutStart
		}
	case regionReadoutStart:
		c.frameReadoutStart = true
		c.readoutState = waitForRegionReadout
	case waitForRegionReadout:
		switch {
		case c.readoutAbort:
			c.nextFrameEnd = FrameEndWord{}
			c.flushedIncomplete = false
			c.readoutState = regionReadoutDone
		case c.allRegionsDone():
			oldest := c.matrix.Oldest()
			c.nextFrameEnd = FrameEndWord{
				FlushedIncomplete: c.flushedIncomplete,
				StrobeExtended:    oldest != nil && oldest.StrobeExtended,
				BusyTransition:    c.busyTransitionInFrame,
			}
			c.flushedIncomplete = false
			c.busyTransitionInFrame = false
			c.readoutState = regionReadoutDone
		}
	case regionReadoutDone:
		if c.frameEndFIFO.CanPush() {
			c.frameEndFIFO.Push(c.nextFrameEnd)
		}

		c.matrix.DeleteOldest(now)
		c.readoutState = waitForEvents
	}
}

func (c *Chip) allRegionsDone() bool {
	for _, u := range c.rrus {
		if !u.FrameDone() {
			return false
		}
	}

	return true
}

func (c *Chip) regionFIFOBusy() bool {
	for _, u := range c.rrus {
		if u.FIFOFull() {
			return true
		}
	}

	return false
}

func (c *Chip) multiEventBuffersBusy() bool {
	inUse := c.matrix.NumSlices()
	if c.continuous {
		return inUse > 1
	}

	return inUse == MEBCount
}

// updateBusyStatus asserts busy immediately when a slave is busy, and after
// minBusyCycles consecutive cycles of internal busy. Busy is released after
// minBusyCycles consecutive cycles without any busy source.
func (c *Chip) updateBusyStatus() {
	internal := c.frameFIFOBusy || c.multiEventBuffersBusy() || c.regionFIFOBusy()

	slave := false
	for _, s := range c.slaves {
		slave = slave || s.BusyStatus()
	}

	newBusy := internal || slave

	switch {
	case newBusy && !c.busy:
		c.busyOffCycles = 0
		if slave || c.busyOnCycles >= c.minBusyCycles {
			c.stats.BusyTransitions++
			c.setBusy(true)
		}

		c.busyOnCycles++
	case newBusy:
		c.busyOffCycles = 0
	case c.busy:
		c.busyOnCycles = 0
		if c.busyOffCycles >= c.minBusyCycles {
			c.setBusy(false)
			c.busyOffCycles = 0
		} else {
			c.busyOffCycles++
		}
	default:
		c.busyOnCycles = 0
	}
}

func (c *Chip) setBusy(busy bool) {
	c.busy = busy
	c.busyOnCycles = 0
	c.busyTransitionInFrame = true

	w := BusyOffWord()
	if busy {
		w = BusyOnWord()
	}

	w.TriggerID = c.trigIDCount
	c.stats.DataWords[w.Type]++

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    c.Engine.CurrentTime(),
		Pos:    HookPosBusyChange,
		Item:   busy,
	})

	if c.obMode && !c.obMaster {
		return
	}

	if !c.busyFIFO.CanPush() {
		c.busyFIFO.Pop()
	}

	c.busyFIFO.Push(w)
}

func (c *Chip) readoutReset(now sim.VTimeInNs) {
	c.logger.Info("readout reset", "time_ns", now)

	c.matrix.Clear(now)
	c.frontEnd.Clear()

	for _, u := range c.rrus {
		u.abort()
	}

	c.tru.reset()
	c.frameStartFIFO.Clear()
	c.frameEndFIFO.Clear()
	c.dmuFIFO.Clear()
	c.busyFIFO.Clear()

	c.readoutState = waitForEvents
	c.strobeActive = false
	c.chipReady = false
	c.strobeSeq++
	c.busyViolation = false
	c.flushedIncomplete = false
	c.frameFIFOBusy = false
	c.readoutAbort = false
	c.fatal = false
}
