package alpide

import "github.com/sarchlab/alpidesim/sim"

// FrameStartWord is pushed by the framing logic at the end of every strobe.
type FrameStartWord struct {
	BusyViolation bool
	BunchCounter  int
	TriggerID     uint64
}

// FrameEndWord is pushed by the framing logic when all the regions of a
// frame are read out.
type FrameEndWord struct {
	FlushedIncomplete bool
	StrobeExtended    bool
	BusyTransition    bool
}

func (w FrameEndWord) flags() byte {
	var f byte

	if w.FlushedIncomplete {
		f |= FlagFlushedIncomplete
	}

	if w.StrobeExtended {
		f |= FlagStrobeExtended
	}

	if w.BusyTransition {
		f |= FlagBusyTransition
	}

	return f
}

type truState int

const (
	truIdle truState = iota
	truWaitRegionData
	truChipHeader
	truBusyViolation
	truRegionData
	truChipTrailer
	truEmpty
)

var truStateNames = map[truState]string{
	truIdle:           "IDLE",
	truWaitRegionData: "WAIT_REGION_DATA",
	truChipHeader:     "CHIP_HEADER",
	truBusyViolation:  "BUSY_VIOLATION",
	truRegionData:     "REGION_DATA",
	truChipTrailer:    "CHIP_TRAILER",
	truEmpty:          "EMPTY",
}

func (s truState) String() string {
	return truStateNames[s]
}

// TopReadoutUnit serializes the frames of a chip into the DMU FIFO: a
// CHIP_HEADER, the data of every non-empty region in ascending order, and a
// CHIP_TRAILER, or a CHIP_EMPTY_FRAME when no region has data.
type TopReadoutUnit struct {
	chipID     int
	rrus       []*RegionReadoutUnit
	frameStart sim.Buffer
	frameEnd   sim.Buffer
	dmu        sim.Buffer
	onWord     func(DataWord)

	state truState
}

func (t *TopReadoutUnit) emit(w DataWord) {
	t.dmu.Push(w)

	if t.onWord != nil {
		t.onWord(w)
	}
}

func (t *TopReadoutUnit) peekStart() FrameStartWord {
	return t.frameStart.Peek().(FrameStartWord)
}

func (t *TopReadoutUnit) allRegionFIFOsNonEmpty() bool {
	for _, u := range t.rrus {
		if u.fifo.Size() == 0 {
			return false
		}
	}

	return true
}

func (t *TopReadoutUnit) firstValidRegion() *RegionReadoutUnit {
	for _, u := range t.rrus {
		if u.Valid() {
			return u
		}
	}

	return nil
}

func (t *TopReadoutUnit) popRegionTrailers() {
	for _, u := range t.rrus {
		if head, ok := u.Head(); ok && head.Type == RegionTrailer {
			u.Pop()
		}

		u.headerSent = false
	}
}

func (t *TopReadoutUnit) tick(abort, fatal bool) bool {
	switch t.state {
	case truIdle:
		if t.frameStart.Size() > 0 {
			t.state = truWaitRegionData
			return true
		}
	case truWaitRegionData:
		start := t.peekStart()
		if start.BusyViolation || abort || t.allRegionFIFOsNonEmpty() {
			t.state = truChipHeader
			return true
		}
	case truChipHeader:
		return t.chipHeader(abort)
	case truBusyViolation:
		return t.busyViolation(abort, fatal)
	case truRegionData:
		return t.regionData(abort)
	case truChipTrailer:
		return t.chipTrailer(abort, fatal)
	case truEmpty:
		if t.frameEnd.Size() > 0 {
			t.frameStart.Pop()
			t.frameEnd.Pop()
			t.popRegionTrailers()
			t.state = truIdle

			return true
		}
	}

	return false
}

func (t *TopReadoutUnit) chipHeader(abort bool) bool {
	if !t.dmu.CanPush() {
		return false
	}

	start := t.peekStart()

	switch {
	case start.BusyViolation:
		t.emit(ChipHeaderWord(t.chipID, start.BunchCounter, start.TriggerID))
		t.state = truBusyViolation
	case abort:
		t.emit(ChipHeaderWord(t.chipID, start.BunchCounter, start.TriggerID))
		t.state = truChipTrailer
	case t.firstValidRegion() != nil:
		t.emit(ChipHeaderWord(t.chipID, start.BunchCounter, start.TriggerID))
		t.state = truRegionData
	default:
		t.emit(ChipEmptyFrameWord(t.chipID, start.BunchCounter, start.TriggerID))
		t.state = truEmpty
	}

	return true
}

func (t *TopReadoutUnit) busyViolation(abort, fatal bool) bool {
	if !t.dmu.CanPush() {
		return false
	}

	start := t.frameStart.Pop().(FrameStartWord)

	flags := FlagBusyViolation
	switch {
	case fatal:
		flags = FlagsFatal
	case abort:
		flags = FlagsReadoutAbort
	}

	t.emit(ChipTrailerWord(flags, start.TriggerID))
	t.state = truIdle

	return true
}

func (t *TopReadoutUnit) regionData(abort bool) bool {
	if abort {
		t.state = truChipTrailer
		return true
	}

	if !t.dmu.CanPush() {
		return false
	}

	u := t.firstValidRegion()
	if u == nil {
		t.state = truChipTrailer
		return true
	}

	if !u.headerSent {
		t.emit(RegionHeaderWord(u.region))
		u.headerSent = true

		return true
	}

	head, ok := u.Head()
	if !ok || head.Type == RegionTrailer {
		return false
	}

	u.Pop()
	head.TriggerID = t.peekStart().TriggerID
	t.emit(head)

	return true
}

func (t *TopReadoutUnit) chipTrailer(abort, fatal bool) bool {
	if t.frameEnd.Size() == 0 || !t.dmu.CanPush() {
		return false
	}

	start := t.frameStart.Pop().(FrameStartWord)
	end := t.frameEnd.Pop().(FrameEndWord)

	var flags byte
	switch {
	case fatal:
		flags = FlagsFatal
	case abort:
		flags = FlagsReadoutAbort
	default:
		flags = end.flags()
		if start.BusyViolation {
			flags |= FlagBusyViolation
		}
	}

	t.emit(ChipTrailerWord(flags, start.TriggerID))

	if !abort {
		t.popRegionTrailers()
	} else {
		for _, u := range t.rrus {
			u.headerSent = false
		}
	}

	t.state = truIdle

	return true
}

func (t *TopReadoutUnit) reset() {
	t.state = truIdle
}
