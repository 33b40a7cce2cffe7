package readoutunit

import (
	"fmt"

	"github.com/sarchlab/alpidesim/sim"
)

// BusyWord is a message on the busy ring.
type BusyWord interface {
	Origin() int
	Timestamp() sim.VTimeInNs
}

// BusyCountUpdate reports the busy links of a Readout Unit.
type BusyCountUpdate struct {
	OriginAddr    int
	Time          sim.VTimeInNs
	LinkBusyCount int
	LocalBusy     bool
}

// Origin returns the address of the Readout Unit that sent the word.
func (w BusyCountUpdate) Origin() int {
	return w.OriginAddr
}

// Timestamp returns when the word was sent.
func (w BusyCountUpdate) Timestamp() sim.VTimeInNs {
	return w.Time
}

func (w BusyCountUpdate) String() string {
	return fmt.Sprintf("BusyCountUpdate{origin %d, %d ns, %d links, local %t}",
		w.OriginAddr, w.Time, w.LinkBusyCount, w.LocalBusy)
}

// BusyGlobalStatusUpdate is sent by the ring master when the detector as a
// whole becomes busy or stops being busy.
type BusyGlobalStatusUpdate struct {
	OriginAddr int
	Time       sim.VTimeInNs
	GlobalBusy bool
}

// Origin returns the address of the Readout Unit that sent the word.
func (w BusyGlobalStatusUpdate) Origin() int {
	return w.OriginAddr
}

// Timestamp returns when the word was sent.
func (w BusyGlobalStatusUpdate) Timestamp() sim.VTimeInNs {
	return w.Time
}

func (w BusyGlobalStatusUpdate) String() string {
	return fmt.Sprintf("BusyGlobalStatusUpdate{origin %d, %d ns, global %t}",
		w.OriginAddr, w.Time, w.GlobalBusy)
}
