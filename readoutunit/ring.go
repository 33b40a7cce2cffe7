package readoutunit

import (
	"fmt"

	"github.com/sarchlab/alpidesim/sim"
)

// ConnectRing connects the Readout Units into a busy ring in slice order.
// Each unit gets its index as address. The unit at address 0 is the ring
// master. A single unit has no ring links and is its own master.
func ConnectRing(rus []*ReadoutUnit) {
	n := len(rus)

	for i, ru := range rus {
		ru.address = i
		ru.remoteBusy = make(map[int]bool)

		if n < 2 {
			continue
		}

		ru.next = rus[(i+1)%n]
		ru.busyIn = sim.NewBuffer(fmt.Sprintf("%s.BusyIn", ru.Name()), n)
	}
}

// Address returns the position of the unit on the busy ring.
func (r *ReadoutUnit) Address() int {
	return r.address
}

// BusyIn returns the FIFO of words arriving from the ring.
func (r *ReadoutUnit) BusyIn() sim.Buffer {
	return r.busyIn
}

// RingStats returns the ring traffic counters.
func (r *ReadoutUnit) RingStats() RingStats {
	return r.ringStats
}

func (r *ReadoutUnit) onRing() bool {
	return r.remoteBusy != nil
}

func (r *ReadoutUnit) isRingMaster() bool {
	return r.onRing() && r.address == 0
}

// Tick handles one word from the busy ring per cycle.
func (r *ReadoutUnit) Tick() (bool, error) {
	if r.ringErr != nil {
		return false, r.ringErr
	}

	if r.busyIn == nil || r.busyIn.Size() == 0 {
		return false, nil
	}

	w := r.busyIn.Pop().(BusyWord)
	if err := r.receive(w); err != nil {
		return false, err
	}

	return r.busyIn.Size() > 0, r.ringErr
}

func (r *ReadoutUnit) receive(w BusyWord) error {
	now := r.Engine.CurrentTime()

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Now:    now,
		Pos:    HookPosBusyWord,
		Item:   w,
	})

	if w.Origin() == r.address {
		r.ringStats.Consumed++
		return nil
	}

	switch w := w.(type) {
	case BusyCountUpdate:
		if r.isRingMaster() {
			r.updateGlobalBusy(w.OriginAddr, w.LocalBusy, now)
		}
	case BusyGlobalStatusUpdate:
		r.setGlobalBusy(w.GlobalBusy, now)
	}

	if err := r.send(w); err != nil {
		return err
	}

	r.ringStats.Forwarded++

	return nil
}

// originate sends a word created by this unit. Overflow is reported by the
// next tick.
func (r *ReadoutUnit) originate(w BusyWord) {
	if err := r.send(w); err != nil {
		r.ringErr = err
		r.TickLater()

		return
	}

	r.ringStats.Originated++
}

func (r *ReadoutUnit) send(w BusyWord) error {
	if !r.next.busyIn.CanPush() {
		return sim.NewConfigError(r.Name(),
			"busy ring FIFO of %s overflowed (capacity %d)",
			r.next.Name(), r.next.busyIn.Capacity())
	}

	r.next.busyIn.Push(w)
	r.next.TickLater()

	return nil
}

func (r *ReadoutUnit) updateGlobalBusy(origin int, busy bool, now sim.VTimeInNs) {
	r.remoteBusy[origin] = busy

	global := false
	for _, b := range r.remoteBusy {
		if b {
			global = true
			break
		}
	}

	if global == r.globalBusy {
		return
	}

	r.setGlobalBusy(global, now)

	if r.next == nil {
		return
	}

	r.originate(BusyGlobalStatusUpdate{
		OriginAddr: r.address,
		Time:       now,
		GlobalBusy: global,
	})
}

func (r *ReadoutUnit) setGlobalBusy(busy bool, now sim.VTimeInNs) {
	if busy == r.globalBusy {
		return
	}

	r.globalBusy = busy
	r.logger.Debug("global busy changed", "time", now, "busy", busy)
	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Now:    now,
		Pos:    HookPosGlobalBusy,
		Item:   busy,
	})
}
