// Package readoutunit provides the Readout Unit, the board that distributes
// triggers to the chips of one stave, parses the data links of the stave,
// and shares the busy state of the stave with the other Readout Units over
// the busy ring.
package readoutunit

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/parser"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

// HookPosTrigger marks that a trigger was handled. The item is a
// TriggerRecord.
var HookPosTrigger = &sim.HookPos{Name: "RUTrigger"}

// HookPosLocalBusy marks a change of the local busy state. The item is the
// new state as a bool.
var HookPosLocalBusy = &sim.HookPos{Name: "RULocalBusy"}

// HookPosGlobalBusy marks a change of the global busy state. The item is
// the new state as a bool.
var HookPosGlobalBusy = &sim.HookPos{Name: "RUGlobalBusy"}

// HookPosBusyWord marks a word received from the busy ring. The item is the
// BusyWord.
var HookPosBusyWord = &sim.HookPos{Name: "RUBusyWord"}

// maxWireIncrement is the largest trigger id increment that fits in the data
// field of a control word.
const maxWireIncrement = 0xFFFF

// State is the local busy state of a Readout Unit.
type State int

// States of a Readout Unit.
const (
	StateNormal State = iota
	StateLocalBusy
)

func (s State) String() string {
	if s == StateLocalBusy {
		return "LOCAL_BUSY"
	}

	return "NORMAL"
}

// TriggerRecord is what a Readout Unit did with one trigger.
type TriggerRecord struct {
	TriggerID uint64
	Time      sim.VTimeInNs
	Actions   []TriggerAction
}

// RingStats counts the busy ring traffic of a Readout Unit.
type RingStats struct {
	Originated uint64
	Forwarded  uint64
	Consumed   uint64
}

// ReadoutUnit controls one stave.
type ReadoutUnit struct {
	*sim.TickingComponent

	logger *slog.Logger

	layer     int
	staveIdx  int
	stave     stave.Stave
	ctrlLinks []*stave.ControlLink
	parsers   []*parser.Parser

	filterEnabled   bool
	filterTime      sim.VTimeInNs
	busyTriggerHold bool
	busyThreshold   int

	triggered       bool
	lastTriggerTime sim.VTimeInNs
	currentTrigID   uint64
	lastSentTrigID  []uint64
	actions         [][]TriggerAction
	triggerStats    []TriggerStats

	busyLinkCount int
	localBusy     bool
	globalBusy    bool

	address    int
	next       *ReadoutUnit
	busyIn     sim.Buffer
	remoteBusy map[int]bool
	ringErr    error
	ringStats  RingStats
}

// Layer returns the detector layer of the stave.
func (r *ReadoutUnit) Layer() int {
	return r.layer
}

// StaveIndex returns the index of the stave in its layer.
func (r *ReadoutUnit) StaveIndex() int {
	return r.staveIdx
}

// Stave returns the stave that the Readout Unit controls.
func (r *ReadoutUnit) Stave() stave.Stave {
	return r.stave
}

// NumControlLinks returns the number of control links.
func (r *ReadoutUnit) NumControlLinks() int {
	return len(r.ctrlLinks)
}

// Parsers returns the parsers of the data links, in data link order.
func (r *ReadoutUnit) Parsers() []*parser.Parser {
	return r.parsers
}

// Trigger distributes a trigger that arrived at time now to the control
// links. A control link transport failure is returned and ends the run.
func (r *ReadoutUnit) Trigger(now sim.VTimeInNs, trigID uint64) error {
	r.currentTrigID = trigID
	for _, p := range r.parsers {
		p.SetCurrentTriggerID(trigID)
	}

	filtered := r.filterEnabled && r.triggered &&
		now-r.lastTriggerTime < r.filterTime
	if !filtered {
		r.triggered = true
		r.lastTriggerTime = now
	}

	actions := make([]TriggerAction, len(r.ctrlLinks))
	for i := range r.ctrlLinks {
		a, err := r.triggerLink(i, now, filtered)
		if err != nil {
			return err
		}

		actions[i] = a
		r.triggerStats[i].record(a)
	}

	r.actions = append(r.actions, actions)

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Now:    now,
		Pos:    HookPosTrigger,
		Item: TriggerRecord{
			TriggerID: trigID,
			Time:      now,
			Actions:   actions,
		},
	})

	return nil
}

func (r *ReadoutUnit) triggerLink(
	i int,
	now sim.VTimeInNs,
	filtered bool,
) (TriggerAction, error) {
	if filtered {
		return TriggerFiltered, nil
	}

	if r.busyTriggerHold && r.linkBusy(i) {
		return TriggerNotSentBusy, nil
	}

	inc := r.currentTrigID - r.lastSentTrigID[i]
	if inc > maxWireIncrement {
		r.logger.Warn("trigger id increment does not fit in control word",
			"time", now, "link", r.ctrlLinks[i].Name(), "increment", inc)
	}

	cmd := alpide.TriggerCommand(uint16(inc))
	if err := r.ctrlLinks[i].Transport(cmd); err != nil {
		return TriggerSent, errors.Wrapf(err,
			"%s: sending trigger %d", r.ctrlLinks[i].Name(), r.currentTrigID)
	}

	r.lastSentTrigID[i] = r.currentTrigID

	return TriggerSent, nil
}

func (r *ReadoutUnit) linkBusy(ctrlLink int) bool {
	for _, d := range r.ctrlLinks[ctrlLink].DataLinks() {
		if r.parsers[d].Busy() {
			return true
		}
	}

	return false
}

// ResetReadout sends a RORST command on every control link.
func (r *ReadoutUnit) ResetReadout() error {
	for _, l := range r.ctrlLinks {
		if err := l.Transport(alpide.ReadoutResetCommand()); err != nil {
			return errors.Wrapf(err, "%s: readout reset", l.Name())
		}
	}

	return nil
}

// Func receives the busy changes of the data link parsers.
func (r *ReadoutUnit) Func(ctx sim.HookCtx) {
	if ctx.Pos != parser.HookPosBusyChange {
		return
	}

	r.updateBusy(ctx.Now)
}

func (r *ReadoutUnit) updateBusy(now sim.VTimeInNs) {
	count := 0
	for _, p := range r.parsers {
		if p.Busy() {
			count++
		}
	}

	r.busyLinkCount = count

	local := count > r.busyThreshold
	if local == r.localBusy {
		return
	}

	r.localBusy = local
	r.logger.Debug("local busy changed",
		"time", now, "busy", local, "busy_links", count)
	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Now:    now,
		Pos:    HookPosLocalBusy,
		Item:   local,
	})

	switch {
	case !r.onRing():
	case r.isRingMaster():
		// The master aggregates the ring and only sends the global status.
		r.updateGlobalBusy(r.address, local, now)
	default:
		r.originate(BusyCountUpdate{
			OriginAddr:    r.address,
			Time:          now,
			LinkBusyCount: count,
			LocalBusy:     local,
		})
	}
}

// BusyLinkCount returns the number of data links that are busy.
func (r *ReadoutUnit) BusyLinkCount() int {
	return r.busyLinkCount
}

// State returns the local busy state.
func (r *ReadoutUnit) State() State {
	if r.localBusy {
		return StateLocalBusy
	}

	return StateNormal
}

// GlobalBusy tells if the ring master reported the detector busy.
func (r *ReadoutUnit) GlobalBusy() bool {
	return r.globalBusy
}

// TriggerActions returns, per trigger, the action taken on every control
// link.
func (r *ReadoutUnit) TriggerActions() [][]TriggerAction {
	return r.actions
}

// TriggerStats returns the trigger counts per control link.
func (r *ReadoutUnit) TriggerStats() []TriggerStats {
	return r.triggerStats
}

// Finalize closes the busy intervals that are still open.
func (r *ReadoutUnit) Finalize(now sim.VTimeInNs) {
	for _, p := range r.parsers {
		p.Finalize(now)
	}
}
