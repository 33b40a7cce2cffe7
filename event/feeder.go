package event

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/sim"
)

// Hook positions of the Feeder. The item is the *Event.
var (
	HookPosPhysicsEvent = &sim.HookPos{Name: "PhysicsEvent"}
	HookPosQEDEvent     = &sim.HookPos{Name: "QEDEvent"}
)

// A ChipFinder finds a simulated chip by its global id. It returns nil for
// chips that are not simulated.
type ChipFinder interface {
	Chip(globalID int) *alpide.Chip
}

// A Triggerer distributes triggers to the readout electronics.
type Triggerer interface {
	Trigger(now sim.VTimeInNs, trigID uint64) error
}

// Stats counts what the Feeder delivered.
type Stats struct {
	PhysicsEvents uint64
	QEDEvents     uint64
	PhysicsHits   uint64
	QEDHits       uint64
	SkippedHits   uint64
	Triggers      uint64
	LastEventTime sim.VTimeInNs
}

// Feeder injects the hits of physics and QED events into the chips and
// issues the triggers. In triggered mode every physics event is followed by
// a trigger after the trigger delay. In continuous mode triggers are issued
// at every strobe period instead.
type Feeder struct {
	*sim.HookableBase

	name   string
	engine sim.Engine
	logger *slog.Logger

	physics Source
	qed     Source
	chips   ChipFinder
	trigger Triggerer

	continuous   bool
	triggerDelay sim.VTimeInNs
	strobePeriod sim.VTimeInNs
	numEvents    uint64
	drainTime    sim.VTimeInNs

	stats     Stats
	lastTrig  uint64
	done      bool
	doneTime  sim.VTimeInNs
	doneHooks []func(now sim.VTimeInNs)
}

// Name returns the name of the Feeder.
func (f *Feeder) Name() string {
	return f.name
}

// Stats returns the delivery counters.
func (f *Feeder) Stats() Stats {
	return f.stats
}

// Done tells if all the physics events were delivered.
func (f *Feeder) Done() bool {
	return f.done
}

// DoneTime returns the time of the last physics event.
func (f *Feeder) DoneTime() sim.VTimeInNs {
	return f.doneTime
}

// OnDone registers a function to call when the last physics event is
// delivered.
func (f *Feeder) OnDone(fn func(now sim.VTimeInNs)) {
	f.doneHooks = append(f.doneHooks, fn)
}

// Start schedules the first events.
func (f *Feeder) Start() error {
	now := f.engine.CurrentTime()

	if f.continuous {
		sim.ScheduleFunc(f.engine, now, f.strobe)
	}

	if err := f.schedulePhysics(); err != nil {
		return err
	}

	return f.scheduleQED()
}

func (f *Feeder) schedulePhysics() error {
	if f.numEvents > 0 && f.stats.PhysicsEvents >= f.numEvents {
		f.finish()
		return nil
	}

	evt, err := f.physics.Next()
	if err == io.EOF {
		f.finish()
		return nil
	}

	if err != nil {
		return err
	}

	t := maxTime(evt.Time, f.engine.CurrentTime())
	sim.ScheduleFunc(f.engine, t, func(now sim.VTimeInNs) error {
		return f.deliverPhysics(now, evt)
	})

	return nil
}

func (f *Feeder) scheduleQED() error {
	if f.qed == nil || f.done {
		return nil
	}

	evt, err := f.qed.Next()
	if err == io.EOF {
		return nil
	}

	if err != nil {
		return err
	}

	t := maxTime(evt.Time, f.engine.CurrentTime())
	sim.ScheduleFunc(f.engine, t, func(now sim.VTimeInNs) error {
		return f.deliverQED(now, evt)
	})

	return nil
}

func maxTime(a, b sim.VTimeInNs) sim.VTimeInNs {
	if a > b {
		return a
	}

	return b
}

func (f *Feeder) deliverPhysics(now sim.VTimeInNs, evt *Event) error {
	evt.Time = now

	n, err := f.inject(now, evt)
	if err != nil {
		return err
	}

	f.stats.PhysicsEvents++
	f.stats.PhysicsHits += uint64(n)
	f.stats.LastEventTime = now

	f.InvokeHook(sim.HookCtx{
		Domain: f,
		Now:    now,
		Pos:    HookPosPhysicsEvent,
		Item:   evt,
	})

	f.logger.Debug("physics event",
		"time", now, "event", evt.ID, "hits", n)

	if !f.continuous {
		trigID := f.nextTriggerID()
		sim.ScheduleFunc(f.engine, now+f.triggerDelay,
			func(t sim.VTimeInNs) error {
				return f.issueTrigger(t, trigID)
			})
	}

	return f.schedulePhysics()
}

func (f *Feeder) deliverQED(now sim.VTimeInNs, evt *Event) error {
	if f.done {
		return nil
	}

	evt.Time = now

	n, err := f.inject(now, evt)
	if err != nil {
		return err
	}

	f.stats.QEDEvents++
	f.stats.QEDHits += uint64(n)

	f.InvokeHook(sim.HookCtx{
		Domain: f,
		Now:    now,
		Pos:    HookPosQEDEvent,
		Item:   evt,
	})

	return f.scheduleQED()
}

func (f *Feeder) inject(now sim.VTimeInNs, evt *Event) (int, error) {
	n := 0

	for _, h := range evt.Hits {
		chip := f.chips.Chip(h.ChipID)
		if chip == nil {
			f.stats.SkippedHits++
			continue
		}

		if err := chip.InjectHit(h.Col, h.Row, now); err != nil {
			return n, errors.Wrapf(err, "event %d", evt.ID)
		}

		n++
	}

	return n, nil
}

func (f *Feeder) nextTriggerID() uint64 {
	f.lastTrig++
	return f.lastTrig
}

func (f *Feeder) issueTrigger(now sim.VTimeInNs, trigID uint64) error {
	f.stats.Triggers++

	if err := f.trigger.Trigger(now, trigID); err != nil {
		return errors.Wrapf(err, "trigger %d", trigID)
	}

	return nil
}

func (f *Feeder) strobe(now sim.VTimeInNs) error {
	if f.done && now > f.doneTime+f.drainTime {
		return nil
	}

	if err := f.issueTrigger(now, f.nextTriggerID()); err != nil {
		return err
	}

	sim.ScheduleFunc(f.engine, now+f.strobePeriod, f.strobe)

	return nil
}

func (f *Feeder) finish() {
	if f.done {
		return
	}

	f.done = true
	f.doneTime = f.engine.CurrentTime()

	f.logger.Info("all physics events delivered",
		"time", f.doneTime,
		"events", f.stats.PhysicsEvents,
		"hits", f.stats.PhysicsHits)

	for _, fn := range f.doneHooks {
		fn(f.doneTime)
	}
}
