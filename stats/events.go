package stats

import (
	"io"

	"github.com/sarchlab/alpidesim/event"
	"github.com/sarchlab/alpidesim/sim"
)

// EventRecord is the summary of one delivered event.
type EventRecord struct {
	ID        uint64
	Time      sim.VTimeInNs
	Triggered bool
	Hits      int
}

// EventLog is a hook on an event Feeder that keeps a record of every
// delivered event.
type EventLog struct {
	records []EventRecord
}

// Func records the event of a hook context.
func (l *EventLog) Func(ctx sim.HookCtx) {
	if ctx.Pos != event.HookPosPhysicsEvent && ctx.Pos != event.HookPosQEDEvent {
		return
	}

	evt := ctx.Item.(*event.Event)
	l.records = append(l.records, EventRecord{
		ID:        evt.ID,
		Time:      evt.Time,
		Triggered: ctx.Pos == event.HookPosPhysicsEvent,
		Hits:      evt.NumHits(),
	})
}

// Records returns the recorded events in delivery order.
func (l *EventLog) Records() []EventRecord {
	return l.records
}

// Write writes one row per event.
func (l *EventLog) Write(w io.Writer) error {
	out := newCSVWriter(w)
	out.row("Time (ns)", "Event ID", "Triggered", "Pixel hits")

	for _, r := range l.records {
		out.row(uint64(r.Time), r.ID, r.Triggered, r.Hits)
	}

	return out.flush()
}
