package event

import (
	"io"
	"log/slog"

	"github.com/sarchlab/alpidesim/sim"
)

// Builder builds Feeders.
type Builder struct {
	engine       sim.Engine
	logger       *slog.Logger
	physics      Source
	qed          Source
	continuous   bool
	triggerDelay sim.VTimeInNs
	strobePeriod sim.VTimeInNs
	numEvents    uint64
	drainTime    sim.VTimeInNs
}

// MakeBuilder returns a Builder for a triggered Feeder.
func MakeBuilder() Builder {
	return Builder{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		drainTime: 100000,
	}
}

// WithContext takes the engine and the logger from a simulation context.
func (b Builder) WithContext(ctx *sim.Context) Builder {
	b.engine = ctx.Engine
	b.logger = ctx.Logger

	return b
}

// WithPhysicsSource sets where the triggered events come from.
func (b Builder) WithPhysicsSource(s Source) Builder {
	b.physics = s
	return b
}

// WithQEDSource sets where the untriggered background events come from.
func (b Builder) WithQEDSource(s Source) Builder {
	b.qed = s
	return b
}

// WithTriggerDelay sets the time from a physics event to its trigger.
func (b Builder) WithTriggerDelay(t sim.VTimeInNs) Builder {
	b.triggerDelay = t
	return b
}

// WithContinuousMode issues a trigger every strobe period instead of one per
// physics event.
func (b Builder) WithContinuousMode(strobePeriod sim.VTimeInNs) Builder {
	b.continuous = true
	b.strobePeriod = strobePeriod

	return b
}

// WithNumEvents limits the number of physics events. Zero means until the
// source runs out.
func (b Builder) WithNumEvents(n uint64) Builder {
	b.numEvents = n
	return b
}

// WithDrainTime sets how long strobes continue after the last physics event
// in continuous mode.
func (b Builder) WithDrainTime(t sim.VTimeInNs) Builder {
	b.drainTime = t
	return b
}

// Build creates a Feeder that injects into chips and triggers trigger.
func (b Builder) Build(
	name string,
	chips ChipFinder,
	trigger Triggerer,
) *Feeder {
	if b.engine == nil {
		panic("event: engine is not set")
	}

	if b.physics == nil {
		panic("event: physics source is not set")
	}

	if b.continuous && b.strobePeriod == 0 {
		panic("event: strobe period must be positive in continuous mode")
	}

	return &Feeder{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		engine:       b.engine,
		logger:       b.logger.With("module", "event", "feeder", name),
		physics:      b.physics,
		qed:          b.qed,
		chips:        chips,
		trigger:      trigger,
		continuous:   b.continuous,
		triggerDelay: b.triggerDelay,
		strobePeriod: b.strobePeriod,
		numEvents:    b.numEvents,
		drainTime:    b.drainTime,
	}
}
