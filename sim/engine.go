package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInNs
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler is a handler that is called after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInNs)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run will process all the events until the simulation finishes, is
	// stopped, or a handler returns an error.
	Run() error

	// Stop requests the engine to return from Run at the next event boundary.
	// It is safe to call from other goroutines.
	Stop()

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation
	Continue()

	// RegisterSimulationEndHandler registers a handler that perform some
	// actions after the simulation is finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandler
	Finished()
}

// ScheduleStop makes the engine return from Run after all the primary events
// at time t are handled.
func ScheduleStop(engine Engine, t VTimeInNs) {
	stop := HandlerFunc(func(Event) error {
		engine.Stop()
		return nil
	})

	engine.Schedule(NewSecondaryEventBase(t, stop))
}

// ScheduleFunc runs f at time t.
func ScheduleFunc(engine Engine, t VTimeInNs, f func(now VTimeInNs) error) {
	h := HandlerFunc(func(e Event) error {
		return f(e.Time())
	})

	engine.Schedule(NewEventBase(t, h))
}
