package tracing

import "github.com/sarchlab/alpidesim/sim"

// A Tracer collects busy intervals. EndInterval receives the interval with
// the same ID as the StartInterval call.
type Tracer interface {
	StartInterval(i Interval)
	EndInterval(i Interval)

	// Terminate ends all the intervals that are still open.
	Terminate(now sim.VTimeInNs)
}
