package event

import (
	"math/rand/v2"

	"github.com/sarchlab/alpidesim/sim"
)

// A Timing decides the time between two events.
type Timing interface {
	NextDelta(r *rand.Rand) sim.VTimeInNs
}

// ExponentialTiming spaces events like a Poisson process with the given
// mean time between events.
type ExponentialTiming struct {
	Mean sim.VTimeInNs
}

// NextDelta draws the time to the next event.
func (t ExponentialTiming) NextDelta(r *rand.Rand) sim.VTimeInNs {
	return sim.VTimeInNs(r.ExpFloat64() * float64(t.Mean))
}

// FixedTiming spaces events evenly.
type FixedTiming struct {
	Period sim.VTimeInNs
}

// NextDelta returns the period.
func (t FixedTiming) NextDelta(*rand.Rand) sim.VTimeInNs {
	return t.Period
}

// QEDFeedPeriod scales the integration time of QED background events, which
// were produced at qedEventRate, to the average event rate of the
// simulation.
func QEDFeedPeriod(feedRate, qedEventRate, averageEventRate sim.VTimeInNs) sim.VTimeInNs {
	if qedEventRate == 0 || averageEventRate == 0 {
		return feedRate
	}

	scale := float64(qedEventRate) / float64(averageEventRate)

	return sim.VTimeInNs(float64(feedRate) / scale)
}

// Generator gives times and ids to the hits of a HitSource.
type Generator struct {
	hits      HitSource
	timing    Timing
	rand      *rand.Rand
	triggered bool

	now    sim.VTimeInNs
	nextID uint64
}

// NewGenerator creates a Generator. Events of a triggered generator cause
// triggers.
func NewGenerator(
	hits HitSource,
	timing Timing,
	r *rand.Rand,
	triggered bool,
) *Generator {
	return &Generator{
		hits:      hits,
		timing:    timing,
		rand:      r,
		triggered: triggered,
	}
}

// WithStartTime sets the time that the first delta counts from.
func (g *Generator) WithStartTime(t sim.VTimeInNs) *Generator {
	g.now = t
	return g
}

// Next returns the next event.
func (g *Generator) Next() (*Event, error) {
	hits, err := g.hits.NextHits()
	if err != nil {
		return nil, err
	}

	g.now += g.timing.NextDelta(g.rand)

	evt := &Event{
		ID:        g.nextID,
		Time:      g.now,
		Triggered: g.triggered,
		Hits:      hits,
	}
	g.nextID++

	return evt, nil
}
