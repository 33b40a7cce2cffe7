package sim

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks, rounded to the
// nearest nanosecond.
func (f Freq) Period() VTimeInNs {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}

	p := VTimeInNs(math.Round(1e9 / float64(f)))
	if p == 0 {
		log.Panic("frequency too high for nanosecond resolution")
	}

	return p
}

// Cycle converts a time to the number of complete cycles passed since time 0.
func (f Freq) Cycle(time VTimeInNs) uint64 {
	return uint64(time / f.Period())
}

// ThisTick returns the current tick time
//
//	           Input
//	           (          ]
//	|----------|----------|----------|----->
//	                      |
//	                      Output
func (f Freq) ThisTick(now VTimeInNs) VTimeInNs {
	p := f.Period()
	return (now + p - 1) / p * p
}

// NextTick returns the next tick time.
//
//	           Input
//	           [          )
//	|----------|----------|----------|----->
//	                      |
//	                      Output
func (f Freq) NextTick(now VTimeInNs) VTimeInNs {
	p := f.Period()
	return (now/p + 1) * p
}

// NCyclesLater returns the time after N cycles
//
// This function will always return a time of an integer number of cycles
func (f Freq) NCyclesLater(n int, now VTimeInNs) VTimeInNs {
	return f.ThisTick(now) + VTimeInNs(n)*f.Period()
}

// NoEarlierThan returns the tick time that is at or right after the given time
func (f Freq) NoEarlierThan(t VTimeInNs) VTimeInNs {
	return f.ThisTick(t)
}

// HalfTick returns the time in middle of two ticks
//
//	           Input
//	           (          ]
//	|----------|----------|----------|----->
//	                           |
//	                           Output
func (f Freq) HalfTick(t VTimeInNs) VTimeInNs {
	return f.ThisTick(t) + f.Period()/2
}
