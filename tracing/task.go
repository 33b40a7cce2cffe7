package tracing

import "github.com/sarchlab/alpidesim/sim"

// Kinds of busy intervals.
const (
	KindChipBusy     = "chip_busy"
	KindLinkBusy     = "link_busy"
	KindRULocalBusy  = "ru_local_busy"
	KindRUGlobalBusy = "ru_global_busy"
)

// An Interval is a time span during which a chip, a data link, or a Readout
// Unit was busy.
type Interval struct {
	ID    string        `json:"id"`
	Kind  string        `json:"kind"`
	Where string        `json:"where"`
	Start sim.VTimeInNs `json:"start"`
	End   sim.VTimeInNs `json:"end"`

	// Open is set on intervals that were still running when the simulation
	// ended.
	Open bool `json:"open"`
}

// IntervalFilter selects the intervals that a tracer is interested in.
type IntervalFilter func(i Interval) bool

// KindFilter selects the intervals of one kind.
func KindFilter(kind string) IntervalFilter {
	return func(i Interval) bool {
		return i.Kind == kind
	}
}
