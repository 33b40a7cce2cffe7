package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/sarchlab/alpidesim/sim"
)

// SimulationInfo summarizes a run.
type SimulationInfo struct {
	RunID             string
	RequestedEvents   uint64
	TriggeredEvents   uint64
	UntriggeredEvents uint64
	Triggers          uint64
	SimulatedTime     sim.VTimeInNs
	WallTime          time.Duration
	Interrupted       bool
}

// WriteSimulationInfo writes the run summary.
func WriteSimulationInfo(w io.Writer, info SimulationInfo) error {
	_, err := fmt.Fprintf(w,
		"Number of triggered events requested: %d\n"+
			"Number of triggered events simulated: %d\n"+
			"Number of triggers distributed: %d\n"+
			"Number of untriggered events simulated: %d\n"+
			"Simulated time (ns): %d\n"+
			"Wall time: %s\n"+
			"Interrupted: %t\n"+
			"Run ID: %s\n",
		info.RequestedEvents,
		info.TriggeredEvents,
		info.Triggers,
		info.UntriggeredEvents,
		uint64(info.SimulatedTime),
		info.WallTime.Round(time.Millisecond),
		info.Interrupted,
		info.RunID,
	)

	return err
}
