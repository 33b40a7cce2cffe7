package stats

import (
	"io"

	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/analysis"
	"github.com/sarchlab/alpidesim/sim"
)

// FIFOMonitor follows the fill level of the frame start and DMU FIFOs of
// chips.
type FIFOMonitor struct {
	analyzers []*analysis.BufferAnalyzer
}

// NewFIFOMonitor attaches buffer analyzers to the FIFOs of every chip.
func NewFIFOMonitor(
	timeTeller sim.TimeTeller,
	chips []*alpide.Chip,
) *FIFOMonitor {
	return NewPeriodicFIFOMonitor(timeTeller, chips, nil, 0)
}

// NewPeriodicFIFOMonitor also reports the average level of every FIFO in
// every period to perf. A zero period disables the reports.
func NewPeriodicFIFOMonitor(
	timeTeller sim.TimeTeller,
	chips []*alpide.Chip,
	perf analysis.PerfLogger,
	period sim.VTimeInNs,
) *FIFOMonitor {
	m := &FIFOMonitor{}

	for _, c := range sortedChips(chips) {
		for _, buf := range []sim.Buffer{c.FrameStartFIFO(), c.DMUFIFO()} {
			b := analysis.MakeBufferAnalyzerBuilder().
				WithTimeTeller(timeTeller).
				WithBuffer(buf)

			if perf != nil {
				b = b.WithPerfLogger(perf).WithPeriod(period)
			}

			m.analyzers = append(m.analyzers, b.Build())
		}
	}

	return m
}

// Write closes the histograms at the current time and writes one row per
// FIFO with the time spent at every fill level.
func (m *FIFOMonitor) Write(w io.Writer) error {
	maxLevel := 0
	for _, a := range m.analyzers {
		a.Summarize()
		maxLevel = max(maxLevel, a.Histogram().MaxLevel())
	}

	out := newCSVWriter(w)

	header := []any{"FIFO", "Average"}
	for level := 0; level <= maxLevel; level++ {
		header = append(header, level)
	}

	out.row(header...)

	for _, a := range m.analyzers {
		h := a.Histogram()

		row := []any{a.Buffer().Name(), formatFloat(h.Average())}
		for level := 0; level <= maxLevel; level++ {
			row = append(row, uint64(h.Duration(level)))
		}

		out.row(row...)
	}

	return out.flush()
}
