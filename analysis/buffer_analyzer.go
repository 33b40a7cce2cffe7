package analysis

import (
	"github.com/sarchlab/alpidesim/sim"
)

// PerfAnalyzerEntry is a single entry in the performance database.
type PerfAnalyzerEntry struct {
	Start     sim.VTimeInNs
	End       sim.VTimeInNs
	Where     string
	What      string
	EntryType string
	Value     float64
	Unit      string
}

// PerfLogger is the interface that provide the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfAnalyzerEntry)
}

// BufferAnalyzer is a hook that records how long a buffer stays at each
// fill level. With a period, it also reports the average level of every
// period to a PerfLogger.
type BufferAnalyzer struct {
	timeTeller sim.TimeTeller
	perfLogger PerfLogger

	buf       sim.Buffer
	usePeriod bool
	period    sim.VTimeInNs

	histogram   *LevelHistogram
	periodHisto *LevelHistogram
	periodStart sim.VTimeInNs
}

// Func is a function that records buffer level change.
func (b *BufferAnalyzer) Func(ctx sim.HookCtx) {
	now := b.timeTeller.CurrentTime()
	level := b.buf.Size()

	if b.usePeriod {
		b.closePeriods(now)
		b.periodHisto.Update(now, level)
	}

	b.histogram.Update(now, level)
}

func (b *BufferAnalyzer) closePeriods(now sim.VTimeInNs) {
	for b.periodStart+b.period <= now {
		end := b.periodStart + b.period
		b.periodHisto.Finalize(end)
		b.report(b.periodStart, end)

		b.periodHisto = StartLevelHistogram(end, b.periodHisto.Level())
		b.periodStart = end
	}
}

func (b *BufferAnalyzer) report(start, end sim.VTimeInNs) {
	avg := b.periodHisto.Average()
	if avg == 0 || b.perfLogger == nil {
		return
	}

	b.perfLogger.AddDataEntry(PerfAnalyzerEntry{
		Start:     start,
		End:       end,
		Where:     b.buf.Name(),
		What:      "Level",
		EntryType: "Buffer",
		Value:     avg,
	})
}

// Histogram returns the level histogram collected so far.
func (b *BufferAnalyzer) Histogram() *LevelHistogram {
	return b.histogram
}

// Buffer returns the analyzed buffer.
func (b *BufferAnalyzer) Buffer() sim.Buffer {
	return b.buf
}

// Summarize closes the histogram at the current time and reports the last
// partial period.
func (b *BufferAnalyzer) Summarize() {
	now := b.timeTeller.CurrentTime()
	b.histogram.Finalize(now)

	if b.usePeriod {
		b.closePeriods(now)
		b.periodHisto.Finalize(now)
		if now > b.periodStart {
			b.report(b.periodStart, now)
		}
	}
}

// BufferAnalyzerBuilder can build a BufferAnalyzer.
type BufferAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller sim.TimeTeller
	usePeriod  bool
	period     sim.VTimeInNs
	buffer     sim.Buffer
}

// MakeBufferAnalyzerBuilder creates a BufferAnalyzerBuilder.
func MakeBufferAnalyzerBuilder() BufferAnalyzerBuilder {
	return BufferAnalyzerBuilder{}
}

// WithPerfLogger sets the PerfLogger to use.
func (b BufferAnalyzerBuilder) WithPerfLogger(
	perfLogger PerfLogger,
) BufferAnalyzerBuilder {
	b.perfLogger = perfLogger
	return b
}

// WithTimeTeller sets the TimeTeller to use.
func (b BufferAnalyzerBuilder) WithTimeTeller(
	timeTeller sim.TimeTeller,
) BufferAnalyzerBuilder {
	b.timeTeller = timeTeller
	return b
}

// WithPeriod sets the period to use.
func (b BufferAnalyzerBuilder) WithPeriod(
	period sim.VTimeInNs,
) BufferAnalyzerBuilder {
	b.usePeriod = period > 0
	b.period = period

	return b
}

// WithBuffer sets the buffer to use.
func (b BufferAnalyzerBuilder) WithBuffer(
	buffer sim.Buffer,
) BufferAnalyzerBuilder {
	b.buffer = buffer
	return b
}

// Build creates a BufferAnalyzer and registers it as a hook of the buffer.
func (b BufferAnalyzerBuilder) Build() *BufferAnalyzer {
	if b.timeTeller == nil {
		panic("timeTeller is not set")
	}

	if b.buffer == nil {
		panic("buffer is not set")
	}

	if b.usePeriod && b.perfLogger == nil {
		panic("perfLogger is not set")
	}

	analyzer := &BufferAnalyzer{
		perfLogger:  b.perfLogger,
		timeTeller:  b.timeTeller,
		buf:         b.buffer,
		usePeriod:   b.usePeriod,
		period:      b.period,
		histogram:   NewLevelHistogram(),
		periodHisto: NewLevelHistogram(),
	}

	b.buffer.AcceptHook(analyzer)

	return analyzer
}
