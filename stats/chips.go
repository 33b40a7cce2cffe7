package stats

import (
	"io"
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/sim"
)

// A Locator tells where a chip sits in the detector.
type Locator interface {
	PositionOf(c *alpide.Chip) detector.Position
}

func sortedChips(chips []*alpide.Chip) []*alpide.Chip {
	sorted := slices.Clone(chips)
	slices.SortFunc(sorted, func(a, b *alpide.Chip) int {
		return a.GlobalID() - b.GlobalID()
	})

	return sorted
}

// WriteMEBHistograms writes, for every chip, the time spent with each
// number of multi event buffers in use.
func WriteMEBHistograms(
	w io.Writer,
	chips []*alpide.Chip,
	now sim.VTimeInNs,
) error {
	chips = sortedChips(chips)
	out := newCSVWriter(w)

	header := []any{"Multi Event Buffers in use"}
	histograms := make([]map[int]sim.VTimeInNs, len(chips))
	maxLevel := 0

	for i, c := range chips {
		header = append(header, "Chip ID "+strconv.Itoa(c.GlobalID()))
		histograms[i] = c.MEBHistogram(now)

		for level := range histograms[i] {
			if level > maxLevel {
				maxLevel = level
			}
		}
	}

	out.row(header...)

	for level := 0; level <= maxLevel; level++ {
		row := []any{level}
		for _, h := range histograms {
			row = append(row, uint64(h[level]))
		}

		out.row(row...)
	}

	return out.flush()
}

// WriteChipStats writes the trigger, busy, pixel and data word counters of
// every chip.
func WriteChipStats(w io.Writer, chips []*alpide.Chip, loc Locator) error {
	chips = sortedChips(chips)
	out := newCSVWriter(w)

	header := []any{
		"Layer ID", "Stave ID", "Sub-stave ID", "Module ID",
		"Local Chip ID", "Unique Chip ID",
		"Received triggers", "Accepted triggers", "Rejected triggers",
		"Busy", "Busy violations", "Flushed Incompletes",
		"Readout aborts", "Fatal", "Strobe extensions",
		"Latched pixel hits", "Duplicate pixel hits",
	}
	for t := alpide.DataType(0); t < alpide.NumDataTypes; t++ {
		header = append(header, t.String())
	}

	out.row(header...)

	for _, c := range chips {
		pos := loc.PositionOf(c)
		s := c.Stats()

		row := []any{
			pos.Layer, pos.Stave, pos.SubStave, pos.Module,
			pos.ModuleChip, c.GlobalID(),
			s.TriggersReceived, s.TriggersAccepted, s.TriggersRejected,
			s.BusyTransitions, s.BusyViolations, s.FlushedIncompletes,
			s.ReadoutAborts, s.FatalEntries, s.StrobeExtensions,
			s.LatchedPixelHits, s.DuplicatePixelHits,
		}
		for _, n := range s.DataWords {
			row = append(row, n)
		}

		out.row(row...)
	}

	return out.flush()
}
