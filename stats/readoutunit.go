package stats

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/parser"
	"github.com/sarchlab/alpidesim/readoutunit"
)

// WriteTriggerActions writes the action taken on every control link for
// every trigger.
func WriteTriggerActions(w io.Writer, ru *readoutunit.ReadoutUnit) error {
	out := newBinWriter(w)
	actions := ru.TriggerActions()

	out.u64(uint64(len(actions)))
	out.u8(uint8(ru.NumControlLinks()))

	for _, perLink := range actions {
		for _, a := range perLink {
			out.u8(uint8(a))
		}
	}

	return out.flush()
}

// WriteBusyEvents writes the busy intervals of every data link.
func WriteBusyEvents(w io.Writer, parsers []*parser.Parser) error {
	out := newBinWriter(w)
	out.u8(uint8(len(parsers)))

	for _, p := range parsers {
		events := p.BusyEvents()
		out.u64(uint64(len(events)))

		for _, e := range events {
			out.u64(uint64(e.OnTime))
			out.u64(uint64(e.OffTime))
			out.u64(e.OnTriggerID)
			out.u64(e.OffTriggerID)
		}
	}

	return out.flush()
}

// WriteChipTriggerIDs writes, for every data link and chip, the trigger ids
// of the frames that a parser flagged.
func WriteChipTriggerIDs(
	w io.Writer,
	parsers []*parser.Parser,
	flagged func(p *parser.Parser) map[int][]uint64,
) error {
	out := newBinWriter(w)
	out.u8(uint8(len(parsers)))

	for _, p := range parsers {
		perChip := flagged(p)
		chipIDs := maps.Keys(perChip)
		slices.Sort(chipIDs)

		out.u8(uint8(len(chipIDs)))

		for _, id := range chipIDs {
			ids := perChip[id]

			out.u8(uint8(id))
			out.u64(uint64(len(ids)))

			for _, trigID := range ids {
				out.u64(trigID)
			}
		}
	}

	return out.flush()
}

// WriteDataRate writes one row per data link with the number of bytes sent
// in every data rate interval.
func WriteDataRate(w io.Writer, parsers []*parser.Parser) error {
	out := newCSVWriter(w)

	rates := make([][]uint64, len(parsers))
	numBuckets := 0

	for i, p := range parsers {
		rates[i] = p.DataRate()
		numBuckets = max(numBuckets, len(rates[i]))
	}

	header := []any{"Link"}
	if len(parsers) > 0 {
		interval := uint64(parsers[0].DataRateInterval())
		for b := 0; b < numBuckets; b++ {
			header = append(header, uint64(b)*interval)
		}
	}

	out.row(header...)

	for i, p := range parsers {
		row := []any{p.Name()}
		for b := 0; b < numBuckets; b++ {
			var v uint64
			if b < len(rates[i]) {
				v = rates[i][b]
			}

			row = append(row, v)
		}

		out.row(row...)
	}

	return out.flush()
}

// WriteLinkUtilization writes the number of words of every type received on
// every data link.
func WriteLinkUtilization(w io.Writer, parsers []*parser.Parser) error {
	out := newCSVWriter(w)

	header := []any{"Link"}
	for t := alpide.DataType(0); t < alpide.NumDataTypes; t++ {
		header = append(header, t.String())
	}
	header = append(header, "Total bytes")

	out.row(header...)

	for _, p := range parsers {
		row := []any{p.Name()}
		for _, n := range p.WordCounts() {
			row = append(row, n)
		}
		row = append(row, p.TotalBytes())

		out.row(row...)
	}

	return out.flush()
}

// WriteTriggerSummary writes the trigger counters of every control link.
func WriteTriggerSummary(w io.Writer, ru *readoutunit.ReadoutUnit) error {
	out := newCSVWriter(w)
	out.row("Control link", "Received", "Sent", "Filtered", "Not sent busy")

	for i, s := range ru.TriggerStats() {
		out.row(i, s.Received, s.Sent, s.Filtered, s.NotSentBusy)
	}

	return out.flush()
}

// WriteReadoutUnitFiles writes all the files of a Readout Unit into dir.
func WriteReadoutUnitFiles(dir string, ru *readoutunit.ReadoutUnit) error {
	parsers := ru.Parsers()
	prefix := ru.Name() + "_"

	files := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{"trigger_actions.dat", func(w io.Writer) error {
			return WriteTriggerActions(w, ru)
		}},
		{"busy_events.dat", func(w io.Writer) error {
			return WriteBusyEvents(w, parsers)
		}},
		{"busyv_events.dat", func(w io.Writer) error {
			return WriteChipTriggerIDs(w, parsers, (*parser.Parser).BusyViolations)
		}},
		{"flush_events.dat", func(w io.Writer) error {
			return WriteChipTriggerIDs(w, parsers, (*parser.Parser).FlushedIncompletes)
		}},
		{"ro_abort_events.dat", func(w io.Writer) error {
			return WriteChipTriggerIDs(w, parsers, (*parser.Parser).ReadoutAborts)
		}},
		{"fatal_events.dat", func(w io.Writer) error {
			return WriteChipTriggerIDs(w, parsers, (*parser.Parser).Fatals)
		}},
		{"Data_rate.csv", func(w io.Writer) error {
			return WriteDataRate(w, parsers)
		}},
		{"Link_utilization.csv", func(w io.Writer) error {
			return WriteLinkUtilization(w, parsers)
		}},
		{"Trigger_summary.csv", func(w io.Writer) error {
			return WriteTriggerSummary(w, ru)
		}},
	}

	for _, f := range files {
		err := writeFile(filepath.Join(dir, prefix+f.name), f.write)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}

	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}

	return errors.Wrapf(f.Close(), "closing %s", path)
}
