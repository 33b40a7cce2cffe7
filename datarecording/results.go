package datarecording

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/parser"
	"github.com/sarchlab/alpidesim/readoutunit"
	"golang.org/x/exp/slices"
)

// Table names of the recorded results.
const (
	TableChipStats      = "chip_stats"
	TableLinkWords      = "link_words"
	TableBusyEvents     = "busy_events"
	TableFlaggedFrames  = "flagged_frames"
	TableTriggerSummary = "trigger_summary"
)

// ChipStatsEntry is a row of the chip_stats table.
type ChipStatsEntry struct {
	ChipID             int
	Layer              int
	Stave              int
	SubStave           int
	Module             int
	ModuleChip         int
	TriggersReceived   uint64
	TriggersAccepted   uint64
	TriggersRejected   uint64
	StrobeExtensions   uint64
	BusyTransitions    uint64
	BusyViolations     uint64
	FlushedIncompletes uint64
	ReadoutAborts      uint64
	FatalEntries       uint64
	LatchedPixelHits   uint64
	DuplicatePixelHits uint64
}

// LinkWordsEntry is a row of the link_words table: how many words of one
// type a data link carried.
type LinkWordsEntry struct {
	ReadoutUnit string
	Link        int
	WordType    string
	Count       uint64
	Bytes       uint64
}

// BusyEventEntry is a row of the busy_events table.
type BusyEventEntry struct {
	ReadoutUnit  string
	Link         int
	OnTime       uint64
	OffTime      uint64
	OnTriggerID  uint64
	OffTriggerID uint64
}

// FlaggedFrameEntry is a row of the flagged_frames table.
type FlaggedFrameEntry struct {
	ReadoutUnit string
	Link        int
	ChipID      int
	Flag        string
	TriggerID   uint64
}

// TriggerSummaryEntry is a row of the trigger_summary table.
type TriggerSummaryEntry struct {
	ReadoutUnit string
	ControlLink int
	Received    uint64
	Sent        uint64
	Filtered    uint64
	NotSentBusy uint64
}

// A Results holds the simulated detector after the run.
type Results interface {
	Chips() []*alpide.Chip
	PositionOf(c *alpide.Chip) detector.Position
	ReadoutUnits() []*readoutunit.ReadoutUnit
}

var resultTables = []struct {
	name   string
	sample any
}{
	{TableChipStats, ChipStatsEntry{}},
	{TableLinkWords, LinkWordsEntry{}},
	{TableBusyEvents, BusyEventEntry{}},
	{TableFlaggedFrames, FlaggedFrameEntry{}},
	{TableTriggerSummary, TriggerSummaryEntry{}},
}

// RecordResults creates the result tables and fills them. The Readout
// Units must have been finalized.
func RecordResults(rec DataRecorder, res Results) error {
	for _, t := range resultTables {
		if err := rec.CreateTable(t.name, t.sample); err != nil {
			return err
		}
	}

	if err := recordChips(rec, res); err != nil {
		return err
	}

	for _, ru := range res.ReadoutUnits() {
		if err := recordReadoutUnit(rec, ru); err != nil {
			return errors.Wrap(err, ru.Name())
		}
	}

	return rec.Flush()
}

func recordChips(rec DataRecorder, res Results) error {
	chips := slices.Clone(res.Chips())
	slices.SortFunc(chips, func(a, b *alpide.Chip) int {
		return a.GlobalID() - b.GlobalID()
	})

	for _, c := range chips {
		pos := res.PositionOf(c)
		s := c.Stats()

		err := rec.InsertData(TableChipStats, ChipStatsEntry{
			ChipID:             c.GlobalID(),
			Layer:              pos.Layer,
			Stave:              pos.Stave,
			SubStave:           pos.SubStave,
			Module:             pos.Module,
			ModuleChip:         pos.ModuleChip,
			TriggersReceived:   s.TriggersReceived,
			TriggersAccepted:   s.TriggersAccepted,
			TriggersRejected:   s.TriggersRejected,
			StrobeExtensions:   s.StrobeExtensions,
			BusyTransitions:    s.BusyTransitions,
			BusyViolations:     s.BusyViolations,
			FlushedIncompletes: s.FlushedIncompletes,
			ReadoutAborts:      s.ReadoutAborts,
			FatalEntries:       s.FatalEntries,
			LatchedPixelHits:   s.LatchedPixelHits,
			DuplicatePixelHits: s.DuplicatePixelHits,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func recordReadoutUnit(rec DataRecorder, ru *readoutunit.ReadoutUnit) error {
	for link, p := range ru.Parsers() {
		if err := recordLink(rec, ru.Name(), link, p); err != nil {
			return err
		}
	}

	for link, s := range ru.TriggerStats() {
		err := rec.InsertData(TableTriggerSummary, TriggerSummaryEntry{
			ReadoutUnit: ru.Name(),
			ControlLink: link,
			Received:    s.Received,
			Sent:        s.Sent,
			Filtered:    s.Filtered,
			NotSentBusy: s.NotSentBusy,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func recordLink(rec DataRecorder, ruName string, link int, p *parser.Parser) error {
	for t := alpide.DataType(0); t < alpide.NumDataTypes; t++ {
		count := p.WordCount(t)
		if count == 0 {
			continue
		}

		err := rec.InsertData(TableLinkWords, LinkWordsEntry{
			ReadoutUnit: ruName,
			Link:        link,
			WordType:    t.String(),
			Count:       count,
			Bytes:       p.ByteCount(t),
		})
		if err != nil {
			return err
		}
	}

	for _, e := range p.BusyEvents() {
		err := rec.InsertData(TableBusyEvents, BusyEventEntry{
			ReadoutUnit:  ruName,
			Link:         link,
			OnTime:       uint64(e.OnTime),
			OffTime:      uint64(e.OffTime),
			OnTriggerID:  e.OnTriggerID,
			OffTriggerID: e.OffTriggerID,
		})
		if err != nil {
			return err
		}
	}

	flagged := []struct {
		flag string
		ids  map[int][]uint64
	}{
		{"BUSY_VIOLATION", p.BusyViolations()},
		{"FLUSHED_INCOMPLETE", p.FlushedIncompletes()},
		{"READOUT_ABORT", p.ReadoutAborts()},
		{"FATAL", p.Fatals()},
	}

	for _, f := range flagged {
		for _, chipID := range parser.ChipIDs(f.ids) {
			for _, trigID := range f.ids[chipID] {
				err := rec.InsertData(TableFlaggedFrames, FlaggedFrameEntry{
					ReadoutUnit: ruName,
					Link:        link,
					ChipID:      chipID,
					Flag:        f.flag,
					TriggerID:   trigID,
				})
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}
