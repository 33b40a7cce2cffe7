package parser

import (
	"github.com/sarchlab/alpidesim/alpide"
	"golang.org/x/exp/slices"
)

// Frame is a frame rebuilt from the words of one chip.
type Frame struct {
	ChipID    int
	Timestamp byte
	TriggerID uint64
	Flags     byte
	Empty     bool
	Completed bool

	hits map[alpide.PixelHit]struct{}
}

// NumHits returns the number of distinct pixels in the frame.
func (f *Frame) NumHits() int {
	return len(f.hits)
}

// HasHit tells if the pixel is in the frame.
func (f *Frame) HasHit(h alpide.PixelHit) bool {
	_, ok := f.hits[h]
	return ok
}

// Hits returns the pixels of the frame ordered by column, then row.
func (f *Frame) Hits() []alpide.PixelHit {
	hits := make([]alpide.PixelHit, 0, len(f.hits))
	for h := range f.hits {
		hits = append(hits, h)
	}

	slices.SortFunc(hits, func(a, b alpide.PixelHit) int {
		if a.Col != b.Col {
			return a.Col - b.Col
		}

		return a.Row - b.Row
	})

	return hits
}

func (f *Frame) Fatal() bool {
	return f.Flags&alpide.FlagsFatal == alpide.FlagsFatal
}

func (f *Frame) ReadoutAbort() bool {
	return f.Flags&alpide.FlagsReadoutAbort == alpide.FlagsReadoutAbort
}

func (f *Frame) BusyViolation() bool {
	return f.Flags&alpide.FlagBusyViolation != 0
}

func (f *Frame) FlushedIncomplete() bool {
	return f.Flags&alpide.FlagFlushedIncomplete != 0
}

func (f *Frame) StrobeExtended() bool {
	return f.Flags&alpide.FlagStrobeExtended != 0
}

func (f *Frame) BusyTransition() bool {
	return f.Flags&alpide.FlagBusyTransition != 0
}
