// Package event provides the physics and background events that stimulate
// the detector, and schedules the hits and triggers they cause.
package event

import (
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/sim"
)

// A Hit is a pixel hit on a chip, addressed by the global chip id.
type Hit struct {
	ChipID int
	Col    int
	Row    int
}

// An Event is a set of hits that happen at the same time.
type Event struct {
	ID        uint64
	Time      sim.VTimeInNs
	Triggered bool
	Hits      []Hit
}

// NumHits returns the number of pixel hits of the event.
func (e *Event) NumHits() int {
	return len(e.Hits)
}

// A HitSource produces the hits of one event after another. It returns
// io.EOF when no more events are available.
type HitSource interface {
	NextHits() ([]Hit, error)
}

// A Source produces timed events.
type Source interface {
	Next() (*Event, error)
}

// A ChipMapper turns a chip position into a global chip id. It reports false
// for chips that are not simulated.
type ChipMapper interface {
	GlobalChipID(pos detector.Position) (int, bool)
}

// LayoutMapper maps positions with a detector layout and keeps only the
// chips of active staves.
type LayoutMapper struct {
	layout detector.Layout
	active map[detector.StaveID]bool
}

// NewLayoutMapper creates a LayoutMapper for a layout.
func NewLayoutMapper(layout detector.Layout) *LayoutMapper {
	m := &LayoutMapper{
		layout: layout,
		active: make(map[detector.StaveID]bool),
	}

	for _, s := range layout.ActiveStaves() {
		m.active[s] = true
	}

	return m
}

// IsActive tells if a stave is simulated.
func (m *LayoutMapper) IsActive(layer, stave int) bool {
	return m.active[detector.StaveID{Layer: layer, Stave: stave}]
}

// GlobalChipID maps a position of an active stave to its global chip id.
func (m *LayoutMapper) GlobalChipID(pos detector.Position) (int, bool) {
	if !m.IsActive(pos.Layer, pos.Stave) {
		return 0, false
	}

	return m.layout.GlobalChipID(pos), true
}

// SingleChipMapper maps the first position of a detector to chip 0 and
// drops everything else.
type SingleChipMapper struct{}

// GlobalChipID maps the zero position to chip 0.
func (SingleChipMapper) GlobalChipID(pos detector.Position) (int, bool) {
	return 0, pos == detector.Position{}
}
