package alpide

import "github.com/sarchlab/alpidesim/sim"

// PendingHit is a pixel hit waiting in the analog front end. It can be
// latched by any strobe that overlaps [ActiveStart, ActiveEnd).
type PendingHit struct {
	PixelHit
	ActiveStart sim.VTimeInNs
	ActiveEnd   sim.VTimeInNs
}

// ActiveDuring tells if the hit is active in any part of [start, end).
func (h PendingHit) ActiveDuring(start, end sim.VTimeInNs) bool {
	return h.ActiveStart < end && start < h.ActiveEnd
}

// PixelFrontEnd models the shaping of the analog front end. A hit becomes
// active after the dead time and stays active for the active time.
type PixelFrontEnd struct {
	deadTime   sim.VTimeInNs
	activeTime sim.VTimeInNs
	hits       []PendingHit
}

// NewPixelFrontEnd creates a front end with the given shaping times.
func NewPixelFrontEnd(deadTime, activeTime sim.VTimeInNs) *PixelFrontEnd {
	return &PixelFrontEnd{
		deadTime:   deadTime,
		activeTime: activeTime,
	}
}

// Inject stores a hit that arrived at time t.
func (f *PixelFrontEnd) Inject(col, row int, t sim.VTimeInNs) error {
	if err := checkCoordinate(col, row); err != nil {
		return err
	}

	start := t + f.deadTime
	f.hits = append(f.hits, PendingHit{
		PixelHit:    PixelHit{Col: col, Row: row},
		ActiveStart: start,
		ActiveEnd:   start + f.activeTime,
	})

	return nil
}

// NumPending returns the number of hits held by the front end.
func (f *PixelFrontEnd) NumPending() int {
	return len(f.hits)
}

// RemoveInactiveHits drops the hits whose active window ended before now.
func (f *PixelFrontEnd) RemoveInactiveHits(now sim.VTimeInNs) {
	kept := f.hits[:0]
	for _, h := range f.hits {
		if h.ActiveEnd > now {
			kept = append(kept, h)
		}
	}

	for i := len(kept); i < len(f.hits); i++ {
		f.hits[i] = PendingHit{}
	}

	f.hits = kept
}

// Latch copies every hit active during the strobe window into the newest
// open slice of the matrix and purges the hits that expired.
func (f *PixelFrontEnd) Latch(
	start, end sim.VTimeInNs,
	matrix *PixelMatrix,
) error {
	for _, h := range f.hits {
		if !h.ActiveDuring(start, end) {
			continue
		}

		if err := matrix.SetPixel(h.Col, h.Row); err != nil {
			return err
		}
	}

	f.RemoveInactiveHits(end)

	return nil
}

// Clear drops all pending hits.
func (f *PixelFrontEnd) Clear() {
	f.hits = nil
}
