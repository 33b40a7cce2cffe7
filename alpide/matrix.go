package alpide

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/analysis"
	"github.com/sarchlab/alpidesim/sim"
)

// ErrAllSlicesInUse is returned when a slice is opened while all the multi
// event buffers hold a frame.
var ErrAllSlicesInUse = errors.New("all multi event buffers in use")

type regionBuffer struct {
	dcols [DoubleColsPerRegion]DoubleColumn
	hits  int
}

func (r *regionBuffer) clear() {
	for i := range r.dcols {
		r.dcols[i].Clear()
	}

	r.hits = 0
}

// Slice is one multi event buffer: a snapshot of the pixel matrix for one
// strobe window.
type Slice struct {
	TriggerID      uint64
	StrobeStart    sim.VTimeInNs
	StrobeEnd      sim.VTimeInNs
	BunchCounter   int
	StrobeExtended bool
	Closed         bool

	regions [NRegions]*regionBuffer
	hits    int
}

// Hits returns the number of hits left in the slice.
func (s *Slice) Hits() int {
	return s.hits
}

// PixelMatrix holds up to MEBCount slices. Slices are read out and removed in
// the order they were opened.
type PixelMatrix struct {
	slices []*Slice
	free   []*regionBuffer

	occupancy *analysis.LevelHistogram

	latchedHits   uint64
	duplicateHits uint64
}

// NewPixelMatrix creates an empty pixel matrix.
func NewPixelMatrix() *PixelMatrix {
	return &PixelMatrix{
		slices:    make([]*Slice, 0, MEBCount),
		occupancy: analysis.NewLevelHistogram(),
	}
}

// OpenSlice starts a new frame in a free multi event buffer.
func (m *PixelMatrix) OpenSlice(trigID uint64, now sim.VTimeInNs) (*Slice, error) {
	if len(m.slices) >= MEBCount {
		return nil, ErrAllSlicesInUse
	}

	s := &Slice{
		TriggerID:   trigID,
		StrobeStart: now,
	}
	m.slices = append(m.slices, s)
	m.occupancy.Update(now, len(m.slices))

	return s, nil
}

// CloseSlice ends the strobe window of the newest slice.
func (m *PixelMatrix) CloseSlice(now sim.VTimeInNs) error {
	s := m.Newest()
	if s == nil || s.Closed {
		return ErrNoOpenFrame
	}

	s.StrobeEnd = now
	s.Closed = true

	return nil
}

// SetPixel marks a pixel as hit in the newest open slice. Setting a pixel
// twice in a slice is counted as a duplicate and has no other effect.
func (m *PixelMatrix) SetPixel(col, row int) error {
	if err := checkCoordinate(col, row); err != nil {
		return err
	}

	s := m.Newest()
	if s == nil || s.Closed {
		return ErrNoOpenFrame
	}

	p := PixelHit{Col: col, Row: row}
	r := s.regions[p.Region()]
	if r == nil {
		r = m.allocRegion()
		s.regions[p.Region()] = r
	}

	if !r.dcols[p.PriorityEncoder()].SetPixel(col&1, row) {
		m.duplicateHits++
		return nil
	}

	r.hits++
	s.hits++
	m.latchedHits++

	return nil
}

func (m *PixelMatrix) allocRegion() *regionBuffer {
	if n := len(m.free); n > 0 {
		r := m.free[n-1]
		m.free = m.free[:n-1]

		return r
	}

	return new(regionBuffer)
}

func (m *PixelMatrix) releaseRegions(s *Slice) {
	for i, r := range s.regions {
		if r == nil {
			continue
		}

		r.clear()
		m.free = append(m.free, r)
		s.regions[i] = nil
	}

	s.hits = 0
}

// NumSlices returns the number of multi event buffers in use.
func (m *PixelMatrix) NumSlices() int {
	return len(m.slices)
}

// Oldest returns the slice that is read out next, or nil.
func (m *PixelMatrix) Oldest() *Slice {
	if len(m.slices) == 0 {
		return nil
	}

	return m.slices[0]
}

// Newest returns the most recently opened slice, or nil.
func (m *PixelMatrix) Newest() *Slice {
	if len(m.slices) == 0 {
		return nil
	}

	return m.slices[len(m.slices)-1]
}

// HitsRemainingInOldest returns the number of hits not yet read out from the
// oldest slice.
func (m *PixelMatrix) HitsRemainingInOldest() int {
	if s := m.Oldest(); s != nil {
		return s.hits
	}

	return 0
}

// TotalHits returns the number of hits in all slices.
func (m *PixelMatrix) TotalHits() int {
	n := 0
	for _, s := range m.slices {
		n += s.hits
	}

	return n
}

// RegionEmpty tells if a region of the oldest slice has no hits left.
func (m *PixelMatrix) RegionEmpty(region int) bool {
	s := m.Oldest()
	if s == nil {
		return true
	}

	r := s.regions[region]

	return r == nil || r.hits == 0
}

// ReadPixelRegion removes and returns the next hit of a region of the oldest
// slice. Double columns are read in ascending order and each double column
// in priority encoder order.
func (m *PixelMatrix) ReadPixelRegion(region int) (PixelHit, bool) {
	s := m.Oldest()
	if s == nil {
		return PixelHit{}, false
	}

	r := s.regions[region]
	if r == nil || r.hits == 0 {
		return PixelHit{}, false
	}

	for pe := range r.dcols {
		colLSB, row, ok := r.dcols[pe].ReadPixel()
		if !ok {
			continue
		}

		r.hits--
		s.hits--

		return PixelHit{
			Col: region*ColsPerRegion + pe*2 + colLSB,
			Row: row,
		}, true
	}

	return PixelHit{}, false
}

// ReadPixelFromOldest removes and returns the next hit of the oldest slice,
// scanning the regions in ascending order.
func (m *PixelMatrix) ReadPixelFromOldest() (PixelHit, bool) {
	for region := 0; region < NRegions; region++ {
		if p, ok := m.ReadPixelRegion(region); ok {
			return p, true
		}
	}

	return PixelHit{}, false
}

// FlushOldest drops the hits of the oldest slice. The slice itself stays in
// use until it is deleted.
func (m *PixelMatrix) FlushOldest() {
	if s := m.Oldest(); s != nil {
		m.releaseRegions(s)
	}
}

// DeleteOldest frees the oldest slice.
func (m *PixelMatrix) DeleteOldest(now sim.VTimeInNs) {
	if len(m.slices) == 0 {
		return
	}

	s := m.slices[0]
	m.releaseRegions(s)
	m.slices[0] = nil
	m.slices = m.slices[1:]
	m.occupancy.Update(now, len(m.slices))
}

// Clear frees all the slices.
func (m *PixelMatrix) Clear(now sim.VTimeInNs) {
	for len(m.slices) > 0 {
		m.DeleteOldest(now)
	}
}

// Occupancy returns the histogram of the time spent with each number of
// slices in use.
func (m *PixelMatrix) Occupancy() *analysis.LevelHistogram {
	return m.occupancy
}

// LatchedHits returns the number of hits stored in the matrix.
func (m *PixelMatrix) LatchedHits() uint64 {
	return m.latchedHits
}

// DuplicateHits returns the number of hits that were suppressed because the
// pixel was already set in the slice.
func (m *PixelMatrix) DuplicateHits() uint64 {
	return m.duplicateHits
}
