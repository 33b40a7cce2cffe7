package alpide

import (
	"fmt"

	"github.com/sarchlab/alpidesim/sim"
)

type rruState int

const (
	rruIdle rruState = iota
	rruStart
	rruClustering
	rruTrailer
)

// RegionReadoutUnit reads the hits of one region of the oldest slice,
// encodes them into DATA_SHORT and DATA_LONG words, and buffers the words in
// the region FIFO. A REGION_TRAILER marker closes every frame.
type RegionReadoutUnit struct {
	region         int
	matrix         *PixelMatrix
	fifo           sim.Buffer
	clustering     bool
	cyclesPerPixel int

	state      rruState
	delay      int
	frameDone  bool
	headerSent bool

	clusterStarted bool
	clusterEncoder int
	clusterAddr    int
	clusterHitmap  byte
}

// NewRegionReadoutUnit creates the readout unit of a region.
func NewRegionReadoutUnit(
	name string,
	region int,
	matrix *PixelMatrix,
	fifoSize int,
	clustering bool,
	fastReadout bool,
) *RegionReadoutUnit {
	u := &RegionReadoutUnit{
		region:         region,
		matrix:         matrix,
		fifo:           sim.NewBuffer(fmt.Sprintf("%s.RRU[%d]", name, region), fifoSize),
		clustering:     clustering,
		cyclesPerPixel: 4,
		frameDone:      true,
	}

	if fastReadout {
		u.cyclesPerPixel = 2
	}

	return u
}

// Region returns the region index.
func (u *RegionReadoutUnit) Region() int {
	return u.region
}

// FIFO returns the region FIFO.
func (u *RegionReadoutUnit) FIFO() sim.Buffer {
	return u.fifo
}

// FrameDone tells if the unit has pushed the trailer of the current frame.
func (u *RegionReadoutUnit) FrameDone() bool {
	return u.frameDone
}

// FIFOFull tells if the region FIFO cannot accept more words.
func (u *RegionReadoutUnit) FIFOFull() bool {
	return !u.fifo.CanPush()
}

func (u *RegionReadoutUnit) reading() bool {
	return u.state != rruIdle
}

// Valid tells if the region still has data words for the frame currently at
// the head of the region FIFO.
func (u *RegionReadoutUnit) Valid() bool {
	head, ok := u.Head()
	if ok {
		return head.Type != RegionTrailer
	}

	return u.clusterStarted || u.reading()
}

// Head returns the word at the head of the region FIFO.
func (u *RegionReadoutUnit) Head() (DataWord, bool) {
	w := u.fifo.Peek()
	if w == nil {
		return DataWord{}, false
	}

	return w.(DataWord), true
}

// Pop removes the word at the head of the region FIFO.
func (u *RegionReadoutUnit) Pop() (DataWord, bool) {
	w := u.fifo.Pop()
	if w == nil {
		return DataWord{}, false
	}

	return w.(DataWord), true
}

func (u *RegionReadoutUnit) tick(frameStart, abort bool) bool {
	if abort {
		u.abort()
		return false
	}

	switch u.state {
	case rruIdle:
		if frameStart {
			u.frameDone = false
			u.state = rruStart
			return true
		}
	case rruStart:
		u.delay = 0
		if u.matrix.RegionEmpty(u.region) {
			u.state = rruTrailer
		} else {
			u.state = rruClustering
		}

		return true
	case rruClustering:
		return u.readoutClustering()
	case rruTrailer:
		if u.fifo.CanPush() {
			u.fifo.Push(RegionTrailerWord())
			u.frameDone = true
			u.state = rruIdle

			return true
		}
	}

	return false
}

func (u *RegionReadoutUnit) readoutClustering() bool {
	if u.delay > 0 {
		u.delay--
		return true
	}

	if !u.fifo.CanPush() {
		return false
	}

	p, ok := u.matrix.ReadPixelRegion(u.region)
	if !ok {
		if u.clusterStarted {
			u.flushCluster()
		}

		u.state = rruTrailer

		return true
	}

	u.processPixel(p)
	u.delay = u.cyclesPerPixel - 1

	return true
}

func (u *RegionReadoutUnit) processPixel(p PixelHit) {
	encoder, addr := p.PriorityEncoder(), p.Address()

	if !u.clustering {
		u.fifo.Push(DataShortWord(encoder, addr))
		return
	}

	if u.clusterStarted &&
		encoder == u.clusterEncoder &&
		addr > u.clusterAddr &&
		addr <= u.clusterAddr+DataLongPixmapSize {
		u.clusterHitmap |= 1 << uint(addr-u.clusterAddr-1)

		if u.clusterHitmap&(1<<(DataLongPixmapSize-1)) != 0 {
			u.flushCluster()
		}

		return
	}

	if u.clusterStarted {
		u.flushCluster()
	}

	u.clusterStarted = true
	u.clusterEncoder = encoder
	u.clusterAddr = addr
	u.clusterHitmap = 0
}

func (u *RegionReadoutUnit) flushCluster() {
	if u.clusterHitmap == 0 {
		u.fifo.Push(DataShortWord(u.clusterEncoder, u.clusterAddr))
	} else {
		u.fifo.Push(DataLongWord(u.clusterEncoder, u.clusterAddr, u.clusterHitmap))
	}

	u.clusterStarted = false
	u.clusterHitmap = 0
}

func (u *RegionReadoutUnit) abort() {
	u.fifo.Clear()
	u.state = rruIdle
	u.delay = 0
	u.frameDone = true
	u.headerSent = false
	u.clusterStarted = false
	u.clusterHitmap = 0
}
