package alpide

import "math/bits"

// DoubleColumn holds the hits of two adjacent pixel columns. Hits are stored
// by priority encoder address, so the readout order is the address order.
type DoubleColumn struct {
	bits [PixelsPerDoubleCol / 64]uint64
	n    int
}

// SetPixel marks the pixel as hit. It returns false if the pixel was already
// set.
func (d *DoubleColumn) SetPixel(colLSB, row int) bool {
	addr := PixelAddress(colLSB, row)
	word, bit := addr/64, uint(addr%64)

	if d.bits[word]&(1<<bit) != 0 {
		return false
	}

	d.bits[word] |= 1 << bit
	d.n++

	return true
}

// Size returns the number of hits in the double column.
func (d *DoubleColumn) Size() int {
	return d.n
}

// Empty tells if there are no hits left.
func (d *DoubleColumn) Empty() bool {
	return d.n == 0
}

// ReadPixel removes and returns the hit with the lowest priority encoder
// address as (colLSB, row).
func (d *DoubleColumn) ReadPixel() (colLSB, row int, ok bool) {
	if d.n == 0 {
		return 0, 0, false
	}

	for i, w := range d.bits {
		if w == 0 {
			continue
		}

		bit := bits.TrailingZeros64(w)
		d.bits[i] &^= 1 << uint(bit)
		d.n--

		addr := i*64 + bit
		row = addr >> 1
		colLSB = (addr & 1) ^ (row & 1)

		return colLSB, row, true
	}

	return 0, 0, false
}

// Clear removes all the hits.
func (d *DoubleColumn) Clear() {
	d.bits = [PixelsPerDoubleCol / 64]uint64{}
	d.n = 0
}
