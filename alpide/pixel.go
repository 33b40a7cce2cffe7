package alpide

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrBadCoordinate is returned when a pixel lies outside of the matrix.
var ErrBadCoordinate = errors.New("pixel coordinate out of range")

// ErrNoOpenFrame is returned when a pixel is set while no MEB slice is open.
var ErrNoOpenFrame = errors.New("no open frame")

// PixelHit is a pixel coordinate on a chip.
type PixelHit struct {
	Col int
	Row int
}

func (p PixelHit) String() string {
	return fmt.Sprintf("(%d,%d)", p.Col, p.Row)
}

// Valid tells if the pixel lies inside the matrix.
func (p PixelHit) Valid() bool {
	return p.Col >= 0 && p.Col < NCols && p.Row >= 0 && p.Row < NRows
}

func checkCoordinate(col, row int) error {
	if col < 0 || col >= NCols || row < 0 || row >= NRows {
		return errors.Wrapf(ErrBadCoordinate, "col %d row %d", col, row)
	}

	return nil
}

// Region returns the readout region of the pixel.
func (p PixelHit) Region() int {
	return p.Col / ColsPerRegion
}

// DoubleColumn returns the global double column index of the pixel.
func (p PixelHit) DoubleColumn() int {
	return p.Col / 2
}

// PriorityEncoder returns the double column of the pixel within its region.
func (p PixelHit) PriorityEncoder() int {
	return (p.Col % ColsPerRegion) / 2
}

// Address returns the priority encoder address of the pixel within its
// double column. Addresses enumerate the pixels in readout order.
func (p PixelHit) Address() int {
	return PixelAddress(p.Col&1, p.Row)
}

// PixelAddress returns the priority encoder address of the pixel at row in
// the double column column colLSB.
func PixelAddress(colLSB, row int) int {
	return row*2 + ((colLSB & 1) ^ (row & 1))
}

// DecodePixel reconstructs the pixel from the region, priority encoder and
// address fields of a data word.
func DecodePixel(region, encoder, addr int) PixelHit {
	row := addr >> 1
	colLSB := (addr & 1) ^ (row & 1)

	return PixelHit{
		Col: region*ColsPerRegion + encoder*2 + colLSB,
		Row: row,
	}
}
