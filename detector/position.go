// Package detector describes the detectors that can be simulated, maps chip
// positions to global chip ids, and builds the staves and Readout Units of a
// detector.
package detector

import "fmt"

// Type names a detector layout.
type Type string

// Detector types.
const (
	TypeITS   Type = "its"
	TypePCT   Type = "pct"
	TypeFocal Type = "focal"
)

// Position locates a chip in a detector.
type Position struct {
	Layer      int
	Stave      int
	SubStave   int
	Module     int
	ModuleChip int
}

func (p Position) String() string {
	return fmt.Sprintf("L%d_S%d_SS%d_M%d_C%d",
		p.Layer, p.Stave, p.SubStave, p.Module, p.ModuleChip)
}

// StaveID identifies a stave of a detector.
type StaveID struct {
	Layer int
	Stave int
}

// RUName returns the name of the Readout Unit of the stave.
func (s StaveID) RUName() string {
	return fmt.Sprintf("RU_%d_%d", s.Layer, s.Stave)
}
