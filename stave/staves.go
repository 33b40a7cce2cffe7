package stave

import "github.com/sarchlab/alpidesim/alpide"

// SingleChip is a stave of one inner barrel chip.
type SingleChip struct {
	base
}

// Chip returns the chip.
func (s *SingleChip) Chip() *alpide.Chip {
	return s.chips[0]
}

// InnerBarrelStave has one control link to all chips and one data link per
// chip.
type InnerBarrelStave struct {
	base
}

// HalfModule is an outer barrel half-module. The slaves send their data
// through the master's data link.
type HalfModule struct {
	base
	master *alpide.Chip
}

// Master returns the chip that drives the data link.
func (h *HalfModule) Master() *alpide.Chip {
	return h.master
}

// Slaves returns the chips that send through the master.
func (h *HalfModule) Slaves() []*alpide.Chip {
	return h.chips[1:]
}

// MBOBStave is a middle or outer barrel stave made of half-modules.
type MBOBStave struct {
	base
	modules     int
	halfModules []*HalfModule
}

// HalfModules returns the half-modules in data link order.
func (s *MBOBStave) HalfModules() []*HalfModule {
	return s.halfModules
}

// NumModules returns the number of modules of the stave.
func (s *MBOBStave) NumModules() int {
	return s.modules
}

// FocalInnerStave is an inner barrel module plus an outer barrel
// half-module.
type FocalInnerStave struct {
	base
	obModule *HalfModule
}

// OBModule returns the outer barrel half-module.
func (s *FocalInnerStave) OBModule() *HalfModule {
	return s.obModule
}

// FocalOuterStave is made of three outer barrel modules.
type FocalOuterStave struct {
	base
	modules []*HalfModule
}

// Modules returns the modules in data link order.
func (s *FocalOuterStave) Modules() []*HalfModule {
	return s.modules
}
