package stave

import (
	"fmt"

	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/sim"
)

// Chip counts of the ITS and FoCal staves.
const (
	ITSInnerBarrelChips   = 9
	ITSHalfModuleSlaves   = 6
	FocalInnerIBChips     = 8
	FocalInnerOBSlaves    = 6
	FocalOuterModules     = 3
	FocalOuterModuleSlave = 4
)

// GlobalIDFunc maps a chip placement to the detector-wide chip id.
type GlobalIDFunc func(p Placement) int

// Builder builds staves from a chip template.
type Builder struct {
	chipBuilder alpide.Builder
	globalID    GlobalIDFunc
}

// MakeBuilder returns a Builder that numbers chips by module chip index.
func MakeBuilder() Builder {
	return Builder{
		chipBuilder: alpide.MakeBuilder(),
		globalID: func(p Placement) int {
			return p.ModuleChip
		},
	}
}

// WithContext sets the simulation context of the chips.
func (b Builder) WithContext(ctx *sim.Context) Builder {
	b.chipBuilder = b.chipBuilder.WithContext(ctx)
	return b
}

// WithChipBuilder sets the template used for every chip.
func (b Builder) WithChipBuilder(cb alpide.Builder) Builder {
	b.chipBuilder = cb
	return b
}

// WithGlobalIDFunc sets how chips are numbered in the detector.
func (b Builder) WithGlobalIDFunc(f GlobalIDFunc) Builder {
	b.globalID = f
	return b
}

func (b Builder) buildIBChip(name string, p Placement, chipID int) *alpide.Chip {
	return b.chipBuilder.
		WithIBMode().
		WithChipID(chipID, b.globalID(p)).
		Build(name)
}

// BuildSingleChip builds a stave of one inner barrel chip.
func (b Builder) BuildSingleChip(name string) *SingleChip {
	s := &SingleChip{base: newBase(name)}

	p := Placement{}
	c := b.buildIBChip(name+".Chip", p, 0)
	s.addChip(c, p)
	s.addIBChips(name+".CtrlLink", []*alpide.Chip{c})

	return s
}

// BuildInnerBarrelStave builds a stave of n inner barrel chips on one control
// link, each with its own data link.
func (b Builder) BuildInnerBarrelStave(name string, n int) *InnerBarrelStave {
	s := &InnerBarrelStave{base: newBase(name)}

	chips := make([]*alpide.Chip, n)
	for i := range chips {
		p := Placement{ModuleChip: i}
		chips[i] = b.buildIBChip(fmt.Sprintf("%s.Chip[%d]", name, i), p, i)
		s.addChip(chips[i], p)
	}

	s.addIBChips(name+".CtrlLink", chips)

	return s
}

// BuildHalfModule builds an outer barrel half-module: one master and n slaves
// sharing the master's data link. first is the placement of the master and
// chipID its 4-bit chip id; the slaves follow it in ModuleChip and chip id
// order.
func (b Builder) BuildHalfModule(
	name string,
	first Placement,
	chipID int,
	n int,
) *HalfModule {
	hm := &HalfModule{base: newBase(name)}

	master := b.chipBuilder.
		WithOBMode(true).
		WithChipID(chipID, b.globalID(first)).
		Build(fmt.Sprintf("%s.Master", name))
	hm.addChip(master, first)
	hm.master = master

	for i := 1; i <= n; i++ {
		p := first
		p.ModuleChip = first.ModuleChip + i
		slave := b.chipBuilder.
			WithOBMode(false).
			WithChipID(chipID+i, b.globalID(p)).
			Build(fmt.Sprintf("%s.Slave[%d]", name, i))

		if err := master.AttachSlave(slave); err != nil {
			panic(err)
		}

		hm.addChip(slave, p)
	}

	hm.ctrlLinks = []*ControlLink{{
		name:      name + ".CtrlLink",
		chips:     hm.chips,
		dataLinks: []int{0},
	}}
	hm.dataLinks = []*alpide.Chip{master}

	return hm
}

// BuildMBOBStave builds a middle or outer barrel stave. The modules are split
// over two sub-staves and every module holds two half-modules of 7 chips.
// The chips of a module are placed at ModuleChip 0 to 13; their chip ids are
// 0 to 6 and 8 to 14.
func (b Builder) BuildMBOBStave(name string, modules int) *MBOBStave {
	s := &MBOBStave{base: newBase(name), modules: modules}
	perSubStave := (modules + 1) / 2

	for m := 0; m < modules; m++ {
		for h := 0; h < 2; h++ {
			first := Placement{
				SubStave:   m / perSubStave,
				Module:     m % perSubStave,
				ModuleChip: h * (ITSHalfModuleSlaves + 1),
			}
			hmName := fmt.Sprintf("%s.HS[%d].Module[%d].HM[%d]",
				name, first.SubStave, first.Module, h)
			hm := b.BuildHalfModule(hmName, first, h*8, ITSHalfModuleSlaves)

			s.halfModules = append(s.halfModules, hm)
			s.addHalfModule(hmName+".CtrlLink", hm)
		}
	}

	return s
}

// BuildFocalInnerStave builds a FoCal inner stave: an 8-chip inner barrel
// module and a 7-chip outer barrel half-module.
func (b Builder) BuildFocalInnerStave(name string) *FocalInnerStave {
	s := &FocalInnerStave{base: newBase(name)}

	chips := make([]*alpide.Chip, FocalInnerIBChips)
	for i := range chips {
		p := Placement{Module: 0, ModuleChip: i}
		chips[i] = b.buildIBChip(fmt.Sprintf("%s.IB.Chip[%d]", name, i), p, i)
		s.addChip(chips[i], p)
	}

	s.addIBChips(name+".IB.CtrlLink", chips)

	hmName := name + ".OB"
	s.obModule = b.BuildHalfModule(hmName,
		Placement{Module: 1, ModuleChip: 0}, 0, FocalInnerOBSlaves)
	s.addHalfModule(hmName+".CtrlLink", s.obModule)

	return s
}

// BuildFocalOuterStave builds a FoCal outer stave of three 5-chip outer
// barrel modules.
func (b Builder) BuildFocalOuterStave(name string) *FocalOuterStave {
	s := &FocalOuterStave{base: newBase(name)}

	for m := 0; m < FocalOuterModules; m++ {
		hmName := fmt.Sprintf("%s.Module[%d]", name, m)
		hm := b.BuildHalfModule(hmName,
			Placement{Module: m, ModuleChip: 0}, 0, FocalOuterModuleSlave)

		s.modules = append(s.modules, hm)
		s.addHalfModule(hmName+".CtrlLink", hm)
	}

	return s
}
