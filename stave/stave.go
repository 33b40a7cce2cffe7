// Package stave groups chips into the staves and modules of a detector and
// wires their control and data links.
package stave

import (
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/sim"
)

// Placement identifies a chip within a stave.
type Placement struct {
	SubStave   int
	Module     int
	ModuleChip int
}

// A Stave is a group of chips read out by one Readout Unit.
type Stave interface {
	sim.Named

	// Chips returns all the chips of the stave.
	Chips() []*alpide.Chip

	// ControlLinks returns the control links, in the order of the Readout
	// Unit ports.
	ControlLinks() []*ControlLink

	// DataLinks returns the chips that drive a data link, in the order of the
	// Readout Unit ports.
	DataLinks() []*alpide.Chip

	// Placement returns where a chip sits in the stave.
	Placement(chip *alpide.Chip) (Placement, bool)
}

// ControlLink fans a control command out to every chip on the link.
type ControlLink struct {
	name      string
	chips     []*alpide.Chip
	dataLinks []int
}

// Name returns the name of the link.
func (l *ControlLink) Name() string {
	return l.name
}

// Transport delivers the command to all the chips. It stops at the first
// chip that fails.
func (l *ControlLink) Transport(cmd alpide.ControlCommand) error {
	for _, c := range l.chips {
		if err := c.Transport(cmd); err != nil {
			return err
		}
	}

	return nil
}

// Chips returns the chips on the link.
func (l *ControlLink) Chips() []*alpide.Chip {
	return l.chips
}

// DataLinks returns the indices of the data links that carry the data of
// the chips on this control link.
func (l *ControlLink) DataLinks() []int {
	return l.dataLinks
}

// base implements the bookkeeping common to all staves.
type base struct {
	name       string
	chips      []*alpide.Chip
	ctrlLinks  []*ControlLink
	dataLinks  []*alpide.Chip
	placements map[*alpide.Chip]Placement
}

func newBase(name string) base {
	return base{
		name:       name,
		placements: make(map[*alpide.Chip]Placement),
	}
}

func (s *base) Name() string {
	return s.name
}

func (s *base) Chips() []*alpide.Chip {
	return s.chips
}

func (s *base) ControlLinks() []*ControlLink {
	return s.ctrlLinks
}

func (s *base) DataLinks() []*alpide.Chip {
	return s.dataLinks
}

func (s *base) Placement(chip *alpide.Chip) (Placement, bool) {
	p, ok := s.placements[chip]
	return p, ok
}

func (s *base) addChip(c *alpide.Chip, p Placement) {
	s.chips = append(s.chips, c)
	s.placements[c] = p
}

// addIBChips adds chips that each drive their own data link, all on one new
// control link.
func (s *base) addIBChips(linkName string, chips []*alpide.Chip) {
	link := &ControlLink{name: linkName, chips: chips}

	for _, c := range chips {
		link.dataLinks = append(link.dataLinks, len(s.dataLinks))
		s.dataLinks = append(s.dataLinks, c)
	}

	s.ctrlLinks = append(s.ctrlLinks, link)
}

// addHalfModule adds an outer barrel half-module. All its chips share one
// control link and the data link of the master.
func (s *base) addHalfModule(linkName string, hm *HalfModule) {
	link := &ControlLink{
		name:      linkName,
		chips:     hm.Chips(),
		dataLinks: []int{len(s.dataLinks)},
	}

	s.dataLinks = append(s.dataLinks, hm.Master())
	s.ctrlLinks = append(s.ctrlLinks, link)

	for _, c := range hm.Chips() {
		p, _ := hm.Placement(c)
		s.addChip(c, p)
	}
}
