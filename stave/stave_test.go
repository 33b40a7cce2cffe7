package stave

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/sim"
)

var _ = Describe("Stave", func() {
	var (
		engine  *sim.SerialEngine
		builder Builder
	)

	BeforeEach(func() {
		engine, builder = newTestBuilder()
	})

	countLinkChips := func(s Stave) int {
		n := 0
		for _, l := range s.ControlLinks() {
			n += len(l.Chips())
		}

		return n
	}

	It("should build a single chip", func() {
		s := builder.BuildSingleChip("Single")

		Expect(s.Chips()).To(HaveLen(1))
		Expect(s.ControlLinks()).To(HaveLen(1))
		Expect(s.DataLinks()).To(Equal([]*alpide.Chip{s.Chip()}))
		Expect(s.Chip().IsOBMaster()).To(BeFalse())
	})

	It("should build an inner barrel stave", func() {
		s := builder.BuildInnerBarrelStave("IB", ITSInnerBarrelChips)

		Expect(s.Chips()).To(HaveLen(9))
		Expect(s.ControlLinks()).To(HaveLen(1))
		Expect(s.DataLinks()).To(HaveLen(9))
		Expect(s.ControlLinks()[0].DataLinks()).
			To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8}))

		for i, c := range s.Chips() {
			Expect(c.ChipID()).To(Equal(i))
			p, ok := s.Placement(c)
			Expect(ok).To(BeTrue())
			Expect(p.ModuleChip).To(Equal(i))
		}
	})

	It("should build a half-module", func() {
		hm := builder.BuildHalfModule("HM", Placement{ModuleChip: 7}, 8, 6)

		Expect(hm.Chips()).To(HaveLen(7))
		Expect(hm.Slaves()).To(HaveLen(6))
		Expect(hm.Master().IsOBMaster()).To(BeTrue())
		Expect(hm.DataLinks()).To(Equal([]*alpide.Chip{hm.Master()}))

		for i, c := range hm.Chips() {
			Expect(c.ChipID()).To(Equal(8 + i))
			p, _ := hm.Placement(c)
			Expect(p.ModuleChip).To(Equal(7 + i))
		}

		for _, c := range hm.Slaves() {
			Expect(c.IsOBSlave()).To(BeTrue())
		}
	})

	It("should split a middle barrel stave into sub-staves", func() {
		s := builder.BuildMBOBStave("MB", 4)

		Expect(s.NumModules()).To(Equal(4))
		Expect(s.HalfModules()).To(HaveLen(8))
		Expect(s.Chips()).To(HaveLen(56))
		Expect(s.ControlLinks()).To(HaveLen(8))
		Expect(s.DataLinks()).To(HaveLen(8))
		Expect(countLinkChips(s)).To(Equal(56))

		last := s.HalfModules()[7].Master()
		p, ok := s.Placement(last)
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(Placement{SubStave: 1, Module: 1, ModuleChip: 7}))
		Expect(last.ChipID()).To(Equal(8))
	})

	It("should build a FoCal inner stave", func() {
		s := builder.BuildFocalInnerStave("FI")

		Expect(s.Chips()).To(HaveLen(15))
		Expect(s.ControlLinks()).To(HaveLen(2))
		Expect(s.DataLinks()).To(HaveLen(9))
		Expect(s.DataLinks()[8]).To(BeIdenticalTo(s.OBModule().Master()))
		Expect(s.ControlLinks()[1].DataLinks()).To(Equal([]int{8}))
	})

	It("should build a FoCal outer stave", func() {
		s := builder.BuildFocalOuterStave("FO")

		Expect(s.Chips()).To(HaveLen(15))
		Expect(s.Modules()).To(HaveLen(3))
		Expect(s.ControlLinks()).To(HaveLen(3))
		Expect(s.DataLinks()).To(HaveLen(3))

		for i, l := range s.ControlLinks() {
			Expect(l.DataLinks()).To(Equal([]int{i}))
		}
	})

	It("should number chips with the global id function", func() {
		b := builder.WithGlobalIDFunc(func(p Placement) int {
			return 100 + p.Module*10 + p.ModuleChip
		})

		s := b.BuildFocalOuterStave("FO")

		Expect(s.Modules()[2].Slaves()[3].GlobalID()).To(Equal(124))
	})

	It("should fan out control commands to every chip", func() {
		s := builder.BuildInnerBarrelStave("IB", 3)

		Expect(s.ControlLinks()[0].Transport(alpide.TriggerCommand(1))).
			To(Succeed())

		for _, c := range s.Chips() {
			Expect(c.Stats().TriggersReceived).To(Equal(uint64(1)))
		}

		sim.ScheduleStop(engine, 1000)
		Expect(engine.Run()).To(Succeed())
	})

	It("should stop at the first chip that fails", func() {
		s := builder.BuildInnerBarrelStave("IB", 3)

		err := s.ControlLinks()[0].Transport(alpide.ControlCommand{
			Opcode: 0x99,
			ChipID: alpide.BroadcastChipID,
		})

		Expect(err).To(HaveOccurred())
		kind, ok := sim.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(sim.RuntimeModelError))
	})
})
