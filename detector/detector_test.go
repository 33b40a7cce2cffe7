package detector

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/alpidesim/sim"
)

var _ = Describe("Detector", func() {
	var ctx *sim.Context

	BeforeEach(func() {
		ctx = newTestContext()
	})

	It("should build one Readout Unit per stave", func() {
		l, err := NewITSLayout([ITSNumLayers]int{2, 0, 0, 1})
		Expect(err).NotTo(HaveOccurred())

		d, err := MakeBuilder().WithContext(ctx).WithLayout(l).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(d.Staves()).To(HaveLen(3))
		Expect(d.NumChips()).To(Equal(2*9 + 112))

		var names []string
		for i, ru := range d.ReadoutUnits() {
			names = append(names, ru.Name())
			Expect(ru.Address()).To(Equal(i))
		}
		Expect(names).To(Equal([]string{"RU_0_0", "RU_0_1", "RU_3_0"}))

		Expect(d.ReadoutUnits()[2].Parsers()).To(HaveLen(16))
		Expect(d.ReadoutUnits()[2].NumControlLinks()).To(Equal(16))
	})

	It("should find chips by position", func() {
		l, _ := NewITSLayout([ITSNumLayers]int{0, 0, 0, 1})
		d, err := MakeBuilder().WithContext(ctx).WithLayout(l).Build()
		Expect(err).NotTo(HaveOccurred())

		pos := Position{Layer: 3, Stave: 0, SubStave: 1, Module: 3, ModuleChip: 9}
		c := d.ChipAt(pos)

		Expect(c).NotTo(BeNil())
		Expect(c.ChipID()).To(Equal(10))
		Expect(d.PositionOf(c)).To(Equal(pos))
		Expect(d.ReadoutUnitOf(c)).To(BeIdenticalTo(d.ReadoutUnits()[0]))
		Expect(d.ChipAt(Position{Layer: 4})).To(BeNil())
	})

	It("should build a FoCal detector", func() {
		l, _ := NewFocalLayout(1)
		d, err := MakeBuilder().WithContext(ctx).WithLayout(l).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(d.Staves()).To(HaveLen(8))
		Expect(d.NumChips()).To(Equal(8 * 15))
		Expect(d.ReadoutUnits()[0].Parsers()).To(HaveLen(9))
	})

	It("should build a single chip", func() {
		l, _ := NewPCTLayout(2, 2)
		d, err := MakeBuilder().
			WithContext(ctx).
			WithLayout(l).
			WithSingleChip(true).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(d.NumChips()).To(Equal(1))
		Expect(d.ReadoutUnits()).To(HaveLen(1))
		Expect(d.ReadoutUnits()[0].Name()).To(Equal("RU_0_0"))
		Expect(d.ChipAt(Position{})).To(BeIdenticalTo(d.Chip(0)))
	})

	It("should send triggers to every Readout Unit", func() {
		l, _ := NewPCTLayout(1, 2)
		d, _ := MakeBuilder().WithContext(ctx).WithLayout(l).Build()

		Expect(d.Trigger(0, 1)).To(Succeed())

		for _, c := range d.Chips() {
			Expect(c.Stats().TriggersReceived).To(Equal(uint64(1)))
		}
	})

	It("should fail without a layout", func() {
		_, err := MakeBuilder().WithContext(ctx).Build()
		expectConfigError(err)
	})
})
