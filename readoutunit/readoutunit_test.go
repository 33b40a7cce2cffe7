package readoutunit

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stave"
)

var _ = Describe("ReadoutUnit", func() {
	var (
		engine *sim.SerialEngine
		ctx    *sim.Context
	)

	BeforeEach(func() {
		engine, ctx = newTestContext()
	})

	staveBuilder := func() stave.Builder {
		return stave.MakeBuilder().WithContext(ctx)
	}

	run := func(until sim.VTimeInNs) error {
		sim.ScheduleStop(engine, until)
		return engine.Run()
	}

	Context("trigger filtering", func() {
		It("should filter triggers that come too close", func() {
			st := staveBuilder().BuildSingleChip("Stave")
			ru := MakeBuilder().
				WithContext(ctx).
				WithTriggerFilter(true, 10000).
				WithSaveFrames(true).
				Build(0, 0, st)

			for i, t := range []sim.VTimeInNs{0, 5000, 12000, 15000} {
				trigID := uint64(i + 1)
				sim.ScheduleFunc(engine, t, func(now sim.VTimeInNs) error {
					return ru.Trigger(now, trigID)
				})
			}

			Expect(run(40000)).To(Succeed())

			Expect(ru.TriggerActions()).To(Equal([][]TriggerAction{
				{TriggerSent}, {TriggerFiltered}, {TriggerSent}, {TriggerFiltered},
			}))
			Expect(st.Chip().Stats().TriggersReceived).To(Equal(uint64(2)))
			Expect(ru.TriggerStats()).To(Equal([]TriggerStats{{
				Received: 4,
				Sent:     2,
				Filtered: 2,
			}}))

			frames := ru.Parsers()[0].Frames()
			Expect(frames).To(HaveLen(2))
			Expect(frames[0].TriggerID).To(Equal(uint64(1)))
			Expect(frames[1].TriggerID).To(Equal(uint64(3)))
		})

		It("should send every trigger when filtering is off", func() {
			st := staveBuilder().BuildInnerBarrelStave("Stave", 3)
			ru := MakeBuilder().WithContext(ctx).Build(0, 0, st)

			Expect(ru.Trigger(0, 1)).To(Succeed())
			Expect(ru.Trigger(25, 2)).To(Succeed())

			Expect(ru.TriggerActions()).To(Equal([][]TriggerAction{
				{TriggerSent}, {TriggerSent},
			}))

			for _, c := range st.Chips() {
				Expect(c.Stats().TriggersReceived).To(Equal(uint64(2)))
			}
		})
	})

	It("should wrap the trigger id increment to 16 bits", func() {
		st := staveBuilder().BuildSingleChip("Stave")
		ru := MakeBuilder().WithContext(ctx).WithSaveFrames(true).Build(0, 0, st)

		sim.ScheduleFunc(engine, 0, func(now sim.VTimeInNs) error {
			return ru.Trigger(now, 1)
		})
		sim.ScheduleFunc(engine, 10000, func(now sim.VTimeInNs) error {
			return ru.Trigger(now, 70000)
		})

		Expect(run(30000)).To(Succeed())

		frames := ru.Parsers()[0].Frames()
		Expect(frames).To(HaveLen(2))
		Expect(frames[1].TriggerID).To(Equal(uint64(1 + (69999 % 65536))))
	})

	It("should hold back triggers on busy links", func() {
		st := staveBuilder().BuildInnerBarrelStave("Stave", 2)
		ru := MakeBuilder().
			WithContext(ctx).
			WithBusyTriggerHold(true).
			Build(1, 2, st)

		Expect(ru.Name()).To(Equal("RU_1_2"))

		sendWord(ru.Parsers()[1], 0, alpide.BusyOnWord())
		Expect(ru.Trigger(0, 1)).To(Succeed())

		Expect(ru.TriggerActions()).To(Equal([][]TriggerAction{
			{TriggerNotSentBusy},
		}))
		Expect(ru.TriggerStats()[0].NotSentBusy).To(Equal(uint64(1)))

		sendWord(ru.Parsers()[1], 100, alpide.BusyOffWord())
		Expect(ru.Trigger(100, 2)).To(Succeed())

		Expect(ru.TriggerActions()[1]).To(Equal([]TriggerAction{TriggerSent}))
		Expect(st.Chips()[0].Stats().TriggersReceived).To(Equal(uint64(1)))
	})

	It("should become locally busy above the threshold", func() {
		st := staveBuilder().BuildInnerBarrelStave("Stave", 3)
		ru := MakeBuilder().WithContext(ctx).WithBusyThreshold(1).Build(0, 0, st)

		sendWord(ru.Parsers()[0], 0, alpide.BusyOnWord())
		Expect(ru.BusyLinkCount()).To(Equal(1))
		Expect(ru.State()).To(Equal(StateNormal))

		sendWord(ru.Parsers()[2], 25, alpide.BusyOnWord())
		Expect(ru.BusyLinkCount()).To(Equal(2))
		Expect(ru.State()).To(Equal(StateLocalBusy))

		sendWord(ru.Parsers()[0], 50, alpide.BusyOffWord())
		Expect(ru.State()).To(Equal(StateNormal))
	})

	It("should reset the chips", func() {
		st := staveBuilder().BuildSingleChip("Stave")
		ru := MakeBuilder().WithContext(ctx).Build(0, 0, st)

		Expect(ru.Trigger(0, 1)).To(Succeed())
		Expect(st.Chip().NumMEBsInUse()).To(Equal(1))

		Expect(ru.ResetReadout()).To(Succeed())
		Expect(st.Chip().NumMEBsInUse()).To(Equal(0))
	})

	Context("busy ring", func() {
		var rus []*ReadoutUnit

		BeforeEach(func() {
			rus = nil
			for i := 0; i < 3; i++ {
				st := staveBuilder().BuildSingleChip("Stave")
				rus = append(rus, MakeBuilder().WithContext(ctx).Build(0, i, st))
			}

			ConnectRing(rus)
		})

		It("should consume a word when it returns to its origin", func() {
			a, b, c := rus[0], rus[1], rus[2]

			sim.ScheduleFunc(engine, 100, func(now sim.VTimeInNs) error {
				sendWord(b.Parsers()[0], now, alpide.BusyOnWord())
				return nil
			})

			Expect(run(2000)).To(Succeed())

			Expect(b.State()).To(Equal(StateLocalBusy))
			Expect(a.State()).To(Equal(StateNormal))

			for _, ru := range rus {
				Expect(ru.GlobalBusy()).To(BeTrue())
				Expect(ru.BusyIn().Size()).To(BeZero())
			}

			Expect(b.RingStats()).To(Equal(RingStats{
				Originated: 1, Forwarded: 1, Consumed: 1,
			}))
			Expect(c.RingStats()).To(Equal(RingStats{Forwarded: 2}))
			Expect(a.RingStats()).To(Equal(RingStats{
				Originated: 1, Forwarded: 1, Consumed: 1,
			}))
		})

		It("should send only the global status when the master is busy", func() {
			a, b, c := rus[0], rus[1], rus[2]

			sim.ScheduleFunc(engine, 100, func(now sim.VTimeInNs) error {
				sendWord(a.Parsers()[0], now, alpide.BusyOnWord())
				return nil
			})

			Expect(run(2000)).To(Succeed())

			for _, ru := range rus {
				Expect(ru.GlobalBusy()).To(BeTrue())
			}

			Expect(a.RingStats()).To(Equal(RingStats{Originated: 1, Consumed: 1}))
			Expect(b.RingStats()).To(Equal(RingStats{Forwarded: 1}))
			Expect(c.RingStats()).To(Equal(RingStats{Forwarded: 1}))
		})

		It("should clear the global busy when the last unit releases", func() {
			b := rus[1]

			sim.ScheduleFunc(engine, 100, func(now sim.VTimeInNs) error {
				sendWord(b.Parsers()[0], now, alpide.BusyOnWord())
				return nil
			})
			sim.ScheduleFunc(engine, 1000, func(now sim.VTimeInNs) error {
				sendWord(b.Parsers()[0], now, alpide.BusyOffWord())
				return nil
			})

			Expect(run(3000)).To(Succeed())

			for _, ru := range rus {
				Expect(ru.GlobalBusy()).To(BeFalse())
			}
		})

		It("should report a ring overflow", func() {
			b := rus[1]

			sim.ScheduleFunc(engine, 100, func(now sim.VTimeInNs) error {
				p := b.Parsers()[0]
				sendWord(p, now, alpide.BusyOnWord())
				sendWord(p, now, alpide.BusyOffWord())
				sendWord(p, now, alpide.BusyOnWord())
				sendWord(p, now, alpide.BusyOffWord())

				return nil
			})

			err := run(2000)

			Expect(err).To(HaveOccurred())
			kind, ok := sim.KindOf(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(sim.ConfigError))
		})
	})

	Context("busy ring of one unit", func() {
		var ru *ReadoutUnit

		BeforeEach(func() {
			st := staveBuilder().BuildSingleChip("Stave")
			ru = MakeBuilder().WithContext(ctx).Build(0, 0, st)
			ConnectRing([]*ReadoutUnit{ru})
		})

		It("should follow its own busy without ring traffic", func() {
			p := ru.Parsers()[0]
			var busyAt500 bool

			sim.ScheduleFunc(engine, 100, func(now sim.VTimeInNs) error {
				sendWord(p, now, alpide.BusyOnWord())
				return nil
			})
			sim.ScheduleFunc(engine, 500, func(sim.VTimeInNs) error {
				busyAt500 = ru.GlobalBusy()
				return nil
			})
			sim.ScheduleFunc(engine, 1000, func(now sim.VTimeInNs) error {
				sendWord(p, now, alpide.BusyOffWord())
				return nil
			})

			Expect(run(2000)).To(Succeed())

			Expect(busyAt500).To(BeTrue())
			Expect(ru.GlobalBusy()).To(BeFalse())
			Expect(ru.BusyIn()).To(BeNil())
			Expect(ru.RingStats()).To(Equal(RingStats{}))
		})

		It("should survive many busy changes in one cycle", func() {
			sim.ScheduleFunc(engine, 100, func(now sim.VTimeInNs) error {
				p := ru.Parsers()[0]
				for i := 0; i < 4; i++ {
					sendWord(p, now, alpide.BusyOnWord())
					sendWord(p, now, alpide.BusyOffWord())
				}

				return nil
			})

			Expect(run(2000)).To(Succeed())
			Expect(ru.GlobalBusy()).To(BeFalse())
		})
	})
})
