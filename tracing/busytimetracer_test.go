package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/alpidesim/sim"
)

var _ = Describe("BusyTimeTracer", func() {
	var t *BusyTimeTracer

	start := func(id string, at sim.VTimeInNs) {
		t.StartInterval(Interval{ID: id, Kind: KindChipBusy, Start: at})
	}

	end := func(id string, at sim.VTimeInNs) {
		t.EndInterval(Interval{ID: id, Kind: KindChipBusy, End: at})
	}

	BeforeEach(func() {
		t = NewBusyTimeTracer(nil)
	})

	It("should track busy time, one interval", func() {
		start("1", 100)
		end("1", 200)

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(100)))
	})

	It("should track busy time, two intervals", func() {
		start("1", 100)
		end("1", 200)
		start("2", 300)
		end("2", 400)

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(200)))
	})

	It("should track busy time, two intervals adjacent", func() {
		start("1", 100)
		end("1", 200)
		start("2", 200)
		end("2", 300)

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(200)))
	})

	It("should track busy time, two intervals overlap", func() {
		start("1", 100)
		start("2", 150)
		end("1", 200)

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(0)))

		end("2", 250)

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(150)))
	})

	It("should track busy time, one interval inside another", func() {
		start("1", 100)
		start("2", 150)
		end("2", 200)
		end("1", 400)

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(300)))
	})

	It("should end open intervals on terminate", func() {
		start("1", 100)
		start("2", 300)
		end("1", 200)

		t.Terminate(1000)

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(800)))
	})

	It("should ignore filtered intervals", func() {
		t = NewBusyTimeTracer(KindFilter(KindLinkBusy))

		start("1", 100)
		end("1", 200)
		t.StartInterval(Interval{ID: "2", Kind: KindLinkBusy, Start: 300})
		t.EndInterval(Interval{ID: "2", Kind: KindLinkBusy, End: 350})

		Expect(t.BusyTime()).To(Equal(sim.VTimeInNs(50)))
	})
})
