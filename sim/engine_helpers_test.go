package sim

import (
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Engine helpers", func() {
	ginkgo.It("should stop after the primary events of the stop time", func() {
		engine := NewSerialEngine()
		var handled []VTimeInNs

		record := func(now VTimeInNs) error {
			handled = append(handled, now)
			return nil
		}

		ScheduleFunc(engine, 10, record)
		ScheduleStop(engine, 20)
		ScheduleFunc(engine, 20, record)
		ScheduleFunc(engine, 30, record)

		Expect(engine.Run()).To(Succeed())
		Expect(handled).To(Equal([]VTimeInNs{10, 20}))
		Expect(engine.PendingEvents()).To(Equal(1))

		Expect(engine.Run()).To(Succeed())
		Expect(handled).To(Equal([]VTimeInNs{10, 20, 30}))
	})
})
