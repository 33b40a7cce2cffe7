package sim

import (
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type testEvent struct {
	*EventBase
	label string
}

func newTestEvent(t VTimeInNs, label string) testEvent {
	return testEvent{EventBase: NewEventBase(t, nil), label: label}
}

var _ = ginkgo.Describe("EventQueueImpl", func() {
	var queue *EventQueueImpl

	ginkgo.BeforeEach(func() {
		queue = NewEventQueue()
	})

	ginkgo.It("should pop in time order", func() {
		queue.Push(newTestEvent(20, "b"))
		queue.Push(newTestEvent(10, "a"))
		queue.Push(newTestEvent(30, "c"))

		Expect(queue.Len()).To(Equal(3))
		Expect(queue.Peek().(testEvent).label).To(Equal("a"))
		Expect(queue.Pop().(testEvent).label).To(Equal("a"))
		Expect(queue.Pop().(testEvent).label).To(Equal("b"))
		Expect(queue.Pop().(testEvent).label).To(Equal("c"))
		Expect(queue.Len()).To(Equal(0))
	})

	ginkgo.It("should break ties by push order", func() {
		labels := []string{"e0", "e1", "e2", "e3", "e4", "e5", "e6", "e7"}
		for _, l := range labels {
			queue.Push(newTestEvent(25, l))
		}
		queue.Push(newTestEvent(0, "first"))

		Expect(queue.Pop().(testEvent).label).To(Equal("first"))
		for _, l := range labels {
			Expect(queue.Pop().(testEvent).label).To(Equal(l))
		}
	})
})
