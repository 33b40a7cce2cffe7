package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/alpidesim/sim"
)

var _ = Describe("BufferAnalyzer", func() {
	var (
		mockCtrl       *gomock.Controller
		timeTeller     *MockTimeTeller
		logger         *MockPerfLogger
		buffer         *MockBuffer
		bufferAnalyzer *BufferAnalyzer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		logger = NewMockPerfLogger(mockCtrl)
		buffer = NewMockBuffer(mockCtrl)
		buffer.EXPECT().Name().Return("Buffer").AnyTimes()
		buffer.EXPECT().AcceptHook(gomock.Any())

		bufferAnalyzer = MakeBufferAnalyzerBuilder().
			WithPerfLogger(logger).
			WithTimeTeller(timeTeller).
			WithPeriod(100).
			WithBuffer(buffer).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should calculate average buffer level", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInNs(10))
		buffer.EXPECT().Size().Return(1)

		bufferAnalyzer.Func(sim.HookCtx{Domain: buffer, Pos: sim.HookPosBufPush})

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInNs(110))
		buffer.EXPECT().Size().Return(2)
		logger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:     0,
			End:       100,
			Where:     "Buffer",
			What:      "Level",
			EntryType: "Buffer",
			Value:     0.9,
		})

		bufferAnalyzer.Func(sim.HookCtx{Domain: buffer, Pos: sim.HookPosBufPush})

		Expect(bufferAnalyzer.Histogram().Duration(0)).
			To(Equal(sim.VTimeInNs(10)))
		Expect(bufferAnalyzer.Histogram().Duration(1)).
			To(Equal(sim.VTimeInNs(100)))
	})

	It("should report multiple periods together", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInNs(50))
		buffer.EXPECT().Size().Return(2)

		bufferAnalyzer.Func(sim.HookCtx{Domain: buffer, Pos: sim.HookPosBufPush})

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInNs(250))
		buffer.EXPECT().Size().Return(0)
		first := logger.EXPECT().AddDataEntry(gomock.Any()).
			Do(func(e PerfAnalyzerEntry) {
				Expect(e.Start).To(Equal(sim.VTimeInNs(0)))
				Expect(e.Value).To(BeNumerically("~", 1.0, 1e-9))
			})
		logger.EXPECT().AddDataEntry(gomock.Any()).
			Do(func(e PerfAnalyzerEntry) {
				Expect(e.Start).To(Equal(sim.VTimeInNs(100)))
				Expect(e.Value).To(BeNumerically("~", 2.0, 1e-9))
			}).After(first)

		bufferAnalyzer.Func(sim.HookCtx{Domain: buffer, Pos: sim.HookPosBufPop})
	})
})
