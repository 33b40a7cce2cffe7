package tracing

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/parser"
	"github.com/sarchlab/alpidesim/readoutunit"
	"github.com/sarchlab/alpidesim/sim"
)

type hookedDomain struct {
	*sim.HookableBase
	name string
}

func (d *hookedDomain) Name() string {
	return d.name
}

func (d *hookedDomain) fire(pos *sim.HookPos, now sim.VTimeInNs, item any) {
	d.InvokeHook(sim.HookCtx{Domain: d, Now: now, Pos: pos, Item: item})
}

var _ = Describe("Busy collection", func() {
	var (
		chip   *hookedDomain
		link   *hookedDomain
		ru     *hookedDomain
		path   string
		writer *CSVTraceWriter
		busy   *BusyTimeTracer
	)

	BeforeEach(func() {
		chip = &hookedDomain{HookableBase: sim.NewHookableBase(), name: "Chip[3]"}
		link = &hookedDomain{HookableBase: sim.NewHookableBase(), name: "RU_0_0.Link[0]"}
		ru = &hookedDomain{HookableBase: sim.NewHookableBase(), name: "RU_0_0"}

		path = filepath.Join(GinkgoT().TempDir(), "busy_trace.csv")
		writer = NewCSVTraceWriter(path)
		Expect(writer.Init()).To(Succeed())

		busy = NewBusyTimeTracer(KindFilter(KindChipBusy))

		for _, d := range []*hookedDomain{chip, link, ru} {
			CollectBusy(d, writer)
			CollectBusy(d, busy)
		}
	})

	readTrace := func() [][]string {
		Expect(writer.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		var rows [][]string
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		for _, l := range lines {
			rows = append(rows, strings.Split(l, ";"))
		}

		return rows
	}

	It("should write closed and open intervals", func() {
		chip.fire(alpide.HookPosBusyChange, 100, true)
		chip.fire(alpide.HookPosBusyChange, 150, true)
		link.fire(parser.HookPosBusyChange, 125, parser.BusyEvent{OnTime: 125, Open: true})
		chip.fire(alpide.HookPosBusyChange, 300, false)
		ru.fire(readoutunit.HookPosLocalBusy, 400, true)
		ru.fire(readoutunit.HookPosBusyWord, 410, nil)

		writer.Terminate(1000)
		busy.Terminate(1000)

		rows := readTrace()
		Expect(rows).To(HaveLen(4))
		Expect(rows[0]).To(Equal([]string{"ID", "Kind", "Where", "Start", "End", "Open"}))
		Expect(rows[1][1:]).To(Equal([]string{"chip_busy", "Chip[3]", "100", "300", "0"}))
		Expect(rows[2][1:]).To(Equal([]string{"link_busy", "RU_0_0.Link[0]", "125", "1000", "1"}))
		Expect(rows[3][1:]).To(Equal([]string{"ru_local_busy", "RU_0_0", "400", "1000", "1"}))
		Expect(writer.Written()).To(Equal(3))

		Expect(busy.BusyTime()).To(Equal(sim.VTimeInNs(200)))
	})

	It("should ignore an end without a start", func() {
		link.fire(parser.HookPosBusyChange, 50, parser.BusyEvent{OnTime: 10})
		ru.fire(readoutunit.HookPosGlobalBusy, 60, false)

		writer.Terminate(100)

		Expect(readTrace()).To(HaveLen(1))
	})
})
