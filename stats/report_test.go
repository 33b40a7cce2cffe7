package stats

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/event"
	"github.com/sarchlab/alpidesim/parser"
	"github.com/sarchlab/alpidesim/sim"
)

func readLines(path string) []string {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())

	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

var _ = ginkgo.Describe("Reporter", func() {
	var (
		ctx *sim.Context
		det *detector.Detector
		dir string
	)

	const endTime = sim.VTimeInNs(40000)

	ginkgo.BeforeEach(func() {
		ctx = newTestContext()
		dir = ginkgo.GinkgoT().TempDir()

		var err error
		det, err = detector.MakeBuilder().
			WithContext(ctx).
			WithSingleChip(true).
			Build()
		Expect(err).NotTo(HaveOccurred())

		for i, t := range []sim.VTimeInNs{0, 10000} {
			trigID := uint64(i + 1)
			sim.ScheduleFunc(ctx.Engine, t, func(now sim.VTimeInNs) error {
				return det.Trigger(now, trigID)
			})
		}
	})

	run := func() {
		sim.ScheduleStop(ctx.Engine, endTime)
		Expect(ctx.Engine.Run()).To(Succeed())
	}

	ginkgo.It("should write every result file", func() {
		fifos := NewFIFOMonitor(ctx.Engine, det.Chips())
		run()

		r := NewReporter(dir, discardLogger()).WithFIFOMonitor(fifos)
		err := r.Write(det, endTime, SimulationInfo{
			RequestedEvents: 2,
			TriggeredEvents: 2,
			Triggers:        2,
			SimulatedTime:   endTime,
			WallTime:        time.Second,
		})
		Expect(err).NotTo(HaveOccurred())

		for _, name := range []string{
			MEBHistogramsFile, ChipStatsFile, FIFOHistogramsFile,
			SimulationInfoFile,
			"RU_0_0_trigger_actions.dat", "RU_0_0_busy_events.dat",
			"RU_0_0_busyv_events.dat", "RU_0_0_flush_events.dat",
			"RU_0_0_ro_abort_events.dat", "RU_0_0_fatal_events.dat",
			"RU_0_0_Data_rate.csv", "RU_0_0_Link_utilization.csv",
			"RU_0_0_Trigger_summary.csv",
		} {
			Expect(filepath.Join(dir, name)).To(BeAnExistingFile())
		}

		Expect(filepath.Join(dir, EventDataFile)).NotTo(BeAnExistingFile())
		Expect(readLines(filepath.Join(dir, SimulationInfoFile))[1]).
			To(Equal("Number of triggered events simulated: 2"))
	})

	ginkgo.It("should write the trigger actions", func() {
		run()
		ru := det.ReadoutUnits()[0]

		var buf bytes.Buffer
		Expect(WriteTriggerActions(&buf, ru)).To(Succeed())

		b := buf.Bytes()
		Expect(b).To(HaveLen(8 + 1 + 2))
		Expect(binary.LittleEndian.Uint64(b)).To(Equal(uint64(2)))
		Expect(b[8:]).To(Equal([]byte{1, 0, 0}))
	})

	ginkgo.It("should write empty busy and flagged event files", func() {
		run()
		parsers := det.ReadoutUnits()[0].Parsers()

		var busy bytes.Buffer
		Expect(WriteBusyEvents(&busy, parsers)).To(Succeed())
		Expect(busy.Bytes()).To(Equal([]byte{1, 0, 0, 0, 0, 0, 0, 0, 0}))

		var flagged bytes.Buffer
		err := WriteChipTriggerIDs(&flagged, parsers,
			(*parser.Parser).BusyViolations)
		Expect(err).NotTo(HaveOccurred())
		Expect(flagged.Bytes()).To(Equal([]byte{1, 0}))
	})

	ginkgo.It("should write the trigger summary and the chip counters", func() {
		run()

		var summary bytes.Buffer
		Expect(WriteTriggerSummary(&summary, det.ReadoutUnits()[0])).To(Succeed())
		Expect(summary.String()).To(Equal(
			"Control link;Received;Sent;Filtered;Not sent busy\n0;2;2;0;0\n"))

		var chipStats bytes.Buffer
		Expect(WriteChipStats(&chipStats, det.Chips(), det)).To(Succeed())

		lines := strings.Split(strings.TrimRight(chipStats.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(2))

		header := strings.Split(lines[0], ";")
		row := strings.Split(lines[1], ";")
		Expect(row).To(HaveLen(len(header)))
		Expect(row[:7]).To(Equal([]string{"0", "0", "0", "0", "0", "0", "2"}))
	})

	ginkgo.It("should account the whole run in the MEB histogram", func() {
		run()

		var buf bytes.Buffer
		Expect(WriteMEBHistograms(&buf, det.Chips(), endTime)).To(Succeed())

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		Expect(lines[0]).To(Equal("Multi Event Buffers in use;Chip ID 0"))

		var total uint64
		for i, line := range lines[1:] {
			fields := strings.Split(line, ";")
			Expect(fields[0]).To(Equal(strconv.Itoa(i)))

			v, err := strconv.ParseUint(fields[1], 10, 64)
			Expect(err).NotTo(HaveOccurred())
			total += v
		}

		Expect(total).To(Equal(uint64(endTime)))
	})

	ginkgo.It("should write one utilization row per data link", func() {
		run()

		var buf bytes.Buffer
		parsers := det.ReadoutUnits()[0].Parsers()
		Expect(WriteLinkUtilization(&buf, parsers)).To(Succeed())

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(strings.Split(lines[1], ";")).
			To(HaveLen(int(alpide.NumDataTypes) + 2))
		Expect(lines[0]).To(HaveSuffix(";Total bytes"))
	})
})

var _ = ginkgo.Describe("SimulationInfo", func() {
	ginkgo.It("should put the event counts on lines 2 and 4", func() {
		var buf bytes.Buffer
		Expect(WriteSimulationInfo(&buf, SimulationInfo{
			TriggeredEvents:   12,
			UntriggeredEvents: 3,
		})).To(Succeed())

		lines := strings.Split(buf.String(), "\n")
		Expect(lines[1]).To(Equal("Number of triggered events simulated: 12"))
		Expect(lines[3]).To(Equal("Number of untriggered events simulated: 3"))
	})
})

var _ = ginkgo.Describe("EventLog", func() {
	ginkgo.It("should record physics and QED events", func() {
		l := &EventLog{}

		l.Func(sim.HookCtx{
			Pos:  event.HookPosPhysicsEvent,
			Item: &event.Event{ID: 1, Time: 100, Hits: make([]event.Hit, 3)},
		})
		l.Func(sim.HookCtx{
			Pos:  event.HookPosQEDEvent,
			Item: &event.Event{ID: 0, Time: 150},
		})
		l.Func(sim.HookCtx{Pos: &sim.HookPos{Name: "Other"}})

		Expect(l.Records()).To(Equal([]EventRecord{
			{ID: 1, Time: 100, Triggered: true, Hits: 3},
			{ID: 0, Time: 150, Triggered: false, Hits: 0},
		}))

		var buf bytes.Buffer
		Expect(l.Write(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal(
			"Time (ns);Event ID;Triggered;Pixel hits\n" +
				"100;1;true;3\n" +
				"150;0;false;0\n"))
	})
})
