package simulation

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/datarecording"
	"github.com/sarchlab/alpidesim/event"
	"github.com/sarchlab/alpidesim/logging"
	"github.com/sarchlab/alpidesim/monitoring"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stats"
)

type sliceSource struct {
	events []*event.Event
}

func (s *sliceSource) Next() (*event.Event, error) {
	if len(s.events) == 0 {
		return nil, io.EOF
	}

	e := s.events[0]
	s.events = s.events[1:]

	return e, nil
}

func threeEvents() *sliceSource {
	src := &sliceSource{}
	for i, t := range []sim.VTimeInNs{1000, 20000, 40000} {
		src.events = append(src.events, &event.Event{
			ID:        uint64(i),
			Time:      t,
			Triggered: true,
			Hits: []event.Hit{
				{ChipID: 0, Col: 10, Row: 10},
				{ChipID: 0, Col: 11, Row: 10},
			},
		})
	}

	return src
}

var _ = Describe("Simulation", func() {
	var (
		dir    string
		cfg    config.Configuration
		logger *slog.Logger
		s      *Simulation
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		logger = logging.NewLogger(GinkgoWriter, slog.LevelInfo)

		cfg = config.DefaultConfiguration()
		cfg.Simulation.NEvents = 3
		cfg.Event.TriggerFilterEnable = false
		s = nil
	})

	AfterEach(func() {
		if s != nil {
			Expect(s.Terminate()).To(Succeed())
		}
	})

	build := func(b Builder) *Simulation {
		var err error

		s, err = b.WithConfig(cfg).
			WithOutputDir(dir).
			WithLogger(logger).
			Build()
		Expect(err).NotTo(HaveOccurred())

		return s
	}

	expectFile := func(name string) {
		_, err := os.Stat(filepath.Join(dir, name))
		Expect(err).NotTo(HaveOccurred(), name)
	}

	It("should require an output directory", func() {
		_, err := MakeBuilder().WithConfig(cfg).Build()

		kind, ok := sim.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(sim.ConfigError))
	})

	It("should reject invalid settings", func() {
		cfg.Event.StrobeActiveLengthNs = 0

		_, err := MakeBuilder().WithConfig(cfg).WithOutputDir(dir).Build()

		kind, ok := sim.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(sim.ConfigError))
	})

	It("should need a number of events for random hits", func() {
		cfg.Simulation.NEvents = 0

		_, err := MakeBuilder().WithConfig(cfg).WithOutputDir(dir).Build()

		kind, ok := sim.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(sim.ConfigError))
	})

	It("should report a missing event file as an input error", func() {
		cfg.Event.RandomHitGeneration = false
		cfg.Event.MonteCarloPath = filepath.Join(dir, "missing")

		_, err := MakeBuilder().WithConfig(cfg).WithOutputDir(dir).Build()

		kind, ok := sim.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(sim.InputError))
	})

	It("should write the settings when built", func() {
		build(MakeBuilder())

		loaded, err := config.LoadConfiguration(filepath.Join(dir, SettingsFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(cfg))
	})

	It("should run all events and drain", func() {
		build(MakeBuilder().WithPhysicsSource(threeEvents()))

		Expect(s.Run(context.Background())).To(Succeed())

		info := s.Info()
		Expect(info.Interrupted).To(BeFalse())
		Expect(info.TriggeredEvents).To(Equal(uint64(3)))
		Expect(info.Triggers).To(Equal(uint64(3)))
		Expect(info.SimulatedTime).To(Equal(40000 + DrainTime))

		chip := s.Detector().Chip(0)
		Expect(chip.Stats().TriggersReceived).To(Equal(uint64(3)))

		Expect(s.ProgressBar().Status().Finished).To(Equal(uint64(3)))

		expectFile(stats.SimulationInfoFile)
		expectFile(stats.ChipStatsFile)
		expectFile(stats.MEBHistogramsFile)
		expectFile(stats.EventDataFile)
		expectFile("RU_0_0_Trigger_summary.csv")
		expectFile("RU_0_0_trigger_actions.dat")
	})

	It("should stop after the requested number of random events", func() {
		cfg.Simulation.NEvents = 20
		build(MakeBuilder())

		Expect(s.Run(context.Background())).To(Succeed())

		Expect(s.Info().TriggeredEvents).To(Equal(uint64(20)))
		Expect(s.Feeder().Done()).To(BeTrue())
		Expect(s.Info().SimulatedTime).
			To(Equal(s.Feeder().DoneTime() + DrainTime))
	})

	It("should run a busy single chip with the default settings", func() {
		cfg.Simulation.NEvents = 200
		cfg.Event.AverageEventRateNs = 150
		build(MakeBuilder())

		Expect(s.Run(context.Background())).To(Succeed())

		Expect(s.Info().TriggeredEvents).To(Equal(uint64(200)))
		Expect(s.Detector().Chip(0).Stats().BusyTransitions).NotTo(BeZero())
	})

	It("should strobe in continuous mode", func() {
		cfg.Simulation.ContinuousMode = true
		build(MakeBuilder().WithPhysicsSource(threeEvents()))

		Expect(s.Run(context.Background())).To(Succeed())

		Expect(s.Info().TriggeredEvents).To(Equal(uint64(3)))
		Expect(s.Info().Triggers).To(BeNumerically(">", 3))
	})

	It("should write results when interrupted", func() {
		build(MakeBuilder().WithPhysicsSource(threeEvents()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(s.Run(ctx)).To(Succeed())

		Expect(s.Interrupted()).To(BeTrue())
		Expect(s.Info().TriggeredEvents).To(BeNumerically("<", 3))

		data, err := os.ReadFile(filepath.Join(dir, stats.SimulationInfoFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("Interrupted: true"))
	})

	It("should trace busy intervals", func() {
		cfg.DataOutput.WriteTrace = true
		build(MakeBuilder().WithPhysicsSource(threeEvents()))

		Expect(s.Run(context.Background())).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, TraceFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(HavePrefix("ID;Kind;Where;Start;End;Open\n"))
	})

	It("should write the FIFO histograms", func() {
		cfg.DataOutput.BufferAnalysis = true
		build(MakeBuilder().WithPhysicsSource(threeEvents()))

		Expect(s.Run(context.Background())).To(Succeed())

		expectFile(stats.FIFOHistogramsFile)
		expectFile(FIFOLevelsFile + ".csv")
	})

	It("should record results into SQLite", func() {
		cfg.DataOutput.Recorder = datarecording.KindSQLite
		build(MakeBuilder().WithPhysicsSource(threeEvents()))

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Terminate()).To(Succeed())

		reader, err := datarecording.NewReader(filepath.Join(dir, RecorderFile))
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		tables, err := reader.ListTables(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(ContainElements(
			"exec_info",
			datarecording.TableChipStats,
			datarecording.TableTriggerSummary))

		var chips []datarecording.ChipStatsEntry
		_, err = reader.Query(context.Background(), datarecording.TableChipStats,
			datarecording.QueryParams{}, &chips)
		Expect(err).NotTo(HaveOccurred())
		Expect(chips).To(HaveLen(1))
		Expect(chips[0].TriggersReceived).To(Equal(uint64(3)))
	})

	It("should register with a given monitor", func() {
		m := monitoring.NewMonitor()
		build(MakeBuilder().
			WithPhysicsSource(threeEvents()).
			WithMonitor(m))

		Expect(s.Monitor()).To(BeIdenticalTo(m))
		Expect(s.Run(context.Background())).To(Succeed())
	})
})
