package simulation

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/analysis"
	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/datarecording"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/event"
	"github.com/sarchlab/alpidesim/monitoring"
	"github.com/sarchlab/alpidesim/readoutunit"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stats"
	"github.com/sarchlab/alpidesim/tracing"
)

// DrainTime is how long the simulation keeps running after the last physics
// event so that the readout chain can empty its buffers.
const DrainTime sim.VTimeInNs = 100000

// Names of the optional files in the run directory.
const (
	SettingsFile = "settings.json"
	TraceFile    = "busy_trace.csv"
	RecorderFile = "results.sqlite3"

	// FIFOLevelsFile gets the .csv extension appended.
	FIFOLevelsFile = "Alpide_FIFO_levels"
)

// Builder can be used to build a simulation.
type Builder struct {
	config    config.Configuration
	outputDir string
	logger    *slog.Logger
	monitor   *monitoring.Monitor
	physics   event.Source
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		config: config.DefaultConfiguration(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithConfig sets the settings of the run.
func (b Builder) WithConfig(cfg config.Configuration) Builder {
	b.config = cfg
	return b
}

// WithOutputDir sets the run directory that the result files go to.
func (b Builder) WithOutputDir(dir string) Builder {
	b.outputDir = dir
	return b
}

// WithLogger sets the logger of the run.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithMonitor uses an existing monitor instead of the one the settings ask
// for.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithPhysicsSource replaces the physics events that the settings describe.
func (b Builder) WithPhysicsSource(s event.Source) Builder {
	b.physics = s
	return b
}

func (b Builder) parametersMustBeValid() error {
	if b.outputDir == "" {
		return sim.NewConfigError("simulation", "output directory is not set")
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	ev := b.config.Event
	if b.physics == nil && ev.RandomHitGeneration && b.config.Simulation.NEvents == 0 {
		return sim.NewConfigError("simulation",
			"random hit generation needs a positive n_events")
	}

	return nil
}

// Build builds the simulation. Every component is created and connected,
// and the settings actually used are written into the output directory.
func (b Builder) Build() (*Simulation, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	cfg := b.config

	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return nil, sim.NewInputError("simulation",
			errors.Wrapf(err, "creating output directory %q", b.outputDir))
	}

	s := &Simulation{
		id:        xid.New().String(),
		config:    cfg,
		outputDir: b.outputDir,
		logger:    b.logger.With("module", "simulation"),
	}

	s.engine = sim.NewSerialEngine()
	s.ctx = sim.NewContext(s.engine, sim.DefaultFreq,
		cfg.Simulation.RandomSeed, b.logger)

	if b.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.engine.AcceptHook(sim.NewEventLogger(b.logger))
	}

	if err := b.buildDetector(s); err != nil {
		return nil, err
	}

	if err := b.buildFeeder(s); err != nil {
		return nil, err
	}

	if err := b.buildReporter(s); err != nil {
		return nil, err
	}

	if err := b.buildTracers(s); err != nil {
		return nil, err
	}

	if err := b.buildRecorder(s); err != nil {
		return nil, err
	}

	if err := b.buildMonitor(s); err != nil {
		return nil, err
	}

	err := config.Save(cfg, filepath.Join(b.outputDir, SettingsFile))
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (b Builder) buildDetector(s *Simulation) error {
	cfg := b.config

	chip := alpide.MakeBuilder().
		WithContinuousMode(cfg.Simulation.ContinuousMode).
		WithStrobeExtension(cfg.Alpide.StrobeExtensionEnable).
		WithStrobeLength(sim.VTimeInNs(cfg.Event.StrobeActiveLengthNs)).
		WithMinBusyCycles(int(cfg.Alpide.MinimumBusyCycles)).
		WithDTUDelay(int(cfg.Alpide.DTUDelay)).
		WithClustering(cfg.Alpide.DataLongEnable).
		WithFastReadout(cfg.Alpide.MatrixReadoutSpeedFast).
		WithPixelShaping(
			sim.VTimeInNs(cfg.Alpide.PixelShapingDeadTimeNs),
			sim.VTimeInNs(cfg.Alpide.PixelShapingActiveTimeNs)).
		WithRegionFIFOSize(int(cfg.Alpide.RegionFIFOSize))

	ru := readoutunit.MakeBuilder().
		WithTriggerFilter(cfg.Event.TriggerFilterEnable,
			sim.VTimeInNs(cfg.Event.TriggerFilterTimeNs)).
		WithBusyTriggerHold(cfg.ReadoutUnit.BusyTriggerHold).
		WithBusyThreshold(cfg.ReadoutUnit.BusyThreshold).
		WithDataRateInterval(sim.VTimeInNs(cfg.ReadoutUnit.DataRateIntervalNs)).
		WithSaveFrames(cfg.DataOutput.Recorder != "")

	db := detector.MakeBuilder().
		WithContext(s.ctx).
		WithSingleChip(cfg.Simulation.SingleChip).
		WithChipBuilder(chip).
		WithReadoutUnitBuilder(ru)

	if !cfg.Simulation.SingleChip {
		layout, err := cfg.Layout()
		if err != nil {
			return err
		}

		db = db.WithLayout(layout)
	}

	det, err := db.Build()
	if err != nil {
		return err
	}

	s.detector = det

	return nil
}

func (b Builder) buildFeeder(s *Simulation) error {
	cfg := b.config

	physics := b.physics
	if physics == nil {
		var err error

		physics, err = physicsSource(cfg, s.detector, s.ctx)
		if err != nil {
			return err
		}
	}

	qed, err := qedSource(cfg, s.detector, s.ctx)
	if err != nil {
		return err
	}

	fb := event.MakeBuilder().
		WithContext(s.ctx).
		WithPhysicsSource(physics).
		WithTriggerDelay(sim.VTimeInNs(cfg.Event.TriggerDelayNs)).
		WithNumEvents(cfg.Simulation.NEvents).
		WithDrainTime(DrainTime)

	if qed != nil {
		fb = fb.WithQEDSource(qed)
	}

	if cfg.Simulation.ContinuousMode {
		fb = fb.WithContinuousMode(cfg.StrobePeriod())
	}

	s.feeder = fb.Build("Feeder", s.detector, s.detector)

	s.progress = monitoring.NewProgressBar("Physics events", cfg.Simulation.NEvents).
		WithLogger(s.logger)
	s.feeder.AcceptHook(&progressHook{bar: s.progress})

	return nil
}

func (b Builder) buildReporter(s *Simulation) error {
	cfg := b.config

	s.reporter = stats.NewReporter(b.outputDir, b.logger)

	if cfg.DataOutput.WriteEventCSV {
		log := &stats.EventLog{}
		s.feeder.AcceptHook(log)
		s.reporter.WithEventLog(log)
	}

	if !cfg.DataOutput.BufferAnalysis {
		return nil
	}

	levels, err := analysis.NewCSVPerfAnalyzerBackend(
		filepath.Join(b.outputDir, FIFOLevelsFile))
	if err != nil {
		return err
	}

	s.fifoLevels = levels
	s.reporter.WithFIFOMonitor(stats.NewPeriodicFIFOMonitor(
		s.engine, s.detector.Chips(), levels,
		sim.VTimeInNs(cfg.ReadoutUnit.DataRateIntervalNs)))

	return nil
}

func (b Builder) buildTracers(s *Simulation) error {
	if !b.config.DataOutput.WriteTrace {
		return nil
	}

	w := tracing.NewCSVTraceWriter(filepath.Join(b.outputDir, TraceFile))
	if err := w.Init(); err != nil {
		return err
	}

	s.traceWriter = w
	s.chipBusy = tracing.NewBusyTimeTracer(tracing.KindFilter(tracing.KindChipBusy))
	s.linkBusy = tracing.NewBusyTimeTracer(tracing.KindFilter(tracing.KindLinkBusy))

	for _, c := range s.detector.Chips() {
		tracing.CollectBusy(c, w)
		tracing.CollectBusy(c, s.chipBusy)
	}

	for _, ru := range s.detector.ReadoutUnits() {
		tracing.CollectBusy(ru, w)

		for _, p := range ru.Parsers() {
			tracing.CollectBusy(p, w)
			tracing.CollectBusy(p, s.linkBusy)
		}
	}

	return nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	out := b.config.DataOutput
	if out.Recorder == "" {
		return nil
	}

	dsn := out.RecorderDSN
	if out.Recorder == datarecording.KindSQLite && dsn == "" {
		dsn = filepath.Join(b.outputDir, RecorderFile)
	}

	rec, err := datarecording.Open(out.Recorder, dsn)
	if err != nil {
		return err
	}

	exec, err := datarecording.NewExecRecorder(rec)
	if err != nil {
		rec.Close()
		return err
	}

	s.recorder = rec
	s.execRecorder = exec

	return nil
}

func (b Builder) buildMonitor(s *Simulation) error {
	m := b.monitor

	mc := b.config.Monitor
	if m == nil && mc.Enable {
		m = monitoring.NewMonitor().
			WithLogger(b.logger).
			WithPortNumber(mc.Port)
	}

	if m == nil {
		return nil
	}

	m.RegisterEngine(s.engine)

	for _, c := range s.detector.Chips() {
		m.RegisterChip(c)
	}

	for _, ru := range s.detector.ReadoutUnits() {
		m.RegisterComponent(ru)
	}

	m.AddProgressBar(s.progress)
	s.monitor = m

	if b.monitor != nil {
		return nil
	}

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	s.ownsMonitor = true
	s.logger.Info("monitor started", "url", url)

	if mc.OpenBrowser {
		if err := m.OpenInBrowser(); err != nil {
			s.logger.Warn("cannot open browser", "error", err)
		}
	}

	return nil
}
