// Package simulation builds a simulated readout chain from the settings of a
// run and drives it to the end.
package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/sarchlab/alpidesim/analysis"
	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/datarecording"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/event"
	"github.com/sarchlab/alpidesim/monitoring"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/sarchlab/alpidesim/stats"
	"github.com/sarchlab/alpidesim/tracing"
)

// A Simulation owns the engine and every component of a run.
type Simulation struct {
	id        string
	config    config.Configuration
	outputDir string
	logger    *slog.Logger

	engine   *sim.SerialEngine
	ctx      *sim.Context
	detector *detector.Detector
	feeder   *event.Feeder
	reporter *stats.Reporter
	progress *monitoring.ProgressBar

	fifoLevels *analysis.CSVBackend

	traceWriter *tracing.CSVTraceWriter
	chipBusy    *tracing.BusyTimeTracer
	linkBusy    *tracing.BusyTimeTracer

	recorder     datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder

	monitor     *monitoring.Monitor
	ownsMonitor bool

	interrupted bool
	info        stats.SimulationInfo
	terminated  bool
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine of the run.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Detector returns the simulated detector.
func (s *Simulation) Detector() *detector.Detector {
	return s.detector
}

// Feeder returns the component that delivers the events.
func (s *Simulation) Feeder() *event.Feeder {
	return s.feeder
}

// Monitor returns the monitor, or nil if the run is not monitored.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// ProgressBar returns the progress of the physics events.
func (s *Simulation) ProgressBar() *monitoring.ProgressBar {
	return s.progress
}

// OutputDir returns the run directory.
func (s *Simulation) OutputDir() string {
	return s.outputDir
}

// Info returns the summary of the last run.
func (s *Simulation) Info() stats.SimulationInfo {
	return s.info
}

// Interrupted tells if the run was stopped before all the events were
// simulated.
func (s *Simulation) Interrupted() bool {
	return s.interrupted
}

// Run delivers the events and keeps the engine going until the drain time
// after the last physics event has passed. A canceled ctx stops the engine
// before the next event. The result files are written in both cases, but
// not when a component reports an error.
func (s *Simulation) Run(ctx context.Context) error {
	start := time.Now()

	if s.execRecorder != nil {
		s.execRecorder.Start()
		s.execRecorder.Add("Run ID", s.id)
		s.execRecorder.Add("Output Directory", s.outputDir)
	}

	s.feeder.OnDone(func(now sim.VTimeInNs) {
		sim.ScheduleStop(s.engine, now+DrainTime)
	})

	if err := s.feeder.Start(); err != nil {
		return err
	}

	s.engine.AcceptHook(&interruptHook{s: s, ctx: ctx})
	stopWatch := s.watch(ctx)

	s.logger.Info("simulation started", "run_id", s.id,
		"events", s.config.Simulation.NEvents)

	err := s.engine.Run()
	close(stopWatch)

	if err != nil {
		return err
	}

	s.engine.Finished()

	if ctx.Err() != nil {
		s.interrupted = true
	}

	now := s.engine.CurrentTime()
	feederStats := s.feeder.Stats()

	s.info = stats.SimulationInfo{
		RunID:             s.id,
		RequestedEvents:   s.config.Simulation.NEvents,
		TriggeredEvents:   feederStats.PhysicsEvents,
		UntriggeredEvents: feederStats.QEDEvents,
		Triggers:          feederStats.Triggers,
		SimulatedTime:     now,
		WallTime:          time.Since(start),
		Interrupted:       s.interrupted,
	}

	if s.interrupted {
		s.logger.Warn("simulation interrupted", "time", now,
			"events", feederStats.PhysicsEvents)
	} else {
		s.logger.Info("simulation finished", "time", now,
			"events", feederStats.PhysicsEvents,
			"triggers", feederStats.Triggers)
	}

	return s.writeResults(now)
}

// watch stops the engine when ctx is canceled, including while the engine
// is paused by the monitor.
func (s *Simulation) watch(ctx context.Context) chan struct{} {
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			s.engine.Stop()
			s.engine.Continue()
		case <-done:
		}
	}()

	return done
}

func (s *Simulation) writeResults(now sim.VTimeInNs) error {
	if err := s.reporter.Write(s.detector, now, s.info); err != nil {
		return err
	}

	if s.fifoLevels != nil {
		err := s.fifoLevels.Close()
		s.fifoLevels = nil

		if err != nil {
			return err
		}
	}

	if s.traceWriter != nil {
		s.traceWriter.Terminate(now)
		s.chipBusy.Terminate(now)
		s.linkBusy.Terminate(now)

		s.logger.Info("busy time",
			"chips_ns", uint64(s.chipBusy.BusyTime()),
			"links_ns", uint64(s.linkBusy.BusyTime()),
			"intervals", s.traceWriter.Written())

		if err := s.traceWriter.Close(); err != nil {
			return err
		}
	}

	if s.recorder != nil {
		if err := datarecording.RecordResults(s.recorder, s.detector); err != nil {
			return err
		}

		if err := s.execRecorder.End(); err != nil {
			return err
		}

		if err := s.recorder.Flush(); err != nil {
			return err
		}
	}

	if s.monitor != nil {
		s.monitor.CompleteProgressBar(s.progress)
	}

	return nil
}

// Terminate releases the recorder, the trace file, and the monitor server.
// It can be called more than once.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	var firstErr error

	if s.fifoLevels != nil {
		firstErr = s.fifoLevels.Close()
	}

	if s.traceWriter != nil {
		if err := s.traceWriter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.monitor != nil && s.ownsMonitor {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := s.monitor.StopServer(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

type interruptHook struct {
	s   *Simulation
	ctx context.Context
}

// Func stops the engine before the next event once the run is canceled.
func (h *interruptHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent || h.ctx.Err() == nil {
		return
	}

	h.s.interrupted = true
	h.s.engine.Stop()
}

type progressHook struct {
	bar *monitoring.ProgressBar
}

// Func counts a finished physics event.
func (h *progressHook) Func(ctx sim.HookCtx) {
	if ctx.Pos == event.HookPosPhysicsEvent {
		h.bar.IncrementFinished(1)
	}
}
