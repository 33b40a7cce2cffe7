// Package stats writes the result files of a simulation run.
package stats

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/sim"
)

// File names of the run directory.
const (
	MEBHistogramsFile  = "Alpide_MEB_histograms.csv"
	ChipStatsFile      = "Alpide_stats.csv"
	FIFOHistogramsFile = "Alpide_FIFO_histograms.csv"
	EventDataFile      = "physics_events_data.csv"
	SimulationInfoFile = "simulation_info.txt"
)

// Reporter writes all the result files of a detector into a directory.
type Reporter struct {
	dir    string
	logger *slog.Logger

	fifos  *FIFOMonitor
	events *EventLog
}

// NewReporter creates a Reporter that writes into dir.
func NewReporter(dir string, logger *slog.Logger) *Reporter {
	return &Reporter{
		dir:    dir,
		logger: logger.With("module", "stats"),
	}
}

// WithFIFOMonitor adds the FIFO histograms to the result files.
func (r *Reporter) WithFIFOMonitor(m *FIFOMonitor) *Reporter {
	r.fifos = m
	return r
}

// WithEventLog adds the event records to the result files.
func (r *Reporter) WithEventLog(l *EventLog) *Reporter {
	r.events = l
	return r
}

// Dir returns the output directory.
func (r *Reporter) Dir() string {
	return r.dir
}

// Write closes the open busy intervals and writes every file.
func (r *Reporter) Write(
	det *detector.Detector,
	now sim.VTimeInNs,
	info SimulationInfo,
) error {
	det.Finalize(now)
	chips := det.Chips()

	err := r.write(MEBHistogramsFile, func(w io.Writer) error {
		return WriteMEBHistograms(w, chips, now)
	})
	if err != nil {
		return err
	}

	err = r.write(ChipStatsFile, func(w io.Writer) error {
		return WriteChipStats(w, chips, det)
	})
	if err != nil {
		return err
	}

	for _, ru := range det.ReadoutUnits() {
		if err := WriteReadoutUnitFiles(r.dir, ru); err != nil {
			return err
		}
	}

	if r.fifos != nil {
		if err := r.write(FIFOHistogramsFile, r.fifos.Write); err != nil {
			return err
		}
	}

	if r.events != nil {
		if err := r.write(EventDataFile, r.events.Write); err != nil {
			return err
		}
	}

	err = r.write(SimulationInfoFile, func(w io.Writer) error {
		return WriteSimulationInfo(w, info)
	})
	if err != nil {
		return err
	}

	r.logger.Info("results written", "dir", r.dir, "chips", len(chips),
		"readout_units", len(det.ReadoutUnits()))

	return nil
}

func (r *Reporter) write(name string, f func(w io.Writer) error) error {
	return writeFile(filepath.Join(r.dir, name), f)
}
