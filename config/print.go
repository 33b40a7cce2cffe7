package config

import (
	"fmt"
	"log/slog"
)

// PrintConfiguration logs every effective setting.
func PrintConfiguration(config Configuration, logger *slog.Logger) {
	info := func(format string, args ...any) {
		logger.Info(fmt.Sprintf(format, args...), "module", "config")
	}

	s := config.Simulation
	info("Simulation type: %s", s.Type)
	info("Number of events: %d", s.NEvents)
	info("Continuous mode: %t", s.ContinuousMode)
	info("Random seed: %d", s.RandomSeed)
	info("Single chip: %t", s.SingleChip)
	info("Log level: %s", s.LogLevel)

	e := config.Event
	info("Average event rate (ns): %d", e.AverageEventRateNs)
	info("Trigger delay (ns): %d", e.TriggerDelayNs)
	info("Trigger filter: %t, %d ns", e.TriggerFilterEnable, e.TriggerFilterTimeNs)
	info("Strobe active/inactive length (ns): %d/%d",
		e.StrobeActiveLengthNs, e.StrobeInactiveLengthNs)
	info("Random hit generation: %t", e.RandomHitGeneration)
	if e.RandomHitGeneration {
		if e.HitMultiplicityDistributionFile != "" {
			info("Hit multiplicity distribution: %s", e.HitMultiplicityDistributionFile)
		} else {
			info("Hit multiplicity: %.2f +- %.2f",
				e.HitMultiplicityMean, e.HitMultiplicityStdDev)
		}

		info("Random clusters: %t, size %.2f +- %.2f", e.RandomClusterGeneration,
			e.RandomClusterSizeMean, e.RandomClusterSizeStdDev)
	} else {
		info("Monte Carlo events: %s (%s)", e.MonteCarloPath, e.MonteCarloFileType)
	}
	info("QED noise input: %t", e.QEDNoiseInput)
	if e.QEDNoiseInput {
		info("QED noise path: %s", e.QEDNoisePath)
		info("QED noise feed/event rate (ns): %d/%d",
			e.QEDNoiseFeedRateNs, e.QEDNoiseEventRateNs)
	}

	a := config.Alpide
	info("Clustering (DATA_LONG): %t", a.DataLongEnable)
	info("DTU delay: %d", a.DTUDelay)
	info("Pixel shaping dead/active time (ns): %d/%d",
		a.PixelShapingDeadTimeNs, a.PixelShapingActiveTimeNs)
	info("Fast matrix readout: %t", a.MatrixReadoutSpeedFast)
	info("Strobe extension: %t", a.StrobeExtensionEnable)
	info("Minimum busy cycles: %d", a.MinimumBusyCycles)
	info("Region FIFO size: %d", a.RegionFIFOSize)

	switch s.Type {
	case "its":
		info("ITS staves per layer: %v", config.ITS.Staves())
	case "pct":
		info("PCT layers: %d, staves per layer: %d",
			config.PCT.Layers, config.PCT.NumStavesPerLayer)
	case "focal":
		info("FoCal staves per quadrant: %d", config.Focal.StavesPerQuadrant)
	}

	r := config.ReadoutUnit
	info("Busy trigger hold: %t", r.BusyTriggerHold)
	info("Busy threshold: %d", r.BusyThreshold)
	info("Data rate interval (ns): %d", r.DataRateIntervalNs)

	d := config.DataOutput
	info("Output directory prefix: %s", d.OutputDirPrefix)
	info("Write event CSV: %t", d.WriteEventCSV)
	info("Write busy trace: %t", d.WriteTrace)
	info("Buffer analysis: %t", d.BufferAnalysis)
	if d.Recorder != "" {
		info("Recorder: %s", d.Recorder)
	}

	m := config.Monitor
	info("Monitor: %t, port %d", m.Enable, m.Port)
}
