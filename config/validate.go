package config

import (
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/sim"
)

// Layout creates the detector layout that the settings describe.
func (c Configuration) Layout() (detector.Layout, error) {
	switch detector.Type(c.Simulation.Type) {
	case detector.TypeITS:
		l, err := detector.NewITSLayout(c.ITS.Staves())
		if err != nil {
			return nil, err
		}

		return l, nil
	case detector.TypePCT:
		l, err := detector.NewPCTLayout(c.PCT.Layers, c.PCT.NumStavesPerLayer)
		if err != nil {
			return nil, err
		}

		return l, nil
	case detector.TypeFocal:
		l, err := detector.NewFocalLayout(c.Focal.StavesPerQuadrant)
		if err != nil {
			return nil, err
		}

		return l, nil
	default:
		return nil, sim.NewConfigError("config",
			"unknown simulation type %q", c.Simulation.Type)
	}
}

// Validate checks the settings before a run.
func (c Configuration) Validate() error {
	if _, err := c.Layout(); err != nil {
		return err
	}

	if c.Event.StrobeActiveLengthNs == 0 {
		return sim.NewConfigError("config", "strobe active length must be positive")
	}

	if c.Simulation.ContinuousMode && c.StrobePeriod() == 0 {
		return sim.NewConfigError("config", "strobe period must be positive")
	}

	if c.ReadoutUnit.DataRateIntervalNs == 0 {
		return sim.NewConfigError("config", "data rate interval must be positive")
	}

	if c.Event.AverageEventRateNs == 0 {
		return sim.NewConfigError("config", "average event rate must be positive")
	}

	switch c.Event.MonteCarloFileType {
	case "binary", "csv":
	default:
		return sim.NewConfigError("config",
			"unknown monte carlo file type %q", c.Event.MonteCarloFileType)
	}

	if !c.Event.RandomHitGeneration && c.Event.MonteCarloPath == "" {
		return sim.NewConfigError("config",
			"monte carlo path is required without random hit generation")
	}

	if c.Event.QEDNoiseInput {
		if c.Event.QEDNoisePath == "" {
			return sim.NewConfigError("config", "QED noise path is not set")
		}

		if c.Event.QEDNoiseFeedRateNs == 0 {
			return sim.NewConfigError("config", "QED noise feed rate must be positive")
		}
	}

	switch c.DataOutput.Recorder {
	case "", "sqlite", "mysql", "clickhouse":
	default:
		return sim.NewConfigError("config",
			"unknown recorder %q", c.DataOutput.Recorder)
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return sim.NewConfigError("config",
			"monitor port %d is out of range", c.Monitor.Port)
	}

	return nil
}
