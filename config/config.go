// Package config loads, validates, and prints the settings of a simulation
// run.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/sim"
)

// SimulationSettings select the detector and the length of the run.
type SimulationSettings struct {
	Type           string `json:"type"`
	NEvents        uint64 `json:"n_events"`
	ContinuousMode bool   `json:"continuous_mode"`
	RandomSeed     uint64 `json:"random_seed"`
	SingleChip     bool   `json:"single_chip"`
	LogLevel       string `json:"log_level"`
}

// EventSettings describe the physics and background events and the trigger
// timing.
type EventSettings struct {
	AverageEventRateNs     uint32 `json:"average_event_rate_ns"`
	TriggerDelayNs         uint32 `json:"trigger_delay_ns"`
	TriggerFilterTimeNs    uint32 `json:"trigger_filter_time_ns"`
	TriggerFilterEnable    bool   `json:"trigger_filter_enable"`
	StrobeActiveLengthNs   uint32 `json:"strobe_active_length_ns"`
	StrobeInactiveLengthNs uint32 `json:"strobe_inactive_length_ns"`

	RandomHitGeneration             bool    `json:"random_hit_generation"`
	HitMultiplicityMean             float64 `json:"hit_multiplicity_mean"`
	HitMultiplicityStdDev           float64 `json:"hit_multiplicity_stddev"`
	HitMultiplicityDistributionFile string  `json:"hit_multiplicity_distribution_file"`
	RandomClusterGeneration         bool    `json:"random_cluster_generation"`
	RandomClusterSizeMean           float64 `json:"random_cluster_size_mean"`
	RandomClusterSizeStdDev         float64 `json:"random_cluster_size_stddev"`

	MonteCarloFileType string `json:"monte_carlo_file_type"`
	MonteCarloPath     string `json:"monte_carlo_path"`

	QEDNoiseInput       bool   `json:"qed_noise_input"`
	QEDNoisePath        string `json:"qed_noise_path"`
	QEDNoiseFeedRateNs  uint32 `json:"qed_noise_feed_rate_ns"`
	QEDNoiseEventRateNs uint32 `json:"qed_noise_event_rate_ns"`
}

// AlpideSettings configure every chip.
type AlpideSettings struct {
	DataLongEnable           bool   `json:"data_long_enable"`
	DTUDelay                 uint32 `json:"dtu_delay"`
	PixelShapingDeadTimeNs   uint32 `json:"pixel_shaping_dead_time_ns"`
	PixelShapingActiveTimeNs uint32 `json:"pixel_shaping_active_time_ns"`
	MatrixReadoutSpeedFast   bool   `json:"matrix_readout_speed_fast"`
	StrobeExtensionEnable    bool   `json:"strobe_extension_enable"`
	MinimumBusyCycles        uint32 `json:"minimum_busy_cycles"`
	RegionFIFOSize           uint32 `json:"region_fifo_size"`
}

// ITSSettings set the number of simulated staves of every ITS layer.
type ITSSettings struct {
	Layer0NumStaves int `json:"layer0_num_staves"`
	Layer1NumStaves int `json:"layer1_num_staves"`
	Layer2NumStaves int `json:"layer2_num_staves"`
	Layer3NumStaves int `json:"layer3_num_staves"`
	Layer4NumStaves int `json:"layer4_num_staves"`
	Layer5NumStaves int `json:"layer5_num_staves"`
	Layer6NumStaves int `json:"layer6_num_staves"`
}

// Staves returns the stave counts as an array indexed by layer.
func (s ITSSettings) Staves() [7]int {
	return [7]int{
		s.Layer0NumStaves, s.Layer1NumStaves, s.Layer2NumStaves,
		s.Layer3NumStaves, s.Layer4NumStaves, s.Layer5NumStaves,
		s.Layer6NumStaves,
	}
}

// PCTSettings describe the pCT detector.
type PCTSettings struct {
	Layers            int `json:"layers"`
	NumStavesPerLayer int `json:"num_staves_per_layer"`
}

// FocalSettings describe the FoCal pixel layers.
type FocalSettings struct {
	StavesPerQuadrant int `json:"staves_per_quadrant"`
}

// ReadoutUnitSettings configure every Readout Unit.
type ReadoutUnitSettings struct {
	BusyTriggerHold    bool   `json:"busy_trigger_hold"`
	BusyThreshold      int    `json:"busy_threshold"`
	DataRateIntervalNs uint32 `json:"data_rate_interval_ns"`
}

// DataOutputSettings select the optional outputs.
type DataOutputSettings struct {
	OutputDirPrefix string `json:"output_dir_prefix"`
	WriteEventCSV   bool   `json:"write_event_csv"`
	WriteTrace      bool   `json:"write_trace"`
	BufferAnalysis  bool   `json:"buffer_analysis"`
	Recorder        string `json:"recorder"`
	RecorderDSN     string `json:"recorder_dsn"`
}

// MonitorSettings configure the web monitor.
type MonitorSettings struct {
	Enable      bool `json:"enable"`
	Port        int  `json:"port"`
	OpenBrowser bool `json:"open_browser"`
}

// Configuration holds all the settings of a run.
type Configuration struct {
	Simulation  SimulationSettings  `json:"simulation"`
	Event       EventSettings       `json:"event"`
	Alpide      AlpideSettings      `json:"alpide"`
	ITS         ITSSettings         `json:"its"`
	PCT         PCTSettings         `json:"pct"`
	Focal       FocalSettings       `json:"focal"`
	ReadoutUnit ReadoutUnitSettings `json:"readout_unit"`
	DataOutput  DataOutputSettings  `json:"data_output"`
	Monitor     MonitorSettings     `json:"monitor"`
}

// DefaultConfiguration returns the settings used for every key that the
// settings file does not set.
func DefaultConfiguration() Configuration {
	var config Configuration

	config.Simulation.Type = "its"
	config.Simulation.NEvents = 10000
	config.Simulation.ContinuousMode = false
	config.Simulation.RandomSeed = 0
	config.Simulation.SingleChip = true
	config.Simulation.LogLevel = "info"

	config.Event.AverageEventRateNs = 2500
	config.Event.TriggerDelayNs = 1000
	config.Event.TriggerFilterTimeNs = 10000
	config.Event.TriggerFilterEnable = true
	config.Event.StrobeActiveLengthNs = 100
	config.Event.StrobeInactiveLengthNs = 100
	config.Event.RandomHitGeneration = true
	config.Event.HitMultiplicityMean = 2
	config.Event.HitMultiplicityStdDev = 1
	config.Event.RandomClusterSizeMean = 4
	config.Event.RandomClusterSizeStdDev = 1
	config.Event.MonteCarloFileType = "binary"
	config.Event.QEDNoiseFeedRateNs = 10000
	config.Event.QEDNoiseEventRateNs = 2500

	config.Alpide.DataLongEnable = true
	config.Alpide.DTUDelay = 10
	config.Alpide.PixelShapingDeadTimeNs = 200
	config.Alpide.PixelShapingActiveTimeNs = 6000
	config.Alpide.MatrixReadoutSpeedFast = true
	config.Alpide.StrobeExtensionEnable = false
	config.Alpide.MinimumBusyCycles = 8
	config.Alpide.RegionFIFOSize = 128

	config.ITS.Layer0NumStaves = 12
	config.ITS.Layer1NumStaves = 16
	config.ITS.Layer2NumStaves = 20

	config.PCT.Layers = 1
	config.PCT.NumStavesPerLayer = 1

	config.Focal.StavesPerQuadrant = 1

	config.ReadoutUnit.BusyTriggerHold = false
	config.ReadoutUnit.BusyThreshold = 0
	config.ReadoutUnit.DataRateIntervalNs = 10000

	config.DataOutput.OutputDirPrefix = "sim_output"
	config.DataOutput.WriteEventCSV = true

	config.Monitor.Port = 0

	return config
}

// LoadConfiguration reads a JSON settings file on top of the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, sim.NewInputError("config",
			errors.WithStack(&ErrOpenFile{Filename: filename, Err: err}))
	}

	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, sim.NewConfigError("config",
			"parsing %s: %v", filename, err)
	}

	return config, nil
}

// Save writes the settings as indented JSON.
func Save(config Configuration, filename string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding settings")
	}

	return errors.Wrapf(os.WriteFile(filename, append(data, '\n'), 0o644),
		"writing %s", filename)
}

// StrobePeriod returns the time between two strobes in continuous mode.
func (c Configuration) StrobePeriod() sim.VTimeInNs {
	return sim.VTimeInNs(c.Event.StrobeActiveLengthNs) +
		sim.VTimeInNs(c.Event.StrobeInactiveLengthNs)
}
