package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/sim"
)

// Environment variables that override settings.
const (
	EnvOutputDir   = "ALPIDESIM_OUTPUT_DIR"
	EnvRandomSeed  = "ALPIDESIM_RANDOM_SEED"
	EnvNEvents     = "ALPIDESIM_N_EVENTS"
	EnvMonitorPort = "ALPIDESIM_MONITOR_PORT"
	EnvLogLevel    = "ALPIDESIM_LOG_LEVEL"
)

var envKeys = []string{
	EnvOutputDir, EnvRandomSeed, EnvNEvents, EnvMonitorPort, EnvLogLevel,
}

// ApplyEnv overrides settings from dotenv files and from the process
// environment. Missing dotenv files are skipped. Process variables win over
// the files.
func ApplyEnv(config *Configuration, envFiles ...string) error {
	values := make(map[string]string)

	for _, f := range envFiles {
		fileValues, err := godotenv.Read(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return sim.NewInputError("config",
				errors.Wrapf(err, "reading %s", f))
		}

		for k, v := range fileValues {
			values[k] = v
		}
	}

	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			values[k] = v
		}
	}

	return applyValues(config, values)
}

func applyValues(config *Configuration, values map[string]string) error {
	if v, ok := values[EnvOutputDir]; ok && v != "" {
		config.DataOutput.OutputDirPrefix = v
	}

	if v, ok := values[EnvLogLevel]; ok && v != "" {
		config.Simulation.LogLevel = v
	}

	if v, ok := values[EnvRandomSeed]; ok {
		seed, err := parseUint(EnvRandomSeed, v)
		if err != nil {
			return err
		}

		config.Simulation.RandomSeed = seed
	}

	if v, ok := values[EnvNEvents]; ok {
		n, err := parseUint(EnvNEvents, v)
		if err != nil {
			return err
		}

		config.Simulation.NEvents = n
	}

	if v, ok := values[EnvMonitorPort]; ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return invalidEnv(EnvMonitorPort, v, err)
		}

		config.Monitor.Port = port
	}

	return nil
}

func parseUint(name, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, invalidEnv(name, v, err)
	}

	return n, nil
}

func invalidEnv(name, value string, err error) error {
	return &sim.SimError{
		Kind:  sim.ConfigError,
		Where: "config",
		Err:   &ErrInvalidEnv{Name: name, Value: value, Err: err},
	}
}
