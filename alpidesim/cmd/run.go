package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/simulation"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: "`run` simulates the detector of the settings file and writes " +
		"the results into a new run directory below the output prefix.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		if err := applyRunFlags(cmd, &cfg); err != nil {
			return err
		}

		return runSimulation(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(c *cobra.Command) {
	c.Flags().String("output", "", "Prefix of the run directories")
	c.Flags().Uint64("events", 0, "Number of triggered events")
	c.Flags().Uint64("seed", 0, "Seed of the random number generator")
	c.Flags().Bool("monitor", false, "Serve the web monitor")
	c.Flags().Int("monitor-port", 0, "Port of the web monitor")
	c.Flags().Bool("open-browser", false,
		"Open the web monitor in a browser, implies --monitor")
}

// applyRunFlags overrides the settings with the flags that were given.
func applyRunFlags(cmd *cobra.Command, cfg *config.Configuration) error {
	flags := cmd.Flags()

	if flags.Changed("output") {
		cfg.DataOutput.OutputDirPrefix, _ = flags.GetString("output")
	}

	if flags.Changed("events") {
		cfg.Simulation.NEvents, _ = flags.GetUint64("events")
	}

	if flags.Changed("seed") {
		cfg.Simulation.RandomSeed, _ = flags.GetUint64("seed")
	}

	if flags.Changed("monitor") {
		cfg.Monitor.Enable, _ = flags.GetBool("monitor")
	}

	if flags.Changed("monitor-port") {
		cfg.Monitor.Port, _ = flags.GetInt("monitor-port")
	}

	if flags.Changed("open-browser") {
		cfg.Monitor.OpenBrowser, _ = flags.GetBool("open-browser")
		cfg.Monitor.Enable = cfg.Monitor.Enable || cfg.Monitor.OpenBrowser
	}

	return cfg.Validate()
}

func runSimulation(cmd *cobra.Command, cfg config.Configuration) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	config.PrintConfiguration(cfg, logger)

	dir, err := config.CreateRunDir(cfg.DataOutput.OutputDirPrefix)
	if err != nil {
		return err
	}

	logger.Info("Output directory: "+dir, "module", "main")

	s, err := simulation.MakeBuilder().
		WithConfig(cfg).
		WithOutputDir(dir).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	atexit.Register(func() {
		if err := s.Terminate(); err != nil {
			logger.Error("closing outputs", "module", "main", "error", err)
		}
	})

	ctx, stop := signal.NotifyContext(interruptibleContext(cmd),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// interruptibleContext is the context of the command, or a background one
// when the command runs outside of Execute.
func interruptibleContext(cmd *cobra.Command) context.Context {
	if cmd.Context() != nil {
		return cmd.Context()
	}

	return context.Background()
}
