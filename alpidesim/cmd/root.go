// Package cmd provides the command-line interface of the simulator.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/logging"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alpidesim",
	Short: "alpidesim simulates the readout chain of ALPIDE pixel detectors.",
	Long: `alpidesim simulates the readout chain of ALPIDE pixel detectors ` +
		`from the pixel hits to the data links of the Readout Units. ` +
		`The detector, the events, and the outputs are selected in a ` +
		`JSON settings file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("settings", "settings.json",
		"Settings file of the run")
	rootCmd.PersistentFlags().CountP("verbose", "v",
		"Log more details, repeat for even more")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It does not return.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "alpidesim: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadSettings reads the settings file and the environment overrides. A
// missing default settings file leaves the defaults in place.
func loadSettings(cmd *cobra.Command) (config.Configuration, error) {
	path, _ := cmd.Flags().GetString("settings")

	cfg, err := config.LoadConfiguration(path)
	if err != nil {
		if cmd.Flags().Changed("settings") || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}

		cfg = config.DefaultConfiguration()
	}

	if err := config.ApplyEnv(&cfg, ".env"); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Configuration) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Simulation.LogLevel)
	if err != nil {
		return nil, err
	}

	if verbose, _ := cmd.Flags().GetCount("verbose"); verbose > 0 {
		level = slog.LevelDebug
	}

	return logging.NewLogger(cmd.ErrOrStderr(), level), nil
}
