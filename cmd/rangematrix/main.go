// Command rangematrix measures distance with an HC-SR04 sensor and plays
// animations on a MAX7219 8x8 LED matrix.
//
// Hardware Setup:
//
//	Device    Raspberry Pi
//	HC-SR04   TRIG → GPIO23, ECHO → GPIO24 (through a divider)
//	MAX7219   DIN → GPIO10 (SPI0 MOSI), CLK → GPIO11 (SPI0 CLK), CS → GPIO8 (SPI0 CE0)
//
// Pins, bus and timings come from a TOML file (--config) and RANGEMATRIX_
// environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/flavioheleno/rangematrix/config"
	"github.com/flavioheleno/rangematrix/internal/logger"
)

var (
	configPath string
	jsonLogs   bool
	logLevel   string

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rangematrix",
	Short: "Ultrasonic ranging and LED matrix animation",
	Long: `rangematrix drives an HC-SR04 ultrasonic range sensor and a MAX7219
8x8 LED matrix. Each device runs one job at a time; commands start a job and
poll until it is done.

Examples:
  rangematrix measure -n 10          # Ten distance readings
  rangematrix play pulse             # Play the step list called "pulse"
  rangematrix demo range             # Show the distance as a bar graph`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonLogs, logLevel); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(measureCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
