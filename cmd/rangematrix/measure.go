package main

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flavioheleno/rangematrix/chardev"
	"github.com/flavioheleno/rangematrix/internal/logger"
)

var (
	measureCount    int
	measureInterval time.Duration
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Take distance readings",
	Long: `Trigger the sensor, poll the pulse endpoint until the reading is ready
and print it in millimetres. Repeats --count times.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, release, err := openSensor(cfg.Sensor)
		if err != nil {
			return err
		}
		defer release()

		f, err := chardev.OpenPulse(dev)
		if err != nil {
			return err
		}
		defer f.Close()

		for i := 0; i < measureCount; i++ {
			if i > 0 {
				time.Sleep(measureInterval)
			}
			mm, err := measureOnce(f, cfg.Sensor.PollInterval)
			if err != nil {
				logger.Logger.Warnw("Measurement failed", "reading", i+1, "error", err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d mm\n", mm)
		}
		return nil
	},
}

func init() {
	measureCmd.Flags().IntVarP(&measureCount, "count", "n", 1, "Number of readings")
	measureCmd.Flags().DurationVar(&measureInterval, "interval", 100*time.Millisecond, "Pause between readings")
}

// measureOnce runs one measurement through the pulse endpoint.
func measureOnce(f *chardev.PulseFile, poll time.Duration) (uint32, error) {
	if _, err := f.Write([]byte{1}); err != nil {
		return 0, err
	}
	buf := make([]byte, chardev.DistanceSize)
	err := waitReady(func() error {
		_, err := f.Read(buf)
		return err
	}, poll)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}
