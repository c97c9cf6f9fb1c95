package main

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/flavioheleno/rangematrix/chardev"
	"github.com/flavioheleno/rangematrix/image8x8"
	"github.com/flavioheleno/rangematrix/internal/logger"
	"github.com/flavioheleno/rangematrix/max7219"
)

var (
	demoCount int
	demoFull  int
)

var demoCmd = &cobra.Command{
	Use:   "demo [all|patterns|intensity|range]",
	Short: "Run built-in demonstrations",
	Long: `Run built-in demonstrations that need no frame table in the
configuration:
  patterns   checkerboards, a border and a smiley
  intensity  cycle the brightness through all 16 levels
  range      show live distance readings as a bar graph`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"all", "patterns", "intensity", "range"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "all"
		if len(args) == 1 {
			mode = args[0]
		}

		dev, release, err := openDisplay(cfg.Display)
		if err != nil {
			return err
		}
		defer release()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Display initialized: %v\n", dev)

		switch mode {
		case "all":
			err = runAllDemos(out, dev)
		case "patterns":
			err = runPatternDemo(out, dev)
		case "intensity":
			err = runIntensityDemo(out, dev)
		case "range":
			err = runRangeDemo(out, dev)
		default:
			return errors.WithHint(errors.Newf("unknown demo %q", mode), "use all, patterns, intensity or range")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Demo complete")
		return nil
	},
}

func init() {
	demoCmd.Flags().IntVarP(&demoCount, "count", "n", 20, "Readings shown by the range demo")
	demoCmd.Flags().IntVar(&demoFull, "full-scale", 1000, "Distance in millimetres that lights the whole matrix")
}

// runAllDemos runs every demonstration that needs only the display.
func runAllDemos(out io.Writer, dev *max7219.Dev) error {
	fmt.Fprintln(out, "\n=== Running All Demos ===")

	fmt.Fprintln(out, "1. Pattern Demo")
	if err := runPatternDemo(out, dev); err != nil {
		return err
	}
	fmt.Fprintln(out, "\n2. Intensity Demo")
	return runIntensityDemo(out, dev)
}

// patternSteps plays the frames loaded by runPatternDemo and clears.
var patternSteps = []max7219.Step{
	{Frame: 0, Duration: 300},
	{Frame: 1, Duration: 300},
	{Frame: 0, Duration: 300},
	{Frame: 1, Duration: 300},
	{Frame: 2, Duration: 600},
	{Frame: 3, Duration: 1500},
	{}, // clear
}

// runPatternDemo loads test patterns into the frame table and plays them.
func runPatternDemo(out io.Writer, dev *max7219.Dev) error {
	fmt.Fprintln(out, "  Loading test patterns...")
	frames := []image8x8.Frame{checkerboard(0), checkerboard(1), border(), smiley}
	for slot, f := range frames {
		if err := dev.Configure(slot, f); err != nil {
			return err
		}
	}
	if err := dev.Start(patternSteps); err != nil {
		return err
	}
	if err := waitReady(dev.Poll, cfg.Display.PollInterval); err != nil {
		return err
	}
	fmt.Fprintln(out, "  Patterns played")
	return nil
}

// runIntensityDemo shows a frame and cycles through the brightness levels.
func runIntensityDemo(out io.Writer, dev *max7219.Dev) error {
	fmt.Fprintln(out, "  Cycling intensity levels...")
	if err := dev.Configure(0, border()); err != nil {
		return err
	}
	// A list without a sentinel leaves the last frame on screen
	if err := dev.Start([]max7219.Step{{Frame: 0, Duration: 1}}); err != nil {
		return err
	}
	if err := waitReady(dev.Poll, cfg.Display.PollInterval); err != nil {
		return err
	}

	for level := byte(0); level <= 0x0F; level++ {
		if err := dev.SetIntensity(level); err != nil {
			fmt.Fprintf(out, "  Error setting intensity %d: %v\n", level, err)
			continue
		}
		fmt.Fprintf(out, "  Intensity: %d\n", level)
		time.Sleep(300 * time.Millisecond)
	}

	if err := dev.SetIntensity(byte(cfg.Display.Intensity)); err != nil {
		return err
	}
	return clearDisplay(dev)
}

// runRangeDemo shows every reading of the sensor as a bar graph.
func runRangeDemo(out io.Writer, dev *max7219.Dev) error {
	sensor, release, err := openSensor(cfg.Sensor)
	if err != nil {
		return err
	}
	defer release()

	f, err := chardev.OpenPulse(sensor)
	if err != nil {
		return err
	}
	defer f.Close()

	full := physic.Distance(demoFull) * physic.MilliMetre
	for i := 0; i < demoCount; i++ {
		mm, err := measureOnce(f, cfg.Sensor.PollInterval)
		if err != nil {
			logger.Logger.Warnw("Measurement failed", "reading", i+1, "error", err)
			continue
		}
		fmt.Fprintf(out, "  %4d mm\n", mm)

		if err := dev.Configure(0, bar(physic.Distance(mm)*physic.MilliMetre, full)); err != nil {
			return err
		}
		if err := dev.Start([]max7219.Step{{Frame: 0, Duration: 100}}); err != nil {
			return err
		}
		if err := waitReady(dev.Poll, cfg.Display.PollInterval); err != nil {
			return err
		}
	}
	return clearDisplay(dev)
}

// clearDisplay plays the lone sentinel, which blanks the matrix.
func clearDisplay(dev *max7219.Dev) error {
	if err := dev.Start([]max7219.Step{{}}); err != nil {
		return err
	}
	return waitReady(dev.Poll, cfg.Display.PollInterval)
}
