package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flavioheleno/rangematrix/chardev"
	"github.com/flavioheleno/rangematrix/config"
	"github.com/flavioheleno/rangematrix/max7219"
)

var playCmd = &cobra.Command{
	Use:   "play <sequence>",
	Short: "Play a configured step list",
	Long: `Load the frame table from the configuration, start the named step list
and wait until the display is ready again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := cfg.Display.Sequence(args[0])
		if err != nil {
			return err
		}

		dev, release, err := openDisplay(cfg.Display)
		if err != nil {
			return err
		}
		defer release()

		f, err := chardev.OpenDisplay(dev)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := loadFrames(f, cfg.Display.Frames); err != nil {
			return err
		}
		if err := play(f, steps, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Played %s on %s\n", args[0], dev)
		return nil
	},
}

// loadFrames configures every frame table entry.
func loadFrames(f *chardev.DisplayFile, frames []config.FrameConfig) error {
	for _, fc := range frames {
		frame := fc.Frame()
		if err := f.Configure(fc.Slot, frame[:]); err != nil {
			return err
		}
	}
	return nil
}

// play writes steps to the display endpoint and waits for the list to end.
func play(f *chardev.DisplayFile, steps []max7219.Step, c *config.Config) error {
	if _, err := f.Write(chardev.EncodeSteps(steps)); err != nil {
		return err
	}
	buf := make([]byte, 1)
	return waitReady(func() error {
		_, err := f.Read(buf)
		return err
	}, c.Display.PollInterval)
}
