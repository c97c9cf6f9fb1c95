//go:build linux

package main

import (
	"github.com/flavioheleno/rangematrix/config"
	"github.com/flavioheleno/rangematrix/hcsr04"
)

// openLineSensor uses the GPIO character device, with kernel timestamps on
// the echo edges.
func openLineSensor(c config.SensorConfig, opts *hcsr04.Opts) (*hcsr04.Dev, func(), error) {
	trig, err := hcsr04.NewLineTrigger(c.Chip, c.TriggerOffset)
	if err != nil {
		return nil, nil, err
	}
	dev, err := hcsr04.New(trig, hcsr04.NewLineEcho(c.Chip, c.EchoOffset), opts)
	if err != nil {
		_ = trig.Close()
		return nil, nil, err
	}
	return dev, func() { _ = trig.Close() }, nil
}
