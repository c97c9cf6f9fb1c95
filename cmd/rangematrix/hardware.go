package main

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/flavioheleno/rangematrix/admission"
	"github.com/flavioheleno/rangematrix/config"
	"github.com/flavioheleno/rangematrix/hcsr04"
	"github.com/flavioheleno/rangematrix/internal/logger"
	"github.com/flavioheleno/rangematrix/max7219"
)

var hostOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return errors.Wrap(err, "failed to initialize periph.io")
})

// openSensor creates the range sensor for the configured backend. The
// returned release function frees whatever the backend requested.
func openSensor(c config.SensorConfig) (*hcsr04.Dev, func(), error) {
	opts := c.Opts()
	opts.Logger = logger.Named("hcsr04")

	switch c.Backend {
	case config.BackendGPIOCdev:
		return openLineSensor(c, &opts)
	default:
		if err := hostOnce(); err != nil {
			return nil, nil, err
		}
		trig := gpioreg.ByName(c.TriggerPin)
		if trig == nil {
			return nil, nil, errors.Newf("GPIO pin %s not found", c.TriggerPin)
		}
		echo := gpioreg.ByName(c.EchoPin)
		if echo == nil {
			return nil, nil, errors.Newf("GPIO pin %s not found", c.EchoPin)
		}
		if err := trig.Out(gpio.Low); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to drive %s low", trig)
		}
		dev, err := hcsr04.New(trig, hcsr04.NewPinEcho(echo, nil), &opts)
		if err != nil {
			return nil, nil, err
		}
		return dev, func() { _ = trig.Halt() }, nil
	}
}

// openDisplay opens the SPI port and brings the matrix up.
func openDisplay(c config.DisplayConfig) (*max7219.Dev, func(), error) {
	if err := hostOnce(); err != nil {
		return nil, nil, err
	}
	port, err := spireg.Open(c.SPIPort)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open SPI port")
	}
	opts := c.Opts()
	opts.Logger = logger.Named("max7219")
	dev, err := max7219.NewSPI(port, &opts)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}
	return dev, func() { _ = port.Close() }, nil
}

// waitReady calls poll every interval until it stops reporting busy.
func waitReady(poll func() error, interval time.Duration) error {
	for {
		err := poll()
		if !errors.Is(err, admission.ErrBusy) {
			return err
		}
		time.Sleep(interval)
	}
}
