//go:build !linux

package main

import (
	"github.com/cockroachdb/errors"

	"github.com/flavioheleno/rangematrix/config"
	"github.com/flavioheleno/rangematrix/hcsr04"
)

func openLineSensor(c config.SensorConfig, opts *hcsr04.Opts) (*hcsr04.Dev, func(), error) {
	return nil, nil, errors.WithHint(
		errors.New("the gpiocdev backend needs Linux"),
		"set sensor.backend to periph",
	)
}
