package config

import (
	"periph.io/x/conn/v3/physic"

	"github.com/flavioheleno/rangematrix/hcsr04"
)

// Opts returns the hcsr04 options for this configuration.
func (s SensorConfig) Opts() hcsr04.Opts {
	return hcsr04.Opts{
		TriggerPulse:     s.TriggerPulse,
		EchoTimeout:      s.EchoTimeout,
		SpeedOfSound:     physic.Speed(s.SpeedOfSound * float64(physic.MetrePerSecond)),
		CounterFrequency: physic.Frequency(s.CounterFrequencyHz * float64(physic.Hertz)),
	}
}
