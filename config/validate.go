package config

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/flavioheleno/rangematrix/max7219"
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	s := &c.Sensor
	switch s.Backend {
	case BackendPeriph:
		if s.TriggerPin == "" || s.EchoPin == "" {
			return errors.New("sensor.trigger_pin and sensor.echo_pin are required by the periph backend")
		}
	case BackendGPIOCdev:
		if s.Chip == "" {
			return errors.New("sensor.chip is required by the gpiocdev backend")
		}
		if s.TriggerOffset < 0 || s.EchoOffset < 0 {
			return errors.Newf("sensor line offsets must be >= 0, got %d and %d", s.TriggerOffset, s.EchoOffset)
		}
	default:
		return errors.WithHintf(
			errors.Newf("unknown sensor.backend %q", s.Backend),
			"use %q or %q", BackendPeriph, BackendGPIOCdev,
		)
	}
	if s.TriggerPulse < 0 {
		return errors.Newf("sensor.trigger_pulse must be >= 0, got %s", s.TriggerPulse)
	}
	if s.EchoTimeout < 0 {
		return errors.Newf("sensor.echo_timeout must be >= 0, got %s", s.EchoTimeout)
	}
	if s.SpeedOfSound <= 0 {
		return errors.Newf("sensor.speed_of_sound must be > 0, got %g", s.SpeedOfSound)
	}
	if s.CounterFrequencyHz < 0 {
		return errors.Newf("sensor.counter_frequency_hz must be >= 0, got %g", s.CounterFrequencyHz)
	}

	d := &c.Display
	if d.Intensity < 0 || d.Intensity > 15 {
		return errors.Newf("display.intensity must be in [0, 15], got %d", d.Intensity)
	}
	seen := map[int]bool{}
	for _, f := range d.Frames {
		if f.Slot < 0 || f.Slot >= max7219.NumSlots {
			return errors.Newf("display.frames: slot %d out of range [0, %d)", f.Slot, max7219.NumSlots)
		}
		if seen[f.Slot] {
			return errors.Newf("display.frames: slot %d defined twice", f.Slot)
		}
		seen[f.Slot] = true
		if len(f.Columns) != 8 {
			return errors.Newf("display.frames: slot %d has %d columns, want 8", f.Slot, len(f.Columns))
		}
		for _, col := range f.Columns {
			if col < 0 || col > 0xFF {
				return errors.Newf("display.frames: slot %d column %d is not a byte", f.Slot, col)
			}
		}
	}

	names := make([]string, 0, len(d.Sequences))
	for name := range d.Sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := d.Sequence(name); err != nil {
			return err
		}
	}
	return nil
}
