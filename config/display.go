package config

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/flavioheleno/rangematrix/image8x8"
	"github.com/flavioheleno/rangematrix/max7219"
)

// Frame returns the frame described by f.
func (f FrameConfig) Frame() image8x8.Frame {
	var frame image8x8.Frame
	for i, col := range f.Columns {
		if i < len(frame) {
			frame[i] = byte(col)
		}
	}
	return frame
}

// Opts returns the max7219 options for this configuration.
func (d DisplayConfig) Opts() max7219.Opts {
	return max7219.Opts{Intensity: byte(d.Intensity)}
}

// SequenceNames returns the configured step list names, sorted.
func (d DisplayConfig) SequenceNames() []string {
	names := make([]string, 0, len(d.Sequences))
	for name := range d.Sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sequence returns the step list called name.
func (d DisplayConfig) Sequence(name string) ([]max7219.Step, error) {
	raw, ok := d.Sequences[name]
	if !ok {
		return nil, errors.WithHintf(
			errors.Newf("unknown sequence %q", name),
			"configured sequences: %v", d.SequenceNames(),
		)
	}
	if len(raw) > max7219.MaxSteps {
		return nil, errors.Newf("display.sequences.%s: %d steps, at most %d", name, len(raw), max7219.MaxSteps)
	}
	steps := make([]max7219.Step, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, errors.Newf("display.sequences.%s: step %d must be [frame, ms]", name, i)
		}
		for _, v := range pair {
			if v < 0 || v > 0xFFFF {
				return nil, errors.Newf("display.sequences.%s: step %d value %d out of range", name, i, v)
			}
		}
		steps[i] = max7219.Step{Frame: uint16(pair[0]), Duration: uint16(pair[1])}
	}
	return steps, nil
}
