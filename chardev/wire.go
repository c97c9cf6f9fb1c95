package chardev

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/flavioheleno/rangematrix/max7219"
)

const (
	// StepSize is the encoded size of one step.
	StepSize = 4
	// DistanceSize is the encoded size of a distance.
	DistanceSize = 4
	// PatternSize is the size of one frame pattern.
	PatternSize = 8
)

// EncodeSteps returns the Write payload for steps.
func EncodeSteps(steps []max7219.Step) []byte {
	b := make([]byte, len(steps)*StepSize)
	for i, s := range steps {
		binary.LittleEndian.PutUint16(b[i*StepSize:], s.Frame)
		binary.LittleEndian.PutUint16(b[i*StepSize+2:], s.Duration)
	}
	return b
}

// DecodeSteps parses a Write payload. It fails with max7219.ErrMalformed
// when the payload is not a whole number of steps or holds more than
// max7219.MaxSteps of them.
func DecodeSteps(b []byte) ([]max7219.Step, error) {
	if len(b)%StepSize != 0 {
		return nil, errors.Wrapf(max7219.ErrMalformed, "payload of %d bytes is not a multiple of %d", len(b), StepSize)
	}
	n := len(b) / StepSize
	if n > max7219.MaxSteps {
		return nil, errors.Wrapf(max7219.ErrMalformed, "%d steps, at most %d", n, max7219.MaxSteps)
	}
	steps := make([]max7219.Step, n)
	for i := range steps {
		steps[i] = max7219.Step{
			Frame:    binary.LittleEndian.Uint16(b[i*StepSize:]),
			Duration: binary.LittleEndian.Uint16(b[i*StepSize+2:]),
		}
	}
	return steps, nil
}
