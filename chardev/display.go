package chardev

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/flavioheleno/rangematrix/image8x8"
	"github.com/flavioheleno/rangematrix/max7219"
)

// Sequencer is a frame sequencing engine such as *max7219.Dev.
type Sequencer interface {
	Configure(slot int, frame image8x8.Frame) error
	Start(steps []max7219.Step) error
	Poll() error
}

// DisplayFile is an open display endpoint.
type DisplayFile struct {
	dev Sequencer

	mu     sync.Mutex
	closed bool
}

// OpenDisplay returns the endpoint for dev. The display was brought up when
// dev was created, so there is nothing else to do.
func OpenDisplay(dev Sequencer) (*DisplayFile, error) {
	return &DisplayFile{dev: dev}, nil
}

func (f *DisplayFile) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Configure loads an 8-byte column pattern into frame slot. It fails with
// admission.ErrBusy while a step list is playing.
func (f *DisplayFile) Configure(slot int, pattern []byte) error {
	if f.isClosed() {
		return os.ErrClosed
	}
	if len(pattern) != PatternSize {
		return errors.Newf("chardev: pattern of %d bytes, want %d", len(pattern), PatternSize)
	}
	var frame image8x8.Frame
	copy(frame[:], pattern)
	return f.dev.Configure(slot, frame)
}

// Write decodes p as a step list and starts playing it. It fails with
// max7219.ErrMalformed for a payload DecodeSteps rejects and with
// admission.ErrBusy while a step list is playing.
func (f *DisplayFile) Write(p []byte) (int, error) {
	if f.isClosed() {
		return 0, os.ErrClosed
	}
	steps, err := DecodeSteps(p)
	if err != nil {
		return 0, err
	}
	if err := f.dev.Start(steps); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read writes a single 1 to p when the display is ready for the next
// Configure or Write. It fails with admission.ErrBusy otherwise. An empty p
// reads nothing.
func (f *DisplayFile) Read(p []byte) (int, error) {
	if f.isClosed() {
		return 0, os.ErrClosed
	}
	if err := f.dev.Poll(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = 1
	return 1, nil
}

// Close marks the endpoint closed. The display keeps its content.
func (f *DisplayFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
