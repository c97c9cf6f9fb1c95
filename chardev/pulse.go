package chardev

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"periph.io/x/conn/v3/physic"
)

// Ranger is a distance measurement engine such as *hcsr04.Dev.
type Ranger interface {
	Open() error
	Close() error
	Start() error
	Read() (physic.Distance, error)
}

// PulseFile is an open pulse endpoint.
type PulseFile struct {
	dev Ranger

	mu     sync.Mutex
	closed bool
}

// OpenPulse arms dev and returns its endpoint.
func OpenPulse(dev Ranger) (*PulseFile, error) {
	if err := dev.Open(); err != nil {
		return nil, errors.Wrap(err, "chardev: open pulse endpoint")
	}
	return &PulseFile{dev: dev}, nil
}

func (f *PulseFile) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Write starts a measurement. The payload is ignored and reported as fully
// written. It fails with admission.ErrBusy while a measurement runs.
func (f *PulseFile) Write(p []byte) (int, error) {
	if f.isClosed() {
		return 0, os.ErrClosed
	}
	if err := f.dev.Start(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read fills p with the last distance in millimetres as a little-endian
// uint32. p must hold at least DistanceSize bytes. It fails with the
// engine's not-ready error while a measurement runs.
func (f *PulseFile) Read(p []byte) (int, error) {
	if f.isClosed() {
		return 0, os.ErrClosed
	}
	if len(p) < DistanceSize {
		return 0, io.ErrShortBuffer
	}
	d, err := f.dev.Read()
	if err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(p, Millimetres(d))
	return DistanceSize, nil
}

// Close releases the echo interrupt. Closing twice does nothing.
func (f *PulseFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.dev.Close()
}

// Millimetres rounds d to the nearest millimetre, saturating at the uint32
// range.
func Millimetres(d physic.Distance) uint32 {
	if d <= 0 {
		return 0
	}
	mm := (d + physic.MilliMetre/2) / physic.MilliMetre
	if mm > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(mm)
}
