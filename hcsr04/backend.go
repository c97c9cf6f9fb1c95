package hcsr04

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Trigger drives the sensor trigger line. Any gpio.PinOut satisfies it.
type Trigger interface {
	Out(l gpio.Level) error
}

// EdgeHandler is called with the counter value latched at an echo edge.
// It runs in the echo backend's delivery context, never on the caller's
// goroutine, and must not block.
type EdgeHandler func(ticks uint64)

// Echo is the echo line seen as an edge interrupt source.
type Echo interface {
	fmt.Stringer

	// Arm starts delivering edges of the given polarity to h until Disarm.
	// Edges are delivered one at a time, in order.
	Arm(edge gpio.Edge, h EdgeHandler) error
	// SetEdge reprograms the polarity delivered to the handler. It must be
	// safe to call from inside the handler.
	SetEdge(edge gpio.Edge) error
	// Disarm stops delivery and releases the line.
	Disarm() error
	// Frequency is the rate of the counter the edge timestamps come from.
	Frequency() physic.Frequency
}

// Counter is a free-running hardware counter.
type Counter interface {
	Ticks() uint64
	Frequency() physic.Frequency
}

// Monotonic is a Counter backed by the process monotonic clock, ticking
// every nanosecond.
type Monotonic struct {
	epoch time.Time
}

// NewMonotonic returns a Monotonic counter starting at zero now.
func NewMonotonic() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

// Ticks returns the nanoseconds elapsed since the counter was created.
func (m *Monotonic) Ticks() uint64 {
	return uint64(time.Since(m.epoch))
}

// Frequency returns 1GHz.
func (m *Monotonic) Frequency() physic.Frequency {
	return physic.GigaHertz
}

// matches reports whether a transition to level is an edge of polarity want.
func matches(want gpio.Edge, level gpio.Level) bool {
	switch want {
	case gpio.RisingEdge:
		return level == gpio.High
	case gpio.FallingEdge:
		return level == gpio.Low
	case gpio.BothEdges:
		return true
	default:
		return false
	}
}
