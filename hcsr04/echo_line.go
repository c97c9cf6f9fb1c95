//go:build linux

package hcsr04

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// LineEcho is an Echo backed by the GPIO character device.
//
// The kernel timestamps every edge when the interrupt fires, so the ticks
// handed to the handler do not include the scheduling latency of the
// delivery goroutine. Timestamps come from CLOCK_MONOTONIC in nanoseconds.
type LineEcho struct {
	chip   string
	offset int
	edge   atomic.Int32

	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewLineEcho returns an Echo for line offset on chip, e.g. "gpiochip0".
func NewLineEcho(chip string, offset int) *LineEcho {
	return &LineEcho{chip: chip, offset: offset}
}

func (e *LineEcho) String() string {
	return fmt.Sprintf("%s:%d", e.chip, e.offset)
}

// Arm implements Echo.
func (e *LineEcho) Arm(edge gpio.Edge, h EdgeHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.line != nil {
		return errors.Newf("hcsr04: %s already armed", e)
	}
	if err := e.SetEdge(edge); err != nil {
		return err
	}
	l, err := gpiocdev.RequestLine(e.chip, e.offset,
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("hcsr04-echo"),
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			e.dispatch(evt, h)
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "hcsr04: request echo line %s", e)
	}
	e.line = l
	return nil
}

// dispatch forwards evt to h when it matches the programmed polarity.
func (e *LineEcho) dispatch(evt gpiocdev.LineEvent, h EdgeHandler) {
	var level gpio.Level
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		level = gpio.High
	case gpiocdev.LineEventFallingEdge:
		level = gpio.Low
	default:
		return
	}
	if matches(gpio.Edge(e.edge.Load()), level) {
		h(uint64(evt.Timestamp))
	}
}

// SetEdge implements Echo. Only gpio.RisingEdge and gpio.FallingEdge are
// accepted.
func (e *LineEcho) SetEdge(edge gpio.Edge) error {
	if edge != gpio.RisingEdge && edge != gpio.FallingEdge {
		return errors.Newf("hcsr04: unsupported edge %s", edge)
	}
	e.edge.Store(int32(edge))
	return nil
}

// Disarm implements Echo.
func (e *LineEcho) Disarm() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.line == nil {
		return nil
	}
	err := e.line.Close()
	e.line = nil
	if err != nil {
		return errors.Wrapf(err, "hcsr04: release echo line %s", e)
	}
	return nil
}

// Frequency implements Echo. Kernel event timestamps are nanoseconds.
func (e *LineEcho) Frequency() physic.Frequency {
	return physic.GigaHertz
}

// LineTrigger is a Trigger backed by a GPIO character device output line.
type LineTrigger struct {
	name string
	line *gpiocdev.Line
}

// NewLineTrigger requests line offset on chip as an output, initially low.
func NewLineTrigger(chip string, offset int) (*LineTrigger, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("hcsr04-trigger"),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "hcsr04: request trigger line %s:%d", chip, offset)
	}
	return &LineTrigger{name: fmt.Sprintf("%s:%d", chip, offset), line: l}, nil
}

func (t *LineTrigger) String() string {
	return t.name
}

// Out implements Trigger.
func (t *LineTrigger) Out(l gpio.Level) error {
	v := 0
	if l {
		v = 1
	}
	return t.line.SetValue(v)
}

// Close releases the line.
func (t *LineTrigger) Close() error {
	return t.line.Close()
}
