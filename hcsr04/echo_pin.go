package hcsr04

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// pinPollInterval bounds how long Disarm waits for the edge watcher.
const pinPollInterval = 100 * time.Millisecond

// PinEcho is an Echo backed by a periph.io input pin.
//
// The pin is armed for both edges; a watcher goroutine wakes on every edge,
// latches the counter, reads the level back and forwards the edge to the
// handler only when it matches the programmed polarity. Reprogramming the
// polarity is an atomic store, so the handler may do it without touching the
// pin.
type PinEcho struct {
	pin     gpio.PinIn
	counter Counter
	edge    atomic.Int32

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPinEcho returns an Echo watching pin. counter timestamps the edges; nil
// uses a Monotonic counter.
func NewPinEcho(pin gpio.PinIn, counter Counter) *PinEcho {
	if counter == nil {
		counter = NewMonotonic()
	}
	return &PinEcho{pin: pin, counter: counter}
}

func (e *PinEcho) String() string {
	return e.pin.String()
}

// Arm implements Echo.
func (e *PinEcho) Arm(edge gpio.Edge, h EdgeHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stop != nil {
		return errors.Newf("hcsr04: %s already armed", e.pin)
	}
	if err := e.SetEdge(edge); err != nil {
		return err
	}
	if err := e.pin.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return errors.Wrapf(err, "hcsr04: arm %s", e.pin)
	}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.watch(h, e.stop, e.done)
	return nil
}

// watch is the delivery context: it owns the calls to h.
func (e *PinEcho) watch(h EdgeHandler, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !e.pin.WaitForEdge(pinPollInterval) {
			continue
		}
		// Latch the counter before anything else
		ticks := e.counter.Ticks()
		if matches(gpio.Edge(e.edge.Load()), e.pin.Read()) {
			h(ticks)
		}
	}
}

// SetEdge implements Echo. Only gpio.RisingEdge and gpio.FallingEdge are
// accepted.
func (e *PinEcho) SetEdge(edge gpio.Edge) error {
	if edge != gpio.RisingEdge && edge != gpio.FallingEdge {
		return errors.Newf("hcsr04: unsupported edge %s", edge)
	}
	e.edge.Store(int32(edge))
	return nil
}

// Disarm implements Echo.
func (e *PinEcho) Disarm() error {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	if err := e.pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return errors.Wrapf(err, "hcsr04: disarm %s", e.pin)
	}
	return nil
}

// Frequency implements Echo.
func (e *PinEcho) Frequency() physic.Frequency {
	return e.counter.Frequency()
}
