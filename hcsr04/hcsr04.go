package hcsr04

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/flavioheleno/rangematrix/admission"
)

const (
	// DefaultTriggerPulse is how long the trigger line is held high. The
	// sensor needs 10µs; the extra margin covers sleep granularity.
	DefaultTriggerPulse = 150 * time.Microsecond
	// DefaultEchoTimeout bounds the wait for a complete echo. It only
	// expires when the sensor is faulty or disconnected.
	DefaultEchoTimeout = 1000 * time.Second
	// DefaultSpeedOfSound is the speed of sound in dry air at 20°C.
	DefaultSpeedOfSound = 343 * physic.MetrePerSecond
)

var (
	// ErrNotReady is returned by Read while a measurement is in progress.
	// It matches admission.ErrBusy.
	ErrNotReady = errors.Mark(errors.New("hcsr04: measurement in progress"), admission.ErrBusy)
	// ErrNoResult is returned by Read before the first measurement
	// completes.
	ErrNoResult = errors.New("hcsr04: no measurement")
	// ErrTimeout is returned by Read when the last measurement saw no
	// complete echo.
	ErrTimeout = errors.New("hcsr04: echo timeout")
)

// EdgePhase is the echo edge the interrupt handler is waiting for.
type EdgePhase int32

const (
	// AwaitingRising waits for the start of the echo pulse.
	AwaitingRising EdgePhase = iota
	// AwaitingFalling waits for the end of the echo pulse.
	AwaitingFalling
)

func (p EdgePhase) String() string {
	if p == AwaitingFalling {
		return "AwaitingFalling"
	}
	return "AwaitingRising"
}

// Opts is the configuration for the sensor.
type Opts struct {
	// TriggerPulse is how long the trigger line is held high (default 150µs).
	TriggerPulse time.Duration
	// EchoTimeout bounds the wait for a complete echo (default 1000s).
	EchoTimeout time.Duration
	// SpeedOfSound converts echo time to distance (default 343m/s).
	SpeedOfSound physic.Speed
	// CounterFrequency is the tick rate of the echo timestamps. Zero uses the
	// Echo's own Frequency.
	CounterFrequency physic.Frequency
	// Logger receives worker outcomes. nil disables logging.
	Logger *zap.SugaredLogger
}

// result is what the last measurement left behind.
type result struct {
	distance physic.Distance
	err      error
	valid    bool
}

// Dev is the device handle for an HC-SR04 ultrasonic range sensor.
type Dev struct {
	trig Trigger
	echo Echo
	opts Opts

	// nmPerTick is the one-way distance sound covers per counter tick,
	// halved for the round trip.
	nmPerTick float64

	gate admission.Gate

	// Owned by the interrupt handler
	phase      atomic.Int32
	startTicks atomic.Uint64
	endTicks   atomic.Uint64
	done       chan struct{} // completion signal, capacity 1

	// Guarded by gate
	last result

	mu    sync.Mutex // guards armed
	armed bool

	log *zap.SugaredLogger
}

// New returns a sensor using trig and echo. opts can be nil to use
// defaults. The echo line is not armed until Open.
func New(trig Trigger, echo Echo, opts *Opts) (*Dev, error) {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.TriggerPulse <= 0 {
		o.TriggerPulse = DefaultTriggerPulse
	}
	if o.EchoTimeout <= 0 {
		o.EchoTimeout = DefaultEchoTimeout
	}
	if o.SpeedOfSound <= 0 {
		o.SpeedOfSound = DefaultSpeedOfSound
	}
	if o.CounterFrequency <= 0 {
		o.CounterFrequency = echo.Frequency()
	}
	if o.CounterFrequency <= 0 {
		return nil, errors.Newf("hcsr04: invalid counter frequency %s", o.CounterFrequency)
	}

	d := &Dev{
		trig: trig,
		echo: echo,
		opts: o,
		// Speed is in nm/s and frequency in µHz
		nmPerTick: float64(o.SpeedOfSound) * float64(physic.Hertz) / (2 * float64(o.CounterFrequency)),
		done:      make(chan struct{}, 1),
		log:       o.Logger,
	}
	if d.log == nil {
		d.log = zap.NewNop().Sugar()
	}
	return d, nil
}

// Open arms the echo interrupt. Opening an open device does nothing.
func (d *Dev) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.armed {
		return nil
	}
	d.phase.Store(int32(AwaitingRising))
	if err := d.echo.Arm(gpio.RisingEdge, d.onEdge); err != nil {
		return errors.Mark(err, admission.ErrResourceUnavailable)
	}
	d.armed = true
	return nil
}

// Close releases the echo interrupt. A measurement in flight when Close is
// called ends with a timeout.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.armed {
		return nil
	}
	d.armed = false
	return d.echo.Disarm()
}

// onEdge is the interrupt handler. It alternates strictly between the two
// phases and never blocks; an edge outside the alternation shifts every
// following measurement by one edge.
func (d *Dev) onEdge(ticks uint64) {
	if EdgePhase(d.phase.Load()) == AwaitingRising {
		d.startTicks.Store(ticks)
		if err := d.echo.SetEdge(gpio.FallingEdge); err == nil {
			d.phase.Store(int32(AwaitingFalling))
		}
		return
	}

	d.endTicks.Store(ticks)
	if err := d.echo.SetEdge(gpio.RisingEdge); err == nil {
		d.phase.Store(int32(AwaitingRising))
	}
	select {
	case d.done <- struct{}{}:
	default:
	}
}

// EdgePhase returns the edge the interrupt handler is waiting for.
func (d *Dev) EdgePhase() EdgePhase {
	return EdgePhase(d.phase.Load())
}

// Start triggers a measurement in the background.
//
// It fails with admission.ErrBusy while a measurement is in progress and
// with admission.ErrResourceUnavailable when the echo line is not armed; in
// both cases the trigger line is left untouched. Use Poll to find out when
// the result is ready.
func (d *Dev) Start() error {
	err := d.gate.Acquire(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.armed {
			return errors.Wrap(admission.ErrResourceUnavailable, "hcsr04: echo line not armed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	go d.run()
	return nil
}

// run is the worker: pulse the trigger, wait for the echo, publish.
func (d *Dev) run() {
	var r result
	defer func() {
		d.gate.Release(func() { d.last = r })
	}()

	// Drop a completion left by an echo that finished after a timeout
	select {
	case <-d.done:
	default:
	}

	if err := d.pulse(); err != nil {
		d.log.Errorw("Trigger failed", "echo", d.echo, "error", err)
		r.err = err
		return
	}

	timer := time.NewTimer(d.opts.EchoTimeout)
	defer timer.Stop()

	select {
	case <-d.done:
		ticks := d.endTicks.Load() - d.startTicks.Load()
		r.distance = d.Distance(ticks)
		r.valid = true
		d.log.Debugw("Measurement complete", "ticks", ticks, "distance", r.distance)
	case <-timer.C:
		r.err = ErrTimeout
		d.log.Warnw("Echo timeout", "echo", d.echo, "timeout", d.opts.EchoTimeout, "phase", d.EdgePhase())
	}
}

// pulse drives the trigger line high for the trigger pulse and back low.
func (d *Dev) pulse() error {
	if err := d.trig.Out(gpio.High); err != nil {
		return errors.Wrap(err, "hcsr04: trigger high")
	}
	time.Sleep(d.opts.TriggerPulse)
	if err := d.trig.Out(gpio.Low); err != nil {
		return errors.Wrap(err, "hcsr04: trigger low")
	}
	return nil
}

// Distance converts an echo pulse width in counter ticks to the distance to
// the target, rounded to the nanometre.
func (d *Dev) Distance(ticks uint64) physic.Distance {
	return physic.Distance(math.Round(float64(ticks) * d.nmPerTick))
}

// Poll returns nil when no measurement is in progress and admission.ErrBusy
// otherwise.
func (d *Dev) Poll() error {
	return d.gate.Poll()
}

// Read returns the result of the last measurement.
//
// It fails with ErrNotReady while a measurement is in progress, ErrNoResult
// before any measurement completed and ErrTimeout when the last one saw no
// echo. A successful result can be read again until the next Start.
func (d *Dev) Read() (physic.Distance, error) {
	var r result
	if err := d.gate.IfIdle(func() error { r = d.last; return nil }); err != nil {
		return 0, ErrNotReady
	}
	if r.err != nil {
		return 0, r.err
	}
	if !r.valid {
		return 0, ErrNoResult
	}
	return r.distance, nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("hcsr04.Dev{%s}", d.echo)
}
