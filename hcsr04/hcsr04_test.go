package hcsr04

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/flavioheleno/rangematrix/admission"
)

const (
	testWait = 2 * time.Second
	testTick = time.Millisecond
)

// fakeEcho stands in for the echo interrupt line. deliver plays the part of
// the edge detector: a transition reaches the handler only when it matches
// the programmed polarity.
type fakeEcho struct {
	mu      sync.Mutex
	h       EdgeHandler
	edge    gpio.Edge
	armed   bool
	armErr  error
	disarms int
	freq    physic.Frequency
}

func (e *fakeEcho) String() string { return "echo" }

func (e *fakeEcho) Arm(edge gpio.Edge, h EdgeHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.armErr != nil {
		return e.armErr
	}
	e.h, e.edge, e.armed = h, edge, true
	return nil
}

func (e *fakeEcho) SetEdge(edge gpio.Edge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.edge = edge
	return nil
}

func (e *fakeEcho) Disarm() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armed = false
	e.disarms++
	return nil
}

func (e *fakeEcho) Frequency() physic.Frequency { return e.freq }

func (e *fakeEcho) deliver(level gpio.Level, ticks uint64) {
	e.mu.Lock()
	h, edge, armed := e.h, e.edge, e.armed
	e.mu.Unlock()
	if armed && matches(edge, level) {
		h(ticks)
	}
}

// transition is one change of the echo line.
type transition struct {
	level gpio.Level
	ticks uint64
}

func echoPulse(t0, t1 uint64) []transition {
	return []transition{{gpio.High, t0}, {gpio.Low, t1}}
}

// sensor is the trigger line plus the sensor behind it: the falling edge of
// every trigger pulse makes it answer with the transitions from respond,
// delivered from its own goroutine.
type sensor struct {
	mu      sync.Mutex
	levels  []gpio.Level
	stamps  []time.Time
	outErr  error
	respond func(n int) []transition
	echo    interface{ deliver(gpio.Level, uint64) }
	pulses  atomic.Int32
}

func (s *sensor) Out(l gpio.Level) error {
	s.mu.Lock()
	if s.outErr != nil {
		s.mu.Unlock()
		return s.outErr
	}
	s.levels = append(s.levels, l)
	s.stamps = append(s.stamps, time.Now())
	s.mu.Unlock()

	if l == gpio.Low {
		n := int(s.pulses.Add(1))
		if s.respond != nil {
			go func() {
				for _, tr := range s.respond(n) {
					s.echo.deliver(tr.level, tr.ticks)
				}
			}()
		}
	}
	return nil
}

func (s *sensor) trace() []gpio.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gpio.Level(nil), s.levels...)
}

func newTestDev(t *testing.T, s *sensor, e *fakeEcho, opts *Opts) *Dev {
	t.Helper()
	if e.freq == 0 {
		e.freq = physic.MegaHertz
	}
	s.echo = e
	if opts == nil {
		opts = &Opts{}
	}
	if opts.TriggerPulse == 0 {
		opts.TriggerPulse = time.Microsecond
	}
	dev, err := New(s, e, opts)
	require.NoError(t, err)
	return dev
}

func waitIdle(t *testing.T, dev *Dev) {
	t.Helper()
	require.Eventually(t, func() bool { return dev.Poll() == nil }, testWait, testTick)
}

func measure(t *testing.T, dev *Dev) (physic.Distance, error) {
	t.Helper()
	require.NoError(t, dev.Start())
	waitIdle(t, dev)
	return dev.Read()
}

func TestDistanceCalibration(t *testing.T) {
	tests := []struct {
		name  string
		freq  physic.Frequency
		speed physic.Speed
		ticks uint64
		want  physic.Distance
	}{
		{"1MHz counter", physic.MegaHertz, 0, 2000, 343 * physic.MilliMetre},
		{"400MHz time stamp counter", 400 * physic.MegaHertz, 0, 800000, 343 * physic.MilliMetre},
		{"1GHz monotonic clock", physic.GigaHertz, 0, 2000000, 343 * physic.MilliMetre},
		{"zero width", physic.MegaHertz, 0, 0, 0},
		{"custom speed", physic.MegaHertz, 340 * physic.MetrePerSecond, 1000, 170 * physic.MilliMetre},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := New(&sensor{}, &fakeEcho{freq: tt.freq}, &Opts{SpeedOfSound: tt.speed})
			require.NoError(t, err)
			assert.Equal(t, tt.want, dev.Distance(tt.ticks))
		})
	}
}

func TestCounterFrequencyOverride(t *testing.T) {
	dev, err := New(&sensor{}, &fakeEcho{freq: physic.GigaHertz}, &Opts{CounterFrequency: physic.MegaHertz})
	require.NoError(t, err)
	assert.Equal(t, 343*physic.MilliMetre, dev.Distance(2000))
}

func TestNewRejectsZeroFrequency(t *testing.T) {
	_, err := New(&sensor{}, &fakeEcho{}, nil)
	assert.Error(t, err)
}

func TestRoundTripTiming(t *testing.T) {
	s := &sensor{respond: func(int) []transition { return echoPulse(10000, 12000) }}
	dev := newTestDev(t, s, &fakeEcho{}, nil)
	require.NoError(t, dev.Open())

	d, err := measure(t, dev)
	require.NoError(t, err)
	assert.Equal(t, 343*physic.MilliMetre, d)

	// The result can be read again until the next Start
	again, err := dev.Read()
	require.NoError(t, err)
	assert.Equal(t, d, again)
}

func TestEdgeDesyncContainment(t *testing.T) {
	s := &sensor{respond: func(n int) []transition {
		base := uint64(n) * 1000000
		return echoPulse(base, base+2000)
	}}
	dev := newTestDev(t, s, &fakeEcho{}, nil)
	require.NoError(t, dev.Open())
	assert.Equal(t, AwaitingRising, dev.EdgePhase())

	for i := 0; i < 5; i++ {
		d, err := measure(t, dev)
		require.NoError(t, err)
		assert.Equal(t, 343*physic.MilliMetre, d, "measurement %d", i)
		assert.Equal(t, AwaitingRising, dev.EdgePhase(), "measurement %d", i)
	}
}

func TestTriggerPulseShape(t *testing.T) {
	s := &sensor{respond: func(int) []transition { return echoPulse(0, 1000) }}
	dev := newTestDev(t, s, &fakeEcho{}, &Opts{TriggerPulse: 200 * time.Microsecond})
	require.NoError(t, dev.Open())

	_, err := measure(t, dev)
	require.NoError(t, err)

	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, s.trace())
	s.mu.Lock()
	width := s.stamps[1].Sub(s.stamps[0])
	s.mu.Unlock()
	assert.GreaterOrEqual(t, width, 200*time.Microsecond)
}

func TestEchoTimeout(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	// The echo rises and never falls
	s := &sensor{respond: func(int) []transition {
		return []transition{{gpio.High, 500}}
	}}
	dev := newTestDev(t, s, &fakeEcho{}, &Opts{
		EchoTimeout: 20 * time.Millisecond,
		Logger:      zap.New(core).Sugar(),
	})
	require.NoError(t, dev.Open())

	_, err := measure(t, dev)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, logs.FilterMessage("Echo timeout").Len())

	// No resynchronisation: the handler still waits for the falling edge
	assert.Equal(t, AwaitingFalling, dev.EdgePhase())
}

func TestTimeoutDesynchronizesNextMeasurement(t *testing.T) {
	s := &sensor{respond: func(n int) []transition {
		if n == 1 {
			return []transition{{gpio.High, 1000}}
		}
		return echoPulse(50000, 52000)
	}}
	dev := newTestDev(t, s, &fakeEcho{}, &Opts{EchoTimeout: 20 * time.Millisecond})
	require.NoError(t, dev.Open())

	_, err := measure(t, dev)
	require.ErrorIs(t, err, ErrTimeout)

	// The second rising edge is filtered out; the falling edge pairs with
	// the stale rising edge of the first measurement.
	d, err := measure(t, dev)
	require.NoError(t, err)
	assert.Equal(t, dev.Distance(52000-1000), d)
	assert.Equal(t, AwaitingRising, dev.EdgePhase())
}

func TestRejectionWhileBusy(t *testing.T) {
	release := make(chan struct{})
	s := &sensor{respond: func(int) []transition {
		<-release
		return echoPulse(0, 2000)
	}}
	dev := newTestDev(t, s, &fakeEcho{}, nil)
	require.NoError(t, dev.Open())

	require.NoError(t, dev.Start())
	require.Eventually(t, func() bool { return s.pulses.Load() == 1 }, testWait, testTick)

	assert.ErrorIs(t, dev.Poll(), admission.ErrBusy)
	assert.ErrorIs(t, dev.Start(), admission.ErrBusy)
	_, err := dev.Read()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, err, admission.ErrBusy, "not ready is a busy condition")

	close(release)
	waitIdle(t, dev)
	d, err := dev.Read()
	require.NoError(t, err)
	assert.Equal(t, 343*physic.MilliMetre, d)
	assert.Len(t, s.trace(), 2, "rejected Start must not touch the trigger")
}

func TestConcurrentStartSingleFlight(t *testing.T) {
	release := make(chan struct{})
	s := &sensor{respond: func(int) []transition {
		<-release
		return echoPulse(0, 2000)
	}}
	dev := newTestDev(t, s, &fakeEcho{}, nil)
	require.NoError(t, dev.Open())

	const callers = 32
	var ok, busy atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := dev.Start()
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, admission.ErrBusy):
				busy.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(release)
	waitIdle(t, dev)

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(callers-1), busy.Load())
	assert.Equal(t, int32(1), s.pulses.Load())
}

func TestStartRequiresOpen(t *testing.T) {
	s := &sensor{}
	dev := newTestDev(t, s, &fakeEcho{}, nil)

	err := dev.Start()
	assert.ErrorIs(t, err, admission.ErrResourceUnavailable)
	assert.NoError(t, dev.Poll(), "gate must be rolled back")
	assert.Empty(t, s.trace(), "no hardware side effect")
}

func TestOpenArmFailure(t *testing.T) {
	e := &fakeEcho{armErr: errors.New("irq unavailable")}
	dev := newTestDev(t, &sensor{}, e, nil)

	err := dev.Open()
	assert.ErrorIs(t, err, admission.ErrResourceUnavailable)
	assert.ErrorIs(t, dev.Start(), admission.ErrResourceUnavailable)
}

func TestOpenClose(t *testing.T) {
	e := &fakeEcho{}
	s := &sensor{respond: func(int) []transition { return echoPulse(0, 2000) }}
	dev := newTestDev(t, s, e, nil)

	require.NoError(t, dev.Open())
	require.NoError(t, dev.Open(), "opening twice is harmless")
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close(), "closing twice is harmless")
	assert.Equal(t, 1, e.disarms)

	assert.ErrorIs(t, dev.Start(), admission.ErrResourceUnavailable)

	require.NoError(t, dev.Open())
	d, err := measure(t, dev)
	require.NoError(t, err)
	assert.Equal(t, 343*physic.MilliMetre, d)
}

func TestTriggerFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fault := errors.New("line fault")
	s := &sensor{outErr: fault}
	dev := newTestDev(t, s, &fakeEcho{}, &Opts{Logger: zap.New(core).Sugar()})
	require.NoError(t, dev.Open())

	_, err := measure(t, dev)
	assert.ErrorIs(t, err, fault)
	assert.Equal(t, 1, logs.FilterMessage("Trigger failed").Len())
}

func TestReadBeforeMeasurement(t *testing.T) {
	dev := newTestDev(t, &sensor{}, &fakeEcho{}, nil)
	_, err := dev.Read()
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestEdgePhaseString(t *testing.T) {
	assert.Equal(t, "AwaitingRising", AwaitingRising.String())
	assert.Equal(t, "AwaitingFalling", AwaitingFalling.String())
}

func TestDevString(t *testing.T) {
	dev := newTestDev(t, &sensor{}, &fakeEcho{}, nil)
	want := "hcsr04.Dev{echo}"
	if got := dev.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
