package chardev

import (
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"

	"github.com/flavioheleno/rangematrix/admission"
	"github.com/flavioheleno/rangematrix/image8x8"
	"github.com/flavioheleno/rangematrix/max7219"
)

type fakeRanger struct {
	opened, closed int
	openErr        error
	startErr       error
	starts         int
	dist           physic.Distance
	readErr        error
}

func (r *fakeRanger) Open() error  { r.opened++; return r.openErr }
func (r *fakeRanger) Close() error { r.closed++; return nil }
func (r *fakeRanger) Start() error {
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	return nil
}
func (r *fakeRanger) Read() (physic.Distance, error) { return r.dist, r.readErr }

// bus records MAX7219 register writes.
type bus struct {
	mu  sync.Mutex
	txs [][2]byte
}

func (b *bus) String() string      { return "bus" }
func (b *bus) Duplex() conn.Duplex { return conn.Full }
func (b *bus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs = append(b.txs, [2]byte{w[0], w[1]})
	return nil
}

func (b *bus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs = nil
}

func (b *bus) writes() [][2]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][2]byte(nil), b.txs...)
}

func TestStepsWireFormat(t *testing.T) {
	steps := []max7219.Step{{Frame: 2, Duration: 100}, {Frame: 5, Duration: 0x1234}, {}}
	b := EncodeSteps(steps)
	assert.Equal(t, []byte{
		2, 0, 100, 0,
		5, 0, 0x34, 0x12,
		0, 0, 0, 0,
	}, b)

	got, err := DecodeSteps(b)
	require.NoError(t, err)
	assert.Equal(t, steps, got)
}

func TestDecodeStepsRejects(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"partial step", []byte{1, 0, 10}},
		{"too many steps", make([]byte, (max7219.MaxSteps+1)*StepSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSteps(tt.in)
			assert.ErrorIs(t, err, max7219.ErrMalformed)
		})
	}

	steps, err := DecodeSteps(nil)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestMillimetres(t *testing.T) {
	tests := []struct {
		in   physic.Distance
		want uint32
	}{
		{0, 0},
		{-physic.Metre, 0},
		{343 * physic.MilliMetre, 343},
		{343*physic.MilliMetre + 499*physic.MicroMetre, 343},
		{343*physic.MilliMetre + 500*physic.MicroMetre, 344},
		{10000 * physic.KiloMetre, 4294967295},
	}
	for _, tt := range tests {
		if got := Millimetres(tt.in); got != tt.want {
			t.Errorf("Millimetres(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPulseFile(t *testing.T) {
	r := &fakeRanger{dist: 1234 * physic.MilliMetre}
	f, err := OpenPulse(r)
	require.NoError(t, err)
	assert.Equal(t, 1, r.opened)

	n, err := f.Write([]byte("anything"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 1, r.starts)

	_, err = f.Read(make([]byte, 3))
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	buf := make([]byte, 8)
	n, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0xD2, 0x04, 0, 0}, buf[:4])

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, 1, r.closed)

	_, err = f.Write(nil)
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = f.Read(buf)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestPulseFileErrors(t *testing.T) {
	_, err := OpenPulse(&fakeRanger{openErr: admission.ErrResourceUnavailable})
	assert.ErrorIs(t, err, admission.ErrResourceUnavailable)

	notReady := errors.Mark(errors.New("measurement in progress"), admission.ErrBusy)
	r := &fakeRanger{startErr: admission.ErrBusy, readErr: notReady}
	f, err := OpenPulse(r)
	require.NoError(t, err)

	_, err = f.Write(nil)
	assert.ErrorIs(t, err, admission.ErrBusy)
	_, err = f.Read(make([]byte, 4))
	assert.ErrorIs(t, err, admission.ErrBusy)
}

func TestDisplayFile(t *testing.T) {
	b := &bus{}
	gate := make(chan struct{})
	dev, err := max7219.New(b, &max7219.Opts{Sleep: func(time.Duration) { <-gate }})
	require.NoError(t, err)
	b.reset()

	f, err := OpenDisplay(dev)
	require.NoError(t, err)

	pattern := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, f.Configure(3, pattern))
	got, err := dev.Frame(3)
	require.NoError(t, err)
	assert.Equal(t, image8x8.Frame{1, 2, 3, 4, 5, 6, 7, 8}, got)

	assert.Error(t, f.Configure(3, pattern[:7]))
	assert.ErrorIs(t, f.Configure(10, pattern), max7219.ErrSlotRange)

	buf := make([]byte, 1)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte(1), buf[0])

	payload := EncodeSteps([]max7219.Step{{Frame: 3, Duration: 10}, {}})
	n, err = f.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	// The worker is holding frame 3
	require.Eventually(t, func() bool { return len(b.writes()) == 8 }, 2*time.Second, time.Millisecond)
	_, err = f.Read(buf)
	assert.ErrorIs(t, err, admission.ErrBusy)
	_, err = f.Write(payload)
	assert.ErrorIs(t, err, admission.ErrBusy)
	assert.ErrorIs(t, f.Configure(0, pattern), admission.ErrBusy)

	close(gate)
	require.Eventually(t, func() bool {
		_, err := f.Read(buf)
		return err == nil
	}, 2*time.Second, time.Millisecond)

	want := [][2]byte{}
	for c := 0; c < 8; c++ {
		want = append(want, [2]byte{byte(c + 1), pattern[c]})
	}
	for c := 0; c < 8; c++ {
		want = append(want, [2]byte{byte(c + 1), 0})
	}
	assert.Equal(t, want, b.writes())

	_, err = f.Write([]byte{1, 2, 3})
	assert.ErrorIs(t, err, max7219.ErrMalformed)

	require.NoError(t, f.Close())
	_, err = f.Read(buf)
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.ErrorIs(t, f.Configure(0, pattern), os.ErrClosed)
}
