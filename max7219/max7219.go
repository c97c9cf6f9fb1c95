package max7219

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/flavioheleno/rangematrix/admission"
	"github.com/flavioheleno/rangematrix/image8x8"
)

const (
	// NumSlots is the number of frames the frame table holds.
	NumSlots = 10
	// MaxSteps is the longest step list Start accepts.
	MaxSteps = 10
	// Columns is the number of digit registers, one per matrix column.
	Columns = image8x8.Size
)

// Register addresses.
const (
	regDigit0      = 0x01 // digits 0..7 are registers 0x01..0x08
	regDecodeMode  = 0x09
	regIntensity   = 0x0A
	regScanLimit   = 0x0B
	regShutdown    = 0x0C
	regDisplayTest = 0x0F
)

var (
	// ErrHalted is returned by every operation after Halt.
	ErrHalted = errors.New("max7219: halted")
	// ErrSlotRange is returned by Configure for a slot outside [0, NumSlots).
	ErrSlotRange = errors.New("max7219: frame slot out of range")
	// ErrMalformed is returned by Start for a step list it cannot play.
	ErrMalformed = errors.New("max7219: malformed step list")
)

// Step is one entry of a step list: show Frame for Duration milliseconds.
// The zero Step is the sentinel that stops the list and clears the display.
type Step struct {
	Frame    uint16 // Frame table slot
	Duration uint16 // Milliseconds to hold the frame
}

// IsSentinel reports whether s is the (0,0) stop-and-clear marker.
func (s Step) IsSentinel() bool {
	return s.Frame == 0 && s.Duration == 0
}

// Hold returns the step duration as a time.Duration.
func (s Step) Hold() time.Duration {
	return time.Duration(s.Duration) * time.Millisecond
}

// Opts is the configuration for the MAX7219 matrix.
type Opts struct {
	// Intensity is the PWM brightness, 0 (dimmest) to 15.
	Intensity byte
	// Logger receives worker outcomes. nil disables logging.
	Logger *zap.SugaredLogger
	// Sleep holds a frame on screen. nil uses time.Sleep.
	Sleep func(time.Duration)
}

// Dev is the device handle for the MAX7219 matrix.
type Dev struct {
	// Communication
	c conn.Conn // SPI connection, one register per transfer

	gate admission.Gate

	// Guarded by gate: written only while Idle, read by the worker while Busy
	frames [NumSlots]image8x8.Frame
	steps  [MaxSteps]Step
	nsteps int

	halted    bool
	intensity byte

	log   *zap.SugaredLogger
	sleep func(time.Duration)
}

// NewSPI creates a new MAX7219 device connected via SPI.
//
// The SPI port is configured for 500kHz, Mode0 (CPOL=0, CPHA=0), 8-bit
// transfers. opts can be nil to use defaults.
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	// The controller latches on chip select rising edge and is rated at
	// 10MHz; 500kHz keeps long jumper wires honest.
	c, err := p.Connect(500*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrap(err, "max7219: connect")
	}
	return New(c, opts)
}

// New creates a MAX7219 device on an already connected bus and sends the
// bring-up sequence.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	if opts.Intensity > 0x0F {
		return nil, errors.Newf("max7219: intensity %d out of range [0, 15]", opts.Intensity)
	}

	d := &Dev{
		c:         c,
		intensity: opts.Intensity,
		log:       opts.Logger,
		sleep:     opts.Sleep,
	}
	if d.log == nil {
		d.log = zap.NewNop().Sugar()
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// init sends the bring-up sequence to the controller.
func (d *Dev) init() error {
	regs := [][2]byte{
		{regDisplayTest, 0x01}, // Flash all LEDs
		{regDisplayTest, 0x00}, // Back to normal operation
		{regDecodeMode, 0x00},  // Raw column bitmaps, no BCD decode
		{regIntensity, d.intensity},
		{regScanLimit, 0x07}, // Scan all 8 digits
		{regShutdown, 0x01},  // Leave shutdown mode
	}
	for _, r := range regs {
		if err := d.writeReg(r[0], r[1]); err != nil {
			return err
		}
	}
	return d.clear()
}

// writeReg performs one register transfer.
func (d *Dev) writeReg(addr, value byte) error {
	if err := d.c.Tx([]byte{addr, value}, nil); err != nil {
		return errors.Wrapf(err, "max7219: write register 0x%02X", addr)
	}
	return nil
}

// writeFrame sends the 8 columns of f, in ascending register order.
func (d *Dev) writeFrame(f *image8x8.Frame) error {
	for col := 0; col < Columns; col++ {
		if err := d.writeReg(byte(regDigit0+col), f.Column(col)); err != nil {
			return err
		}
	}
	return nil
}

// clear blanks every column.
func (d *Dev) clear() error {
	return d.writeFrame(&image8x8.Blank)
}

// Configure loads frame into the frame table at slot. It fails with
// admission.ErrBusy while a step list is playing.
func (d *Dev) Configure(slot int, frame image8x8.Frame) error {
	if slot < 0 || slot >= NumSlots {
		return errors.Wrapf(ErrSlotRange, "slot %d", slot)
	}
	return d.gate.IfIdle(func() error {
		if d.halted {
			return ErrHalted
		}
		d.frames[slot] = frame
		return nil
	})
}

// Frame returns the frame stored at slot. It fails with admission.ErrBusy
// while a step list is playing.
func (d *Dev) Frame(slot int) (image8x8.Frame, error) {
	var f image8x8.Frame
	if slot < 0 || slot >= NumSlots {
		return f, errors.Wrapf(ErrSlotRange, "slot %d", slot)
	}
	err := d.gate.IfIdle(func() error {
		f = d.frames[slot]
		return nil
	})
	return f, err
}

// Start copies steps into the device and plays them in the background.
//
// It fails with admission.ErrBusy while a previous list is still playing and
// with ErrMalformed for lists longer than MaxSteps or steps referencing a
// slot outside the frame table. Steps after a sentinel are copied but never
// played. Use Poll to find out when the device is ready again.
func (d *Dev) Start(steps []Step) error {
	if err := validate(steps); err != nil {
		return err
	}
	err := d.gate.Acquire(func() error {
		if d.halted {
			return ErrHalted
		}
		d.nsteps = copy(d.steps[:], steps)
		return nil
	})
	if err != nil {
		return err
	}

	go d.run()
	return nil
}

// validate checks steps against the frame table bounds.
func validate(steps []Step) error {
	if len(steps) > MaxSteps {
		return errors.Wrapf(ErrMalformed, "%d steps, at most %d", len(steps), MaxSteps)
	}
	for i, s := range steps {
		if s.IsSentinel() {
			break
		}
		if int(s.Frame) >= NumSlots {
			return errors.Wrapf(ErrMalformed, "step %d references frame %d", i, s.Frame)
		}
	}
	return nil
}

// Poll returns nil when the device is ready for Configure and Start, and
// admission.ErrBusy while a step list is playing.
func (d *Dev) Poll() error {
	return d.gate.Poll()
}

// run plays the step list copied by Start and returns the device to Idle.
func (d *Dev) run() {
	defer d.gate.Release(nil)

	start := time.Now()
	shown := 0
	for i := 0; i < d.nsteps; i++ {
		s := d.steps[i]
		if s.IsSentinel() {
			if err := d.clear(); err != nil {
				d.log.Errorw("Clear failed", "step", i, "error", err)
				return
			}
			d.log.Debugw("Sequence cleared", "step", i)
			break
		}
		if err := d.writeFrame(&d.frames[s.Frame]); err != nil {
			d.log.Errorw("Frame transfer failed", "step", i, "frame", s.Frame, "error", err)
			return
		}
		shown++
		d.sleep(s.Hold())
	}
	d.log.Infow("Sequence complete", "frames_shown", shown, "elapsed", time.Since(start))
}

// SetIntensity sets the display brightness (0-15). It fails with
// admission.ErrBusy while a step list is playing.
func (d *Dev) SetIntensity(level byte) error {
	if level > 0x0F {
		return errors.Newf("max7219: intensity %d out of range [0, 15]", level)
	}
	return d.gate.IfIdle(func() error {
		if d.halted {
			return ErrHalted
		}
		if err := d.writeReg(regIntensity, level); err != nil {
			return err
		}
		d.intensity = level
		return nil
	})
}

// Halt puts the controller in shutdown mode, blanking the display.
// After calling Halt, the device will not accept further operations.
// It fails with admission.ErrBusy while a step list is playing.
func (d *Dev) Halt() error {
	return d.gate.IfIdle(func() error {
		if d.halted {
			return nil
		}
		d.halted = true
		return d.writeReg(regShutdown, 0x00)
	})
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("max7219.Dev{%s}", d.c)
}
