package image8x8

import (
	"image"
	"image/color"
	"image/draw"
)

// Size is the width and height of a Frame in pixels.
const Size = 8

// Bit represents a monochrome pixel, lit or dark.
type Bit bool

const (
	// Off is a dark pixel.
	Off Bit = false
	// On is a lit pixel.
	On Bit = true
)

// RGBA converts the Bit to standard RGBA. On is white, Off is black.
func (b Bit) RGBA() (r, g, bl, a uint32) {
	if b {
		return 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF
	}
	return 0, 0, 0, 0xFFFF
}

func (b Bit) String() string {
	if b {
		return "On"
	}
	return "Off"
}

// toBit converts any color.Color to Bit.
func toBit(c color.Color) color.Color {
	if b, ok := c.(Bit); ok {
		return b
	}
	r, g, b, a := c.RGBA()
	if a == 0 {
		return Off
	}
	// Standard luminance: 0.299R + 0.587G + 0.114B, lit above half scale
	y := (299*r + 587*g + 114*b + 500) / 1000
	return Bit(y >= 0x8000)
}

// BitModel converts colors to Bit.
var BitModel = color.ModelFunc(toBit)

// Frame is an 8x8 monochrome image stored as 8 column bytes.
type Frame [Size]byte

// Blank is the all-dark frame.
var Blank Frame

// ColorModel returns the color model of the image.
func (f *Frame) ColorModel() color.Model {
	return BitModel
}

// Bounds returns the image bounds, always (0,0)-(8,8).
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, Size, Size)
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (f *Frame) At(x, y int) color.Color {
	return f.BitAt(x, y)
}

// BitAt returns the Bit of the pixel at (x, y).
func (f *Frame) BitAt(x, y int) Bit {
	if !inside(x, y) {
		return Off
	}
	return f[x]&(1<<uint(y)) != 0
}

// Set sets the color of the pixel at (x, y).
func (f *Frame) Set(x, y int, c color.Color) {
	f.SetBit(x, y, BitModel.Convert(c).(Bit))
}

// SetBit sets the Bit of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (f *Frame) SetBit(x, y int, b Bit) {
	if !inside(x, y) {
		return
	}
	mask := byte(1) << uint(y)
	if b {
		f[x] |= mask
	} else {
		f[x] &^= mask
	}
}

// Column returns the register byte for column x. Out of range columns are
// dark.
func (f *Frame) Column(x int) byte {
	if x < 0 || x >= Size {
		return 0
	}
	return f[x]
}

// IsBlank reports whether no pixel is lit.
func (f *Frame) IsBlank() bool {
	return *f == Blank
}

// FromImage renders the top-left 8x8 pixels of src, relative to its bounds,
// into a new Frame.
func FromImage(src image.Image) Frame {
	var f Frame
	draw.Draw(&f, f.Bounds(), src, src.Bounds().Min, draw.Src)
	return f
}

func inside(x, y int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size
}

var (
	_ image.Image = (*Frame)(nil)
	_ draw.Image  = (*Frame)(nil)
)
