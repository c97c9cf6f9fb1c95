// Package image8x8 provides the 8x8 monochrome bitmap format used by LED
// matrix controllers that address the display one column register at a time.
//
// A Frame is stored as 8 column bytes. Column x lives in byte x, and bit y of
// that byte is the pixel in row y (bit 0 is the top row):
//
//	          col 0 1 2 3 4 5 6 7
//	row 0 (bit 0)   . # . . . . . .
//	row 1 (bit 1)   . # . . . . . .
//	...
//	Frame{0x00, 0x03, 0x00, ...}
//
// This is exactly the payload sent to the controller, one byte per column
// register, so no conversion is needed on the way out.
//
// This package provides:
//
// - Bit: a color type with two states, on and off
// - BitModel: a color model converting standard Go colors to Bit
// - Frame: an image.Image and draw.Image implementation of the 8x8 bitmap
//
// Example usage:
//
//	var f image8x8.Frame
//	f.SetBit(1, 0, image8x8.On)
//
//	// Use with standard Go image operations
//	draw.Draw(&f, f.Bounds(), image.NewUniform(image8x8.On), image.Point{}, draw.Src)
package image8x8
