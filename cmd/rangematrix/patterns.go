package main

import (
	"image"
	"image/draw"

	"periph.io/x/conn/v3/physic"

	"github.com/flavioheleno/rangematrix/image8x8"
)

// checkerboard returns a checkerboard of single LEDs. Odd phases swap the
// lit and dark squares.
func checkerboard(phase int) image8x8.Frame {
	var f image8x8.Frame
	for y := 0; y < image8x8.Size; y++ {
		for x := 0; x < image8x8.Size; x++ {
			f.SetBit(x, y, (x+y+phase)%2 == 0)
		}
	}
	return f
}

// border lights the outermost ring of LEDs.
func border() image8x8.Frame {
	var f image8x8.Frame
	draw.Draw(&f, f.Bounds(), image.NewUniform(image8x8.On), image.Point{}, draw.Src)
	draw.Draw(&f, f.Bounds().Inset(1), image.NewUniform(image8x8.Off), image.Point{}, draw.Src)
	return f
}

// smiley is a face, one byte per column.
var smiley = image8x8.Frame{0x3C, 0x42, 0x95, 0xA1, 0xA1, 0x95, 0x42, 0x3C}

// bar returns a bar graph of d: one fully lit column per eighth of full,
// rounded up so that any distance above zero lights a column.
func bar(d, full physic.Distance) image8x8.Frame {
	var f image8x8.Frame
	if d <= 0 || full <= 0 {
		return f
	}
	n := int((d*image8x8.Size + full - 1) / full)
	if n > image8x8.Size {
		n = image8x8.Size
	}
	for x := 0; x < n; x++ {
		f[x] = 0xFF
	}
	return f
}
