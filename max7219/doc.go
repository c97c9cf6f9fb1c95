// Package max7219 drives an 8x8 LED matrix behind a MAX7219 controller via
// SPI.
//
// The MAX7219 multiplexes up to 64 LEDs as 8 "digits" of 8 segments. With BCD
// decoding disabled each digit register holds one raw column bitmap, which
// makes the chip a simple 8x8 monochrome matrix driver.
//
// # Hardware Connection
//
// Connect the module to your system via SPI:
//
//	Module Pin → System Pin
//	GND        → GND
//	VCC        → 5V
//	DIN        → SPI Data (MOSI)
//	CLK        → SPI Clock (SCLK)
//	CS/LOAD    → SPI Chip Select
//
// Every transfer is two bytes, register address then value. The chip latches
// the register on the rising edge of CS, so each column is its own transfer.
//
// # Job Model
//
// The device plays animations described as step lists. A step names a slot
// of the 10-entry frame table and how many milliseconds to hold it:
//
//	dev.Configure(2, image8x8.Frame{0x18, 0x3C, 0x7E, 0xFF, 0xFF, 0x7E, 0x3C, 0x18})
//	dev.Configure(5, image8x8.Frame{0x81, 0x42, 0x24, 0x18, 0x18, 0x24, 0x42, 0x81})
//
//	dev.Start([]max7219.Step{{2, 100}, {5, 50}, {0, 0}})
//
// Start returns immediately; the list plays in the background. The zero
// step {0, 0} stops the list and blanks the display. A list that ends
// without it leaves the last frame on screen.
//
// At most one list plays at a time. While it does, Configure, Start,
// SetIntensity and Halt fail with admission.ErrBusy and nothing is queued.
// Callers poll until the device is ready:
//
//	for dev.Poll() != nil {
//		time.Sleep(10 * time.Millisecond)
//	}
//
// A running list can't be cancelled; it ends after the sum of its step
// durations.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//		"github.com/flavioheleno/rangematrix/max7219"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Open SPI bus
//		port, _ := spireg.Open("")
//		defer port.Close()
//
//		// Create device
//		dev, _ := max7219.NewSPI(port, &max7219.Opts{Intensity: 4})
//		defer dev.Halt()
//	}
//
// # Datasheet
//
// https://www.analog.com/media/en/technical-documentation/data-sheets/MAX7219-MAX7221.pdf
package max7219
