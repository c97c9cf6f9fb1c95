// Package hcsr04 measures distance with an HC-SR04 ultrasonic range sensor.
//
// The sensor is started by a short high pulse on its trigger line. It then
// sends an ultrasonic burst and holds its echo line high for as long as the
// sound takes to come back. The distance is half the echo width times the
// speed of sound.
//
// # Hardware Connection
//
//	Sensor Pin → System Pin
//	VCC        → 5V
//	GND        → GND
//	TRIG       → GPIO output
//	ECHO       → GPIO input with edge detection (through a 5V→3.3V divider)
//
// # Measurement
//
// The echo line is handled as an interrupt source: an EdgeHandler runs in the
// echo backend's own context for every edge of the programmed polarity. It
// latches the rising edge, reprograms the line for the falling edge, latches
// that one too, switches back to rising and signals completion. Two backends
// are provided:
//
//   - PinEcho, for any periph.io gpio.PinIn, timestamps edges with a Counter
//     when the watcher goroutine wakes up.
//   - LineEcho, for the Linux GPIO character device, uses the timestamps the
//     kernel takes in the interrupt itself.
//
// # Job Model
//
// One measurement runs at a time. Start admits it and returns at once; a
// worker pulses the trigger and waits for the echo. Callers poll:
//
//	dev.Open()
//	defer dev.Close()
//
//	if err := dev.Start(); err != nil {
//		return err // admission.ErrBusy: a measurement is already running
//	}
//	for dev.Poll() != nil {
//		time.Sleep(10 * time.Millisecond)
//	}
//	d, err := dev.Read()
//
// There is no way to cancel a measurement. When the echo never completes the
// worker gives up after Opts.EchoTimeout and Read reports ErrTimeout.
//
// # Datasheet
//
// https://cdn.sparkfun.com/datasheets/Sensors/Proximity/HCSR04.pdf
package hcsr04
