// Package chardev exposes the range sensor and the LED matrix as byte
// oriented device endpoints, the way a character device would.
//
// Both endpoints follow the same four-call contract: Open, Write to submit a
// job, Read to collect its outcome, Close. Configure is the control call of
// the display endpoint.
//
// # Pulse endpoint
//
// Any Write starts a measurement; the payload is ignored. Read fills a 4-byte
// little-endian unsigned distance in millimetres once the measurement is
// done:
//
//	f, _ := chardev.OpenPulse(sensor)
//	defer f.Close()
//	f.Write([]byte{1})
//	buf := make([]byte, 4)
//	for {
//		if _, err := f.Read(buf); !errors.Is(err, admission.ErrBusy) {
//			break
//		}
//	}
//
// # Display endpoint
//
// Configure loads an 8-byte column pattern into a frame slot. Write takes a
// flat list of (frame uint16, duration uint16) pairs, little-endian, 4 bytes
// per step, at most 10 steps; EncodeSteps builds one. Read returns a single
// byte set to 1 when the display is ready for the next Configure or Write.
package chardev
