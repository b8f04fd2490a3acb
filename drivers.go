// Package drivers holds the bus interfaces shared by the device packages in this module, so that every driver can
// run against a TinyGo machine.I2C, a periph.io bus on a Linux host, or a fake bus in tests.
package drivers

// I2C represents an I2C bus. It is notably implemented by the machine.I2C type on TinyGo targets and by
// periphbus.Bus on Linux hosts.
//
// Tx writes w, then reads len(r) bytes back in a single transaction (a repeated start between the two halves). Either
// slice may be empty. Implementations must bound how long they wait for an acknowledgement: a device that does not
// respond is reported as an error, never as a hang.
type I2C interface {
	ReadRegister(addr uint8, r uint8, buf []byte) error
	WriteRegister(addr uint8, r uint8, buf []byte) error
	Tx(addr uint16, w, r []byte) error
}
