// Package tester provides fake buses and devices for driver tests.
package tester

import (
	"errors"
	"fmt"
)

// ErrNoDevice is returned for transactions addressed to nothing.
var ErrNoDevice = errors.New("tester: no device at address (nack)")

// Failer is implemented by *testing.T and *quicktest.C.
type Failer interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Device is a fake peripheral attached to an I2CBus.
type Device interface {
	Addr() uint8
	Tx(w, r []byte) error
}

// Transaction is one recorded call to I2CBus.Tx.
type Transaction struct {
	Addr uint16
	W    []byte
	R    int
}

// I2CBus implements drivers.I2C by dispatching to fake devices by address and recording every transaction.
type I2CBus struct {
	c       Failer
	devices map[uint16]Device

	Transactions []Transaction

	failIn  int
	failErr error
}

func NewI2CBus(c Failer) *I2CBus {
	return &I2CBus{
		c:       c,
		devices: make(map[uint16]Device),
	}
}

// AddDevice attaches d to the bus. Attaching two devices at one address is a test bug.
func (b *I2CBus) AddDevice(d Device) {
	b.c.Helper()
	addr := uint16(d.Addr())
	if _, ok := b.devices[addr]; ok {
		b.c.Fatalf("device already exists at address %#02x", addr)
	}
	b.devices[addr] = d
}

// FailAfter lets n more transactions through and fails the one after that with err. FailAfter(0, err) fails the very
// next transaction. The failure fires once.
func (b *I2CBus) FailAfter(n int, err error) {
	b.failIn = n + 1
	b.failErr = err
}

// Reset forgets the recorded transactions.
func (b *I2CBus) Reset() {
	b.Transactions = nil
}

func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	b.Transactions = append(b.Transactions, Transaction{Addr: addr, W: append([]byte(nil), w...), R: len(r)})
	if b.failIn > 0 {
		b.failIn--
		if b.failIn == 0 {
			return b.failErr
		}
	}
	d, ok := b.devices[addr]
	if !ok {
		return fmt.Errorf("%w %#02x", ErrNoDevice, addr)
	}
	return d.Tx(w, r)
}

func (b *I2CBus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{r}, buf)
}

func (b *I2CBus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}

// I2CDevice8 is a fake device with 256 8-bit registers and an auto-incrementing register pointer, which is how most
// register-mapped chips (RTCs included) behave: the first byte written sets the pointer, the rest are stored from
// there on, and reads continue from wherever the pointer is.
type I2CDevice8 struct {
	c    Failer
	addr uint8
	ptr  uint8

	Registers [256]byte
}

func NewI2CDevice8(c Failer, addr uint8) *I2CDevice8 {
	return &I2CDevice8{c: c, addr: addr}
}

func (d *I2CDevice8) Addr() uint8 {
	return d.addr
}

func (d *I2CDevice8) Tx(w, r []byte) error {
	if len(w) > 0 {
		d.ptr = w[0]
		for _, v := range w[1:] {
			d.Registers[d.ptr] = v
			d.ptr++
		}
	}
	for i := range r {
		r[i] = d.Registers[d.ptr]
		d.ptr++
	}
	return nil
}

// SetupRegisters copies regs into the register file starting at register 0.
func (d *I2CDevice8) SetupRegisters(regs []byte) {
	d.c.Helper()
	if len(regs) > len(d.Registers) {
		d.c.Fatalf("too many registers: %d", len(regs))
	}
	copy(d.Registers[:], regs)
}
