// Package bh1750 provides a driver for the BH1750 ambient light sensor.
//
// The chip has no registers: it takes one-byte opcodes and answers every read with the latest 16-bit measurement.
//
// Datasheet: https://www.mouser.com/datasheet/2/348/bh1750fvi-e-186247.pdf
package bh1750

import (
	"time"

	"github.com/ajanata/pico-drivers"
)

const (
	// DefaultAddress is used with the ADDR pin low. AltAddress is used with it high.
	DefaultAddress = 0x23
	AltAddress     = 0x5C
)

const (
	PowerDown = 0x00
	PowerOn   = 0x01
	Reset     = 0x07
)

// Mode selects the measurement resolution. Continuous modes keep measuring in the background.
type Mode uint8

const (
	ContinuousHighRes  Mode = 0x10 // 1 lx resolution, 120 ms
	ContinuousHighRes2 Mode = 0x11 // 0.5 lx resolution, 120 ms
	ContinuousLowRes   Mode = 0x13 // 4 lx resolution, 16 ms
)

type Device struct {
	bus  drivers.I2C
	addr uint16
	mode Mode
}

type Config struct {
	Address uint8
	Mode    Mode
}

// New creates a new driver on the provided I2C bus. Call Configure before reading.
func New(bus drivers.I2C) *Device {
	return &Device{
		bus:  bus,
		addr: DefaultAddress,
		mode: ContinuousHighRes,
	}
}

// Configure powers the chip up and starts continuous measurement. The first result is ready after one measurement
// time, which is waited here.
func (d *Device) Configure(c Config) error {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.Mode == 0 {
		c.Mode = ContinuousHighRes
	}
	d.addr = uint16(c.Address)
	d.mode = c.Mode

	for _, cmd := range []byte{PowerOn, Reset, byte(d.mode)} {
		if err := d.command(cmd); err != nil {
			return err
		}
	}
	time.Sleep(d.measurementTime())
	return nil
}

// Illuminance returns the latest measurement, in millilux.
func (d *Device) Illuminance() (int32, error) {
	buf := [2]byte{}
	if err := d.bus.Tx(d.addr, nil, buf[:]); err != nil {
		return 0, err
	}
	raw := uint32(buf[0])<<8 | uint32(buf[1])
	// lux = raw / 1.2, halved again in high resolution mode 2
	mlx := raw * 10000 / 12
	if d.mode == ContinuousHighRes2 {
		mlx /= 2
	}
	return int32(mlx), nil
}

// Halt powers the chip down. Configure wakes it again.
func (d *Device) Halt() error {
	return d.command(PowerDown)
}

func (d *Device) measurementTime() time.Duration {
	if d.mode == ContinuousLowRes {
		return 24 * time.Millisecond
	}
	return 180 * time.Millisecond
}

func (d *Device) command(cmd byte) error {
	buf := [1]byte{cmd}
	return d.bus.Tx(d.addr, buf[:], nil)
}
