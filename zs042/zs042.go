// Package zs042 implements a driver for the DS3231 real-time clock found on ZS-042 breakout modules, reading and
// writing the seven timekeeping registers only. The alarms, aging offset, square-wave output and temperature sensor
// are left alone, as is the AT24C32 EEPROM that shares the bus on the same module.
//
// The register layout is shared with the DS1307, so this driver works with that chip as well.
//
// The clock is always driven in 24-hour mode: Set writes the hours register with the 12-hour bit cleared, and Now
// masks it off.
//
// Datasheet: https://www.analog.com/media/en/technical-documentation/data-sheets/DS3231.pdf
package zs042

import (
	"fmt"
	"time"

	"github.com/ajanata/pico-drivers"
	"github.com/ajanata/pico-drivers/bcd"
)

type Device struct {
	bus     drivers.I2C
	Address uint8
}

type Config struct {
	Address uint8
}

// TransportError reports a failed bus transaction, and which register it was for.
type TransportError struct {
	Op       string
	Register Register
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("zs042: %s %s: %v", e.Op, e.Register, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// New creates a new driver on the provided, already configured, I2C bus. The chip supports 400 kHz.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
	}
}

func (d *Device) Configure(c Config) {
	if c.Address == 0 {
		c.Address = Address
	}
	d.Address = c.Address
}

// Set writes dt to the clock, one register per transaction, seconds first and year last. A bus error stops the
// sequence where it happened, so the registers before it keep their new values: the caller has to call Set again.
// Writing the seconds register also clears the oscillator halt flag, which starts a stopped DS1307.
func (d *Device) Set(dt DateTime) error {
	if err := dt.Validate(); err != nil {
		return err
	}
	// encode everything first so a bad value never leaves the clock half written
	var frame [FrameSize]byte
	for r := Seconds; r <= Year; r++ {
		b, err := bcd.Encode(dt.field(r))
		if err != nil {
			return fmt.Errorf("zs042: %s: %w", r, err)
		}
		frame[r] = b
	}
	for r := Seconds; r <= Year; r++ {
		buf := [2]byte{byte(r), frame[r]}
		if err := d.bus.Tx(uint16(d.Address), buf[:], nil); err != nil {
			return &TransportError{Op: "write", Register: r, Err: err}
		}
	}
	return nil
}

// SetTime is a convenience for Set(FromTime(t)).
func (d *Device) SetTime(t time.Time) error {
	dt, err := FromTime(t)
	if err != nil {
		return err
	}
	return d.Set(dt)
}

// Now reads all seven timekeeping registers in one burst and decodes them. The chip latches the time at the start of
// the read, so the fields are consistent with each other.
func (d *Device) Now() (DateTime, error) {
	var frame [FrameSize]byte
	if err := d.ReadFrame(&frame); err != nil {
		return DateTime{}, err
	}
	return DecodeFrame(frame)
}

// ReadFrame reads the raw timekeeping registers into frame.
func (d *Device) ReadFrame(frame *[FrameSize]byte) error {
	ptr := [1]byte{byte(Seconds)}
	if err := d.bus.Tx(uint16(d.Address), ptr[:], frame[:]); err != nil {
		return &TransportError{Op: "read", Register: Seconds, Err: err}
	}
	return nil
}

// DecodeFrame decodes raw register contents, ordered seconds to year, into a DateTime.
func DecodeFrame(frame [FrameSize]byte) (DateTime, error) {
	var v [FrameSize]uint8
	for r := Seconds; r <= Year; r++ {
		n, err := bcd.Decode(frame[r], r.Mask())
		if err != nil {
			return DateTime{}, fmt.Errorf("zs042: %s: %w", r, err)
		}
		v[r] = n
	}
	day, err := ParseDay(v[Weekday])
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{
		Second:  v[Seconds],
		Minute:  v[Minutes],
		Hour:    v[Hours],
		Weekday: day,
		Day:     v[Date],
		Month:   v[Month],
		Year:    v[Year],
	}, nil
}
