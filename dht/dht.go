// Package dht reads DHT11 and DHT22 (AM2302) temperature/humidity sensors over their single data wire, using a
// periph.io GPIO pin.
//
// The protocol is timing based: the host pulls the line low to request a reading, the sensor answers with an 80us
// low/high preamble and then 40 bits, each a ~50us low followed by a high pulse whose length (26-28us or 70us) is the
// bit value. Reading it from user space works on a Raspberry Pi most of the time; a bad read is reported as
// ErrChecksum or ErrTimeout and the next one usually succeeds.
//
// Datasheet: https://www.mouser.com/datasheet/2/758/DHT11-Technical-Data-Sheet-Translated-Version-1143054.pdf
package dht

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

var (
	ErrTimeout  = errors.New("dht: timeout waiting for sensor")
	ErrChecksum = errors.New("dht: checksum mismatch")
)

type Model uint8

const (
	DHT11 Model = iota
	DHT22
)

func (m Model) String() string {
	if m == DHT22 {
		return "DHT22"
	}
	return "DHT11"
}

const (
	frameBits = 40
	// a high pulse longer than this is a 1
	oneThreshold = 50 * time.Microsecond
	pulseTimeout = 200 * time.Microsecond
	// the sensors refuse to measure more often than this
	minInterval = time.Second
)

type Device struct {
	pin   gpio.PinIO
	model Model

	last   time.Time
	deciC  int16
	deciRH uint16
}

func New(pin gpio.PinIO, model Model) *Device {
	return &Device{pin: pin, model: model}
}

// Measure returns the temperature in tenths of a degree Celsius and the relative humidity in tenths of a percent.
// Calls closer together than the sensor allows return the previous reading.
func (d *Device) Measure() (int16, uint16, error) {
	if !d.last.IsZero() && time.Since(d.last) < minInterval {
		return d.deciC, d.deciRH, nil
	}
	var highs [frameBits]time.Duration
	if err := d.read(&highs); err != nil {
		return 0, 0, err
	}
	t, h, err := Decode(FrameFromPulses(highs), d.model)
	if err != nil {
		return 0, 0, err
	}
	d.last = time.Now()
	d.deciC, d.deciRH = t, h
	return t, h, nil
}

func (d *Device) read(highs *[frameBits]time.Duration) error {
	start := 18 * time.Millisecond
	if d.model == DHT22 {
		start = time.Millisecond
	}
	if err := d.pin.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(start)
	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return err
	}

	// preamble: the line floats high, then the sensor pulls it low and high for 80us each
	for i, level := range []gpio.Level{gpio.Low, gpio.High, gpio.Low} {
		if _, err := d.waitFor(level); err != nil {
			return fmt.Errorf("%w (preamble %d)", err, i)
		}
	}
	for i := range highs {
		if _, err := d.waitFor(gpio.High); err != nil {
			return fmt.Errorf("%w (bit %d)", err, i)
		}
		n, err := d.waitFor(gpio.Low)
		if err != nil {
			return fmt.Errorf("%w (bit %d)", err, i)
		}
		highs[i] = n
	}
	return nil
}

// waitFor busy-waits until the pin reads level and returns how long that took.
func (d *Device) waitFor(level gpio.Level) (time.Duration, error) {
	start := time.Now()
	for d.pin.Read() != level {
		if time.Since(start) > pulseTimeout {
			return 0, ErrTimeout
		}
	}
	return time.Since(start), nil
}

// FrameFromPulses turns the 40 high pulse widths into the five data bytes, most significant bit first.
func FrameFromPulses(highs [frameBits]time.Duration) [5]byte {
	var frame [5]byte
	for i, h := range highs {
		frame[i/8] <<= 1
		if h > oneThreshold {
			frame[i/8] |= 1
		}
	}
	return frame
}

// Decode checks a frame's checksum and extracts tenths of a degree Celsius and tenths of a percent humidity.
func Decode(frame [5]byte, model Model) (int16, uint16, error) {
	if sum := frame[0] + frame[1] + frame[2] + frame[3]; sum != frame[4] {
		return 0, 0, fmt.Errorf("%w: %#02x != %#02x", ErrChecksum, sum, frame[4])
	}
	var t int16
	var h uint16
	switch model {
	case DHT22:
		h = uint16(frame[0])<<8 | uint16(frame[1])
		t = int16(frame[2]&0x7F)<<8 | int16(frame[3])
		if frame[2]&0x80 != 0 {
			t = -t
		}
	default:
		h = uint16(frame[0])*10 + uint16(frame[1]%10)
		t = int16(frame[2])*10 + int16(frame[3]&0x7F%10)
		if frame[3]&0x80 != 0 {
			t = -t
		}
	}
	return t, h, nil
}
