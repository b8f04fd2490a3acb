// Package ssd1306 implements a driver for SSD1306 monochrome OLED controllers on I2C, as used by the common 128x64
// and 128x32 modules. Drawing goes to a framebuffer in memory and Display pushes all of it in one transaction.
//
// Datasheet: https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
package ssd1306

import (
	"image/color"

	"github.com/ajanata/pico-drivers"
)

// Address is the usual address of the modules; some are strapped to 0x3D.
const Address = 0x3C

const (
	controlCommand = 0x00
	controlData    = 0x40
)

const (
	SETCONTRAST         = 0x81
	DISPLAYALLON_RESUME = 0xA4
	NORMALDISPLAY       = 0xA6
	DISPLAYOFF          = 0xAE
	DISPLAYON           = 0xAF
	SETDISPLAYOFFSET    = 0xD3
	SETCOMPINS          = 0xDA
	SETVCOMDETECT       = 0xDB
	SETDISPLAYCLOCKDIV  = 0xD5
	SETPRECHARGE        = 0xD9
	SETMULTIPLEX        = 0xA8
	SETSTARTLINE        = 0x40
	MEMORYMODE          = 0x20
	COLUMNADDR          = 0x21
	PAGEADDR            = 0x22
	COMSCANINC          = 0xC0
	COMSCANDEC          = 0xC8
	SEGREMAP            = 0xA0
	CHARGEPUMP          = 0x8D
	DEACTIVATE_SCROLL   = 0x2E
)

type Device struct {
	bus       drivers.I2C
	addr      uint8
	width     int16
	height    int16
	rotate180 bool

	// txBuf holds the data control byte followed by the framebuffer, so Display needs no copy
	txBuf  []byte
	buffer []byte
}

type Config struct {
	Address   uint8
	Width     int16
	Height    int16
	Rotate180 bool
}

// NewI2C creates a new driver on the provided, already configured, I2C bus.
func NewI2C(bus drivers.I2C) *Device {
	return &Device{
		bus:  bus,
		addr: Address,
	}
}

// Configure sends the power-up sequence and clears the screen. Width defaults to 128 and height to 64.
func (d *Device) Configure(c Config) error {
	if c.Address == 0 {
		c.Address = Address
	}
	if c.Width == 0 {
		c.Width = 128
	}
	if c.Height == 0 {
		c.Height = 64
	}
	d.addr = c.Address
	d.width = c.Width
	d.height = c.Height
	d.rotate180 = c.Rotate180

	d.txBuf = make([]byte, int(d.width)*int(d.height)/8+1)
	d.txBuf[0] = controlData
	d.buffer = d.txBuf[1:]

	comPins := byte(0x12)
	if d.height == 32 {
		comPins = 0x02
	}
	segRemap, comScan := byte(SEGREMAP|0x01), byte(COMSCANDEC)
	if d.rotate180 {
		segRemap, comScan = SEGREMAP, COMSCANINC
	}
	err := d.Command(
		DISPLAYOFF,
		SETDISPLAYCLOCKDIV, 0x80,
		SETMULTIPLEX, byte(d.height-1),
		SETDISPLAYOFFSET, 0x00,
		SETSTARTLINE|0x00,
		CHARGEPUMP, 0x14,
		MEMORYMODE, 0x00,
		segRemap,
		comScan,
		SETCOMPINS, comPins,
		SETCONTRAST, 0xCF,
		SETPRECHARGE, 0xF1,
		SETVCOMDETECT, 0x40,
		DISPLAYALLON_RESUME,
		NORMALDISPLAY,
		DEACTIVATE_SCROLL,
		DISPLAYON,
	)
	if err != nil {
		return err
	}
	return d.ClearDisplay()
}

// Command sends a command sequence.
func (d *Device) Command(cmd ...byte) error {
	return d.bus.WriteRegister(d.addr, controlCommand, cmd)
}

func (d *Device) Size() (int16, int16) {
	return d.width, d.height
}

// SetPixel sets a pixel in the buffer. Any non-black color lights it.
func (d *Device) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || x >= d.width || y < 0 || y >= d.height {
		return
	}
	i := int(x) + int(y/8)*int(d.width)
	if c.R != 0 || c.G != 0 || c.B != 0 {
		d.buffer[i] |= 1 << uint8(y%8)
	} else {
		d.buffer[i] &^= 1 << uint8(y%8)
	}
}

// GetPixel reports whether a pixel is lit in the buffer.
func (d *Device) GetPixel(x, y int16) bool {
	if x < 0 || x >= d.width || y < 0 || y >= d.height {
		return false
	}
	return d.buffer[int(x)+int(y/8)*int(d.width)]&(1<<uint8(y%8)) != 0
}

// FillRectangle sets every pixel of a rectangle in the buffer.
func (d *Device) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	for i := x; i < x+width; i++ {
		for j := y; j < y+height; j++ {
			d.SetPixel(i, j, c)
		}
	}
	return nil
}

// ClearBuffer blanks the buffer without touching the screen.
func (d *Device) ClearBuffer() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
}

// ClearDisplay blanks the buffer and the screen.
func (d *Device) ClearDisplay() error {
	d.ClearBuffer()
	return d.Display()
}

// Display sends the whole buffer to the screen.
func (d *Device) Display() error {
	err := d.Command(
		COLUMNADDR, 0, byte(d.width-1),
		PAGEADDR, 0, byte(d.height/8-1),
	)
	if err != nil {
		return err
	}
	return d.bus.Tx(uint16(d.addr), d.txBuf, nil)
}

// SetScroll moves the hardware display start line, which scrolls the screen without redrawing it.
func (d *Device) SetScroll(line int16) {
	d.Command(SETSTARTLINE | byte(line%d.height)&0x3F)
}

// SetScrollArea is a no-op: the controller scrolls the whole screen only.
func (d *Device) SetScrollArea(topFixedArea, bottomFixedArea int16) {}

// StopScroll resets the display start line.
func (d *Device) StopScroll() {
	d.SetScroll(0)
}
