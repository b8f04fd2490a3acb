// Package periphbus runs the drivers in this module on Linux hosts (a Raspberry Pi, say), over periph.io's I2C buses.
package periphbus

import (
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus adapts a periph.io I2C bus to drivers.I2C.
type Bus struct {
	b i2c.Bus
}

func New(b i2c.Bus) *Bus {
	return &Bus{b: b}
}

// Open initializes the host drivers and opens the named I2C bus ("" for the first one found). The returned closer
// releases the bus.
func Open(name string) (*Bus, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return New(bc), bc.Close, nil
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.b.Tx(addr, w, r)
}

func (b *Bus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.b.Tx(uint16(addr), []byte{r}, buf)
}

func (b *Bus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	w = append(w, buf...)
	return b.b.Tx(uint16(addr), w, nil)
}

// Periph returns the underlying bus, for periph.io device drivers such as bmxx80.
func (b *Bus) Periph() i2c.Bus {
	return b.b
}

func (b *Bus) String() string {
	return b.b.String()
}
