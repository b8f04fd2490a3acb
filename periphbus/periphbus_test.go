package periphbus

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/ajanata/pico-drivers/zs042"
)

func TestRTCOverPeriph(t *testing.T) {
	c := qt.New(t)
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: zs042.Address, W: []byte{0x00}, R: []byte{0x00, 0x30, 0x18, 0x06, 0x18, 0x06, 0x25}},
		},
	}
	defer playback.Close()

	rtc := zs042.New(New(playback))
	dt, err := rtc.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(dt, qt.Equals, zs042.DateTime{Minute: 30, Hour: 18, Weekday: zs042.Friday, Day: 18, Month: 6, Year: 25})
}

func TestRegisterHelpers(t *testing.T) {
	c := qt.New(t)
	record := &i2ctest.Record{}
	b := New(record)

	c.Assert(b.WriteRegister(0x23, 0x10, []byte{0x01, 0x02}), qt.IsNil)
	c.Assert(record.Ops, qt.HasLen, 1)
	c.Assert(record.Ops[0].Addr, qt.Equals, uint16(0x23))
	c.Assert(record.Ops[0].W, qt.DeepEquals, []byte{0x10, 0x01, 0x02})
	c.Assert(b.Periph(), qt.Equals, i2c.Bus(record))

	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{{Addr: 0x23, W: []byte{0x20}, R: []byte{0xAB, 0xCD}}},
	}
	buf := make([]byte, 2)
	c.Assert(New(playback).ReadRegister(0x23, 0x20, buf), qt.IsNil)
	c.Assert(buf, qt.DeepEquals, []byte{0xAB, 0xCD})
	c.Assert(playback.Close(), qt.IsNil)
}

func TestPlaybackMismatch(t *testing.T) {
	c := qt.New(t)
	playback := &i2ctest.Playback{DontPanic: true}
	rtc := zs042.New(New(playback))
	_, err := rtc.Now()
	c.Assert(err, qt.Not(qt.IsNil))
}
