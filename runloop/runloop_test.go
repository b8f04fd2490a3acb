package runloop

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/ajanata/pico-drivers/interval"
	"github.com/ajanata/pico-drivers/internal/tester"
	"github.com/ajanata/pico-drivers/linebuf"
	"github.com/ajanata/pico-drivers/telemetry"
	"github.com/ajanata/pico-drivers/zs042"
)

type port struct {
	bytes.Buffer
	services int
	flushes  int
	err      error
}

func (p *port) Write(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.Buffer.Write(b)
}
func (p *port) Flush() error { p.flushes++; return nil }
func (p *port) Service()     { p.services++ }

func newClockRunner(c *qt.C, cfg Config) (*Runner, *interval.ManualClock, *tester.I2CBus, *port) {
	bus := tester.NewI2CBus(c)
	fake := tester.NewI2CDevice8(c, zs042.Address)
	fake.SetupRegisters([]byte{0x00, 0x30, 0x18, 0x06, 0x18, 0x06, 0x25})
	bus.AddDevice(fake)
	rtc := zs042.New(bus)

	clk := &interval.ManualClock{}
	p := &port{}
	r := New(cfg, clk, telemetry.Clock{RTC: &rtc}, p, nil)
	r.sleep = func(d time.Duration) { clk.Advance(interval.Micros(d)) }
	return r, clk, bus, p
}

func TestStep(t *testing.T) {
	c := qt.New(t)
	r, clk, bus, p := newClockRunner(c, Config{Settle: 100 * time.Millisecond, LineSize: telemetry.MaxDateTimeLen})
	r.Start()
	c.Assert(clk.Now, qt.Equals, uint64(100_000))

	// not due yet: no bus traffic, no output, but the port is still serviced
	c.Assert(r.Step(1_099_999), qt.IsFalse)
	c.Assert(bus.Transactions, qt.HasLen, 0)
	c.Assert(p.Len(), qt.Equals, 0)
	c.Assert(p.services, qt.Equals, 1)

	c.Assert(r.Step(1_100_000), qt.IsTrue)
	c.Assert(p.String(), qt.Equals, "Friday, 18/6/2025, 18:30:00\r\n")
	c.Assert(p.services, qt.Equals, 2)

	c.Assert(r.Step(1_600_000), qt.IsFalse)
	c.Assert(r.Step(2_100_000), qt.IsTrue)
	c.Assert(p.String(), qt.Equals, "Friday, 18/6/2025, 18:30:00\r\nFriday, 18/6/2025, 18:30:00\r\n")

	c.Assert(r.Stats(), qt.Equals, Stats{Iterations: 4, Samples: 2})
}

func TestStepSampleFailure(t *testing.T) {
	c := qt.New(t)

	c.Run("error line", func(c *qt.C) {
		r, _, bus, p := newClockRunner(c, Config{LineSize: telemetry.MaxDateTimeLen, ErrorLines: true})
		bus.FailAfter(0, errors.New("nack"))
		c.Assert(r.Step(interval.Second), qt.IsTrue)
		c.Assert(p.String(), qt.Equals, "ERR zs042: read seconds: nack\r\n")
		c.Assert(p.services, qt.Equals, 1)

		// the next interval recovers
		p.Reset()
		c.Assert(r.Step(2*interval.Second), qt.IsTrue)
		c.Assert(p.String(), qt.Equals, "Friday, 18/6/2025, 18:30:00\r\n")
		c.Assert(r.Stats().Failures, qt.Equals, uint64(1))
	})

	c.Run("silent", func(c *qt.C) {
		r, _, bus, p := newClockRunner(c, Config{LineSize: telemetry.MaxDateTimeLen})
		bus.FailAfter(0, errors.New("nack"))
		c.Assert(r.Step(interval.Second), qt.IsTrue)
		c.Assert(p.Len(), qt.Equals, 0)
		c.Assert(p.services, qt.Equals, 1)
		c.Assert(r.Stats().Failures, qt.Equals, uint64(1))
	})

	c.Run("overflow", func(c *qt.C) {
		// a reading too long for the buffer becomes a truncated error line, never a longer one
		r, _, _, p := newClockRunner(c, Config{LineSize: 16, ErrorLines: true})
		c.Assert(r.Step(interval.Second), qt.IsTrue)
		c.Assert(p.String(), qt.Equals, "ERR linebuf: l\r\n")
	})

	c.Run("tiny line", func(c *qt.C) {
		// an error line that cannot hold any text still keeps the loop going
		r, _, bus, p := newClockRunner(c, Config{LineSize: 1, ErrorLines: true})
		bus.FailAfter(0, errors.New("nack"))
		c.Assert(r.Step(interval.Second), qt.IsTrue)
		c.Assert(p.String(), qt.Equals, "\r")
		c.Assert(r.Stats().Failures, qt.Equals, uint64(1))
		c.Assert(p.services, qt.Equals, 1)
	})
}

func TestStepDroppedWrite(t *testing.T) {
	c := qt.New(t)
	r, _, _, p := newClockRunner(c, Config{LineSize: telemetry.MaxDateTimeLen})
	p.err = errors.New("disconnected")
	c.Assert(r.Step(interval.Second), qt.IsTrue)
	c.Assert(p.services, qt.Equals, 1)
	c.Assert(r.Stats().Dropped, qt.Equals, uint64(1))
}

func TestRun(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := &interval.ManualClock{}
	p := &port{}
	n := 0
	sampler := SamplerFunc(func(l *linebuf.Line) error {
		n++
		if n == 3 {
			cancel()
		}
		return telemetry.Greeting("hello world").Sample(l)
	})
	r := New(Config{Idle: 250 * time.Millisecond}, clk, sampler, p, nil)
	r.sleep = func(d time.Duration) { clk.Advance(interval.Micros(d)) }

	err := r.Run(ctx)
	c.Assert(err, qt.ErrorIs, context.Canceled)
	c.Assert(p.String(), qt.Equals, "hello world\r\nhello world\r\nhello world\r\n")
	c.Assert(p.flushes, qt.Equals, 1)
	// four idle periods per second, the first sample one second in
	c.Assert(r.Stats().Iterations, qt.Equals, uint64(13))
	c.Assert(p.services, qt.Equals, 13)
}
