// Package interval decides when periodic work is due, measured off a free-running microsecond counter. It never
// sleeps: the caller polls Ready once per loop iteration and keeps servicing other work in between.
package interval

import "time"

// Second is the default sampling interval, in microseconds.
const Second uint64 = 1_000_000

// Clock is a monotonic, free-running microsecond counter. It may wrap around.
type Clock interface {
	Micros() uint64
}

// Gate fires at most once per Interval. An Interval of zero means Second, so the zero value fires on the first call
// with a counter at or beyond one second.
//
// After firing, the reference point moves to the time of the call, not to the previous reference plus Interval, so
// firings are at least Interval apart and drift by however late each poll was.
type Gate struct {
	Interval uint64
	last     uint64
}

// NewGate returns a gate whose first firing is one interval after now.
func NewGate(interval, now uint64) *Gate {
	if interval == 0 {
		interval = Second
	}
	return &Gate{Interval: interval, last: now}
}

// Ready reports whether Interval has elapsed since the last firing and, if so, records now as the last firing. The
// subtraction is modular, so a counter wrapping past its maximum still measures the right distance.
func (g *Gate) Ready(now uint64) bool {
	iv := g.Interval
	if iv == 0 {
		iv = Second
	}
	if now-g.last < iv {
		return false
	}
	g.last = now
	return true
}

// Last returns the counter value of the last firing.
func (g *Gate) Last() uint64 {
	return g.last
}

// Reset makes now the reference point without firing.
func (g *Gate) Reset(now uint64) {
	g.last = now
}

// Micros converts d to a counter interval.
func Micros(d time.Duration) uint64 {
	return uint64(d / time.Microsecond)
}

// SystemClock counts microseconds since it was created, off the runtime's monotonic clock.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Micros() uint64 {
	return uint64(time.Since(c.start) / time.Microsecond)
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	Now uint64
}

func (c *ManualClock) Micros() uint64 {
	return c.Now
}

// Advance moves the clock forward by d microseconds, wrapping like a hardware counter.
func (c *ManualClock) Advance(d uint64) {
	c.Now += d
}
