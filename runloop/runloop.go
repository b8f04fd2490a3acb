// Package runloop is the forever loop every board image runs: poll the interval gate, sample and write a line when it
// fires, and service the serial port on every single iteration.
//
// One Runner owns the sampler, the port and the gate. Nothing else may touch them while it runs.
package runloop

import (
	"context"
	"log/slog"
	"time"

	"github.com/ajanata/pico-drivers/interval"
	"github.com/ajanata/pico-drivers/linebuf"
	"github.com/ajanata/pico-drivers/serial"
)

// Sampler reads a peripheral and renders the reading into l, CRLF included.
type Sampler interface {
	Sample(l *linebuf.Line) error
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(l *linebuf.Line) error

func (f SamplerFunc) Sample(l *linebuf.Line) error { return f(l) }

type Config struct {
	// Interval between samples. Zero means one second.
	Interval time.Duration
	// Settle is waited once in Start, before the gate starts counting.
	Settle time.Duration
	// Idle is slept after every iteration of Run. Zero spins, like the firmware does.
	Idle time.Duration
	// LineSize is the capacity of the output line. Zero means linebuf.DefaultSize.
	LineSize int
	// ErrorLines writes "ERR <error>" in place of a failed sample. Otherwise a failed sample writes nothing.
	ErrorLines bool
}

// Stats counts what the runner did.
type Stats struct {
	Iterations uint64
	Samples    uint64
	Failures   uint64
	Dropped    uint64
}

type Runner struct {
	cfg      Config
	clock    interval.Clock
	gate     *interval.Gate
	sampler  Sampler
	port     serial.Port
	servicer serial.Servicer
	logger   *slog.Logger
	line     linebuf.Line
	stats    Stats

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New creates a runner. If port is also a serial.Servicer it is serviced on every iteration.
func New(cfg Config, clock interval.Clock, sampler Sampler, port serial.Port, logger *slog.Logger) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:     cfg,
		clock:   clock,
		gate:    interval.NewGate(interval.Micros(cfg.Interval), clock.Micros()),
		sampler: sampler,
		port:    port,
		logger:  logger,
		line:    linebuf.New(cfg.LineSize),
		sleep:   time.Sleep,
	}
	if s, ok := port.(serial.Servicer); ok {
		r.servicer = s
	}
	return r
}

// Start waits out the settle delay and starts the interval from there.
func (r *Runner) Start() {
	if r.cfg.Settle > 0 {
		r.sleep(r.cfg.Settle)
	}
	r.gate.Reset(r.clock.Micros())
}

// Step runs one loop iteration at counter value now and reports whether a sample was taken.
func (r *Runner) Step(now uint64) bool {
	r.stats.Iterations++
	fired := r.gate.Ready(now)
	if fired {
		r.sample()
	}
	if r.servicer != nil {
		r.servicer.Service()
	}
	return fired
}

func (r *Runner) sample() {
	r.stats.Samples++
	r.line.Reset()
	if err := r.sampler.Sample(&r.line); err != nil {
		r.stats.Failures++
		r.logger.Warn("sample failed", "error", err)
		if !r.cfg.ErrorLines {
			return
		}
		r.line.Message("ERR " + err.Error())
	}
	if _, err := r.port.Write(r.line.Bytes()); err != nil {
		r.stats.Dropped++
		r.logger.Debug("line dropped", "error", err)
	}
}

// Run calls Start and then steps forever, until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.Start()
	r.logger.Info("run loop started", "interval", r.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			if err := r.port.Flush(); err != nil {
				r.logger.Debug("final flush failed", "error", err)
			}
			r.logger.Info("run loop stopped",
				"iterations", r.stats.Iterations,
				"samples", r.stats.Samples,
				"failures", r.stats.Failures,
				"dropped", r.stats.Dropped,
			)
			return ctx.Err()
		default:
		}
		r.Step(r.clock.Micros())
		if r.cfg.Idle > 0 {
			r.sleep(r.cfg.Idle)
		}
	}
}

// Stats returns the counters so far.
func (r *Runner) Stats() Stats {
	return r.stats
}
