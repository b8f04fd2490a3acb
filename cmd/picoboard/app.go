package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajanata/pico-drivers/display"
	"github.com/ajanata/pico-drivers/internal/config"
	"github.com/ajanata/pico-drivers/internal/logging"
	"github.com/ajanata/pico-drivers/interval"
	"github.com/ajanata/pico-drivers/mqttsink"
	"github.com/ajanata/pico-drivers/periphbus"
	"github.com/ajanata/pico-drivers/runloop"
	"github.com/ajanata/pico-drivers/serial"
	"github.com/ajanata/pico-drivers/ssd1306"
)

// app holds what every image needs: configuration, logger, the bus and whatever has to be closed on the way out.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	i2c     *periphbus.Bus
	closers []func() error
}

func newApp(image string) (*app, error) {
	cfg, err := config.Load(rootOpts.config)
	if err != nil {
		return nil, err
	}
	if rootOpts.logLevel != "" {
		cfg.LogLevel = rootOpts.logLevel
	}
	if rootOpts.env != "" {
		cfg.Env = rootOpts.env
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(cfg, os.Stderr, "picoboard").With("image", image)
	return &app{cfg: cfg, logger: logger}, nil
}

// bus opens the I2C bus on first use.
func (a *app) bus() (*periphbus.Bus, error) {
	if a.i2c != nil {
		return a.i2c, nil
	}
	b, closer, err := periphbus.Open(a.cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}
	a.logger.Debug("i2c bus opened", "bus", b.String())
	a.i2c = b
	a.onClose(closer)
	return b, nil
}

func (a *app) onClose(f func() error) {
	a.closers = append(a.closers, f)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Debug("close failed", "error", err)
		}
	}
	a.closers = nil
}

// sinks builds the configured output ports. Bytes typed on the ports that have an input side go to onReceive.
func (a *app) sinks(onReceive serial.Handler) (serial.Multi, error) {
	var ports serial.Multi
	s := a.cfg.Sinks
	if s.Stdout {
		stream := serial.NewStream(os.Stdin, os.Stdout, a.logger)
		stream.OnReceive = onReceive
		ports = append(ports, stream)
	}
	if s.TCP.Listen != "" {
		l, err := serial.Listen(s.TCP.Listen, s.TCP.MaxClients, a.logger)
		if err != nil {
			return nil, fmt.Errorf("tcp sink: %w", err)
		}
		l.OnReceive = onReceive
		a.onClose(l.Close)
		a.logger.Info("serving console", "addr", l.Addr().String())
		ports = append(ports, l)
	}
	if s.MQTT.Broker != "" {
		mc := s.MQTT.MQTTConfig()
		switch s.MQTT.Driver {
		case "natiu":
			n := mqttsink.NewNatiu(mc, a.logger)
			n.Connect()
			a.onClose(func() error { n.Close(); return nil })
			ports = append(ports, n)
		default:
			p := mqttsink.NewPaho(mc, a.logger)
			p.Connect()
			a.onClose(func() error { p.Close(); return nil })
			ports = append(ports, p)
		}
	}
	if s.OLED {
		screen, err := a.screen()
		if err != nil {
			return nil, fmt.Errorf("oled sink: %w", err)
		}
		ports = append(ports, display.NewTerminal(screen))
	}
	if len(ports) == 0 {
		return nil, errors.New("no sinks configured")
	}
	return ports, nil
}

func (a *app) screen() (*ssd1306.Device, error) {
	b, err := a.bus()
	if err != nil {
		return nil, err
	}
	dev := ssd1306.NewI2C(b)
	o := a.cfg.OLED
	err = dev.Configure(ssd1306.Config{
		Address:   o.Address,
		Width:     o.Width,
		Height:    o.Height,
		Rotate180: o.Rotate180,
	})
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// run samples onto port until SIGINT or SIGTERM. lineSize overrides the configured line size when larger.
func (a *app) run(sampler runloop.Sampler, port serial.Port, lineSize int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := runloop.Config{
		Interval:   a.cfg.Interval,
		Settle:     a.cfg.Settle,
		Idle:       a.cfg.Idle,
		LineSize:   max(a.cfg.LineSize, lineSize),
		ErrorLines: a.cfg.ErrorLines,
	}
	r := runloop.New(rc, interval.NewSystemClock(), sampler, port, a.logger)
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
