// Package console implements the small command language spoken over the serial line: typed bytes are assembled into
// lines, split shell-style, and run against the board's clock.
package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/ajanata/pico-drivers/linebuf"
	"github.com/ajanata/pico-drivers/telemetry"
	"github.com/ajanata/pico-drivers/zs042"
)

// ErrUnknownCommand is returned by Exec for a command it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// RTC is implemented by *zs042.Device.
type RTC interface {
	Now() (zs042.DateTime, error)
	Set(dt zs042.DateTime) error
}

// Console runs commands. RTC may be nil on boards without a clock, in which case the clock commands fail.
type Console struct {
	RTC    RTC
	Out    io.Writer
	Logger *slog.Logger

	pending []byte
}

const maxLine = 128

const help = "commands: time | set YYYY-MM-DD HH:MM:SS | echo TEXT... | help\r\n"

// Feed accumulates typed bytes and runs every complete line. Lines end at CR or LF; empty lines are ignored and
// anything longer than 128 bytes is discarded.
func (c *Console) Feed(p []byte) {
	for _, b := range p {
		switch b {
		case '\r', '\n':
			line := string(c.pending)
			c.pending = c.pending[:0]
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := c.Exec(line); err != nil {
				c.logger().Debug("console command failed", "line", line, "error", err)
				fmt.Fprintf(c.Out, "ERR %v\r\n", err)
			}
		default:
			if len(c.pending) < maxLine {
				c.pending = append(c.pending, b)
			}
		}
	}
}

// Exec runs one command line.
func (c *Console) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "help", "?":
		_, err = io.WriteString(c.Out, help)
		return err
	case "echo":
		_, err = fmt.Fprintf(c.Out, "%s\r\n", strings.Join(args[1:], " "))
		return err
	case "time", "now":
		return c.time()
	case "set":
		return c.set(args[1:])
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, args[0])
	}
}

func (c *Console) time() error {
	if c.RTC == nil {
		return errors.New("no clock")
	}
	dt, err := c.RTC.Now()
	if err != nil {
		return err
	}
	l := linebuf.New(telemetry.MaxDateTimeLen)
	if err := telemetry.FormatDateTime(&l, dt); err != nil {
		return err
	}
	_, err = c.Out.Write(l.Bytes())
	return err
}

func (c *Console) set(args []string) error {
	if c.RTC == nil {
		return errors.New("no clock")
	}
	if len(args) != 2 {
		return errors.New("usage: set YYYY-MM-DD HH:MM:SS")
	}
	t, err := time.Parse(time.DateTime, args[0]+" "+args[1])
	if err != nil {
		return err
	}
	dt, err := zs042.FromTime(t)
	if err != nil {
		return err
	}
	if err := c.RTC.Set(dt); err != nil {
		return err
	}
	c.logger().Info("clock set", "time", t.Format(time.DateTime), "weekday", dt.Weekday.String())
	_, err = io.WriteString(c.Out, "OK\r\n")
	return err
}

func (c *Console) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
