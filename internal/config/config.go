// Package config loads the picoboard YAML configuration. Every key is optional: Default holds the values a missing
// key takes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajanata/pico-drivers/bh1750"
	"github.com/ajanata/pico-drivers/dht"
	"github.com/ajanata/pico-drivers/linebuf"
	"github.com/ajanata/pico-drivers/mqttsink"
	"github.com/ajanata/pico-drivers/zs042"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	// Bus is the periph I2C bus name. Empty picks the first one.
	Bus        string        `yaml:"bus"`
	Interval   time.Duration `yaml:"interval"`
	Settle     time.Duration `yaml:"settle"`
	Idle       time.Duration `yaml:"idle"`
	LineSize   int           `yaml:"line_size"`
	ErrorLines bool          `yaml:"error_lines"`

	RTC     RTC     `yaml:"rtc"`
	Weather Weather `yaml:"weather"`
	Light   Light   `yaml:"light"`
	DHT     DHT     `yaml:"dht"`
	OLED    OLED    `yaml:"oled"`
	Sinks   Sinks   `yaml:"sinks"`
}

type RTC struct {
	Address uint8 `yaml:"address"`
	// Init writes Initial to the clock at startup.
	Init bool `yaml:"init"`
	// Initial is "YYYY-MM-DD HH:MM:SS".
	Initial string `yaml:"initial"`
	// Weekday overrides the weekday derived from Initial, 1 (Sunday) to 7.
	Weekday uint8 `yaml:"weekday"`
}

type Weather struct {
	Address uint16 `yaml:"address"`
}

type Light struct {
	Address uint8 `yaml:"address"`
	// Mode is one of low, high or high2.
	Mode string `yaml:"mode"`
}

type DHT struct {
	Pin string `yaml:"pin"`
	// Model is dht11 or dht22.
	Model string `yaml:"model"`
}

type OLED struct {
	Address   uint8 `yaml:"address"`
	Width     int16 `yaml:"width"`
	Height    int16 `yaml:"height"`
	Rotate180 bool  `yaml:"rotate180"`
}

type Sinks struct {
	Stdout bool `yaml:"stdout"`
	TCP    TCP  `yaml:"tcp"`
	MQTT   MQTT `yaml:"mqtt"`
	OLED   bool `yaml:"oled"`
}

type TCP struct {
	// Listen is the address to serve the console on. Empty disables it.
	Listen     string `yaml:"listen"`
	MaxClients int    `yaml:"max_clients"`
}

type MQTT struct {
	// Driver is paho or natiu.
	Driver string `yaml:"driver"`
	// Broker is host:port. Empty disables MQTT.
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Encoding string `yaml:"encoding"`
	QoS      byte   `yaml:"qos"`
}

// Default returns the stock board setup: a DS3231 set to Friday 24/6/2025 at midnight, sampled
// once a second onto stdout.
func Default() Config {
	return Config{
		Env:        "dev",
		LogLevel:   "info",
		Interval:   time.Second,
		Settle:     time.Second,
		Idle:       time.Millisecond,
		LineSize:   linebuf.DefaultSize,
		ErrorLines: true,
		RTC: RTC{
			Address: zs042.Address,
			Init:    true,
			Initial: "2025-06-24 00:00:00",
			Weekday: uint8(zs042.Friday),
		},
		Weather: Weather{Address: 0x76},
		Light:   Light{Address: bh1750.DefaultAddress, Mode: "low"},
		DHT:     DHT{Pin: "GPIO4", Model: "dht11"},
		OLED:    OLED{Address: 0x3C, Width: 128, Height: 64, Rotate180: true},
		Sinks: Sinks{
			Stdout: true,
			TCP:    TCP{MaxClients: 1},
			MQTT:   MQTT{Driver: "paho", Topic: "picoboard/telemetry", Encoding: string(mqttsink.Text)},
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid env %q (allowed: dev, prod)", c.Env)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return fmt.Errorf("invalid interval %v", c.Interval)
	}
	if c.Settle < 0 || c.Idle < 0 {
		return errors.New("settle and idle must not be negative")
	}
	if c.LineSize < len(linebuf.CRLF) || c.LineSize > linebuf.MaxSize {
		return fmt.Errorf("invalid line_size %d (allowed: %d-%d)", c.LineSize, len(linebuf.CRLF), linebuf.MaxSize)
	}
	if c.RTC.Init {
		if _, err := c.RTC.DateTime(); err != nil {
			return err
		}
	}
	if _, err := c.Light.BH1750Mode(); err != nil {
		return err
	}
	if _, err := c.DHT.DHTModel(); err != nil {
		return err
	}
	if c.OLED.Width <= 0 || c.OLED.Height <= 0 || c.OLED.Height%8 != 0 {
		return fmt.Errorf("invalid oled size %dx%d", c.OLED.Width, c.OLED.Height)
	}
	if c.Sinks.MQTT.Broker != "" {
		switch c.Sinks.MQTT.Driver {
		case "paho", "natiu":
		default:
			return fmt.Errorf("invalid mqtt driver %q (allowed: paho, natiu)", c.Sinks.MQTT.Driver)
		}
		switch mqttsink.Encoding(c.Sinks.MQTT.Encoding) {
		case mqttsink.Text, mqttsink.CBOR:
		default:
			return fmt.Errorf("invalid mqtt encoding %q (allowed: text, cbor)", c.Sinks.MQTT.Encoding)
		}
		if c.Sinks.MQTT.QoS > 2 {
			return fmt.Errorf("invalid mqtt qos %d", c.Sinks.MQTT.QoS)
		}
		if c.Sinks.MQTT.Driver == "natiu" && c.Sinks.MQTT.QoS != 0 {
			return errors.New("the natiu mqtt driver only publishes at qos 0")
		}
		if c.Sinks.MQTT.Topic == "" {
			return errors.New("mqtt topic is required")
		}
	}
	return nil
}

// Level returns the parsed log level. It is only valid after Validate succeeded.
func (c Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q (allowed: debug, info, warn, error)", s)
	}
}

// DateTime returns the initial clock value.
func (r RTC) DateTime() (zs042.DateTime, error) {
	t, err := time.Parse(time.DateTime, r.Initial)
	if err != nil {
		return zs042.DateTime{}, fmt.Errorf("invalid rtc initial %q: %w", r.Initial, err)
	}
	dt, err := zs042.FromTime(t)
	if err != nil {
		return zs042.DateTime{}, err
	}
	if r.Weekday != 0 {
		if dt.Weekday, err = zs042.ParseDay(r.Weekday); err != nil {
			return zs042.DateTime{}, err
		}
	}
	return dt, nil
}

func (l Light) BH1750Mode() (bh1750.Mode, error) {
	switch strings.ToLower(l.Mode) {
	case "low":
		return bh1750.ContinuousLowRes, nil
	case "high":
		return bh1750.ContinuousHighRes, nil
	case "high2":
		return bh1750.ContinuousHighRes2, nil
	default:
		return 0, fmt.Errorf("invalid light mode %q (allowed: low, high, high2)", l.Mode)
	}
}

func (d DHT) DHTModel() (dht.Model, error) {
	switch strings.ToLower(d.Model) {
	case "dht11":
		return dht.DHT11, nil
	case "dht22":
		return dht.DHT22, nil
	default:
		return 0, fmt.Errorf("invalid dht model %q (allowed: dht11, dht22)", d.Model)
	}
}

// MQTTConfig returns the sink configuration.
func (m MQTT) MQTTConfig() mqttsink.Config {
	return mqttsink.Config{
		Broker:   m.Broker,
		Topic:    m.Topic,
		ClientID: m.ClientID,
		Encoding: mqttsink.Encoding(m.Encoding),
		QoS:      m.QoS,
	}
}
