package telemetry

import (
	"periph.io/x/conn/v3/physic"

	"github.com/ajanata/pico-drivers/linebuf"
	"github.com/ajanata/pico-drivers/zs042"
)

// ClockReader is implemented by *zs042.Device.
type ClockReader interface {
	Now() (zs042.DateTime, error)
}

// Clock samples the real-time clock.
type Clock struct {
	RTC ClockReader
}

func (s Clock) Sample(l *linebuf.Line) error {
	dt, err := s.RTC.Now()
	if err != nil {
		return err
	}
	return FormatDateTime(l, dt)
}

// WeatherSensor is implemented by *bmxx80.Dev.
type WeatherSensor interface {
	Sense(e *physic.Env) error
}

// Weather samples a pressure/humidity/temperature sensor.
type Weather struct {
	Sensor WeatherSensor
}

func (s Weather) Sample(l *linebuf.Line) error {
	var e physic.Env
	if err := s.Sensor.Sense(&e); err != nil {
		return err
	}
	return FormatWeather(l, e)
}

// LightSensor is implemented by *bh1750.Device.
type LightSensor interface {
	Illuminance() (int32, error)
}

// Light samples an ambient light sensor.
type Light struct {
	Sensor LightSensor
}

func (s Light) Sample(l *linebuf.Line) error {
	mlx, err := s.Sensor.Illuminance()
	if err != nil {
		return err
	}
	return FormatLux(l, mlx)
}

// TempHumSensor is implemented by *dht.Device.
type TempHumSensor interface {
	Measure() (deciC int16, deciRH uint16, err error)
}

// TempHum samples a temperature/humidity sensor.
type TempHum struct {
	Sensor TempHumSensor
}

func (s TempHum) Sample(l *linebuf.Line) error {
	t, h, err := s.Sensor.Measure()
	if err != nil {
		return err
	}
	return FormatTempHum(l, t, h)
}

// Greeting writes a fixed line, for checking that the serial link is up.
type Greeting string

func (g Greeting) Sample(l *linebuf.Line) error {
	if _, err := l.WriteString(string(g)); err != nil {
		return err
	}
	return l.Terminate()
}
