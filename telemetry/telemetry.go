// Package telemetry renders sensor readings into serial lines and adapts each sensor driver to the run loop.
//
// Every renderer appends to a linebuf.Line and finishes with CRLF. A reading that does not fit returns
// linebuf.ErrOverflow; the line is then incomplete and must be discarded by the caller.
package telemetry

import (
	"periph.io/x/conn/v3/physic"

	"github.com/ajanata/pico-drivers/linebuf"
	"github.com/ajanata/pico-drivers/zs042"
)

// MaxDateTimeLen is the longest line FormatDateTime produces ("Wednesday, 28/12/2099, 23:59:59\r\n"). It is one
// byte more than linebuf.DefaultSize, so clock lines need a bigger buffer.
const MaxDateTimeLen = 33

// FormatDateTime renders dt as "<Weekday>, <day>/<month>/20<year>, <HH>:<MM>:<SS>". Day, month and year are not
// padded, so year 5 reads "205". The time of day is padded to two digits.
func FormatDateTime(l *linebuf.Line, dt zs042.DateTime) error {
	if _, err := l.WriteString(dt.Weekday.String()); err != nil {
		return err
	}
	if _, err := l.WriteString(", "); err != nil {
		return err
	}
	if err := linebuf.WriteUint(l, dt.Day, 0); err != nil {
		return err
	}
	if err := l.WriteByte('/'); err != nil {
		return err
	}
	if err := linebuf.WriteUint(l, dt.Month, 0); err != nil {
		return err
	}
	if _, err := l.WriteString("/20"); err != nil {
		return err
	}
	if err := linebuf.WriteUint(l, dt.Year, 0); err != nil {
		return err
	}
	if _, err := l.WriteString(", "); err != nil {
		return err
	}
	return clock(l, dt.Hour, dt.Minute, dt.Second)
}

func clock(l *linebuf.Line, h, m, s uint8) error {
	for i, v := range [3]uint8{h, m, s} {
		if i > 0 {
			if err := l.WriteByte(':'); err != nil {
				return err
			}
		}
		if err := linebuf.WriteUint(l, v, 2); err != nil {
			return err
		}
	}
	return l.Terminate()
}

// FormatWeather renders an environmental reading as "<humidity %>, <pressure hPa>, <temperature C>".
func FormatWeather(l *linebuf.Line, e physic.Env) error {
	hum := float64(e.Humidity) / float64(physic.PercentRH)
	press := float64(e.Pressure) / float64(100*physic.Pascal)
	temp := float64(e.Temperature-physic.ZeroCelsius) / float64(physic.Celsius)
	if err := l.WriteFloat(hum, 1); err != nil {
		return err
	}
	if _, err := l.WriteString(", "); err != nil {
		return err
	}
	if err := l.WriteFloat(press, 2); err != nil {
		return err
	}
	if _, err := l.WriteString(", "); err != nil {
		return err
	}
	if err := l.WriteFloat(temp, 2); err != nil {
		return err
	}
	return l.Terminate()
}

// FormatLux renders an illuminance given in millilux as "Lux: <lux>" with one decimal.
func FormatLux(l *linebuf.Line, mlx int32) error {
	if _, err := l.WriteString("Lux: "); err != nil {
		return err
	}
	if err := l.WriteFloat(float64(mlx)/1000, 1); err != nil {
		return err
	}
	return l.Terminate()
}

// FormatTempHum renders a temperature in tenths of a degree Celsius and a relative humidity in tenths of a percent as
// "Temp: <t>, Hum:<h>".
func FormatTempHum(l *linebuf.Line, deciC int16, deciRH uint16) error {
	if _, err := l.WriteString("Temp: "); err != nil {
		return err
	}
	if err := l.WriteFloat(float64(deciC)/10, 1); err != nil {
		return err
	}
	if _, err := l.WriteString(", Hum:"); err != nil {
		return err
	}
	if err := l.WriteFloat(float64(deciRH)/10, 1); err != nil {
		return err
	}
	return l.Terminate()
}
