package zs042

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWeekday is returned for weekday numbers outside 1-7.
	ErrWeekday = errors.New("zs042: weekday out of range")
	// ErrField is returned by Set for a DateTime field outside its calendar range.
	ErrField = errors.New("zs042: field out of range")
)

// Day of the week as stored by the chip. Sunday is 1.
type Day uint8

const (
	Sunday Day = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayNames = [...]string{
	Sunday:    "Sunday",
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
}

// ParseDay validates a raw weekday number.
func ParseDay(n uint8) (Day, error) {
	if n < uint8(Sunday) || n > uint8(Saturday) {
		return 0, fmt.Errorf("%w: %d", ErrWeekday, n)
	}
	return Day(n), nil
}

// DayName returns the English name of weekday n.
func DayName(n uint8) (string, error) {
	d, err := ParseDay(n)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

func (d Day) String() string {
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("Day(%d)", uint8(d))
	}
	return dayNames[d]
}

// DayOf converts a time.Weekday into the chip's numbering.
func DayOf(w time.Weekday) Day {
	return Day(w) + 1
}

// DateTime is the content of the seven timekeeping registers. Year counts from 2000.
type DateTime struct {
	Second  uint8
	Minute  uint8
	Hour    uint8 // always 24-hour
	Weekday Day
	Day     uint8
	Month   uint8
	Year    uint8
}

// FromTime converts t (in its own location) to a DateTime. Years outside 2000-2099 are rejected.
func FromTime(t time.Time) (DateTime, error) {
	if t.Year() < 2000 || t.Year() > 2099 {
		return DateTime{}, fmt.Errorf("%w: year %d", ErrField, t.Year())
	}
	return DateTime{
		Second:  uint8(t.Second()),
		Minute:  uint8(t.Minute()),
		Hour:    uint8(t.Hour()),
		Weekday: DayOf(t.Weekday()),
		Day:     uint8(t.Day()),
		Month:   uint8(t.Month()),
		Year:    uint8(t.Year() - 2000),
	}, nil
}

// Time returns dt as a time.Time in loc. The weekday register is not consulted.
func (dt DateTime) Time(loc *time.Location) time.Time {
	return time.Date(2000+int(dt.Year), time.Month(dt.Month), int(dt.Day),
		int(dt.Hour), int(dt.Minute), int(dt.Second), 0, loc)
}

// Validate checks every field against its calendar range. It does not check that the day exists in the month, or
// that the weekday matches the date; the chip accepts both as written.
func (dt DateTime) Validate() error {
	switch {
	case dt.Second > 59:
		return fmt.Errorf("%w: second %d", ErrField, dt.Second)
	case dt.Minute > 59:
		return fmt.Errorf("%w: minute %d", ErrField, dt.Minute)
	case dt.Hour > 23:
		return fmt.Errorf("%w: hour %d", ErrField, dt.Hour)
	case dt.Day < 1 || dt.Day > 31:
		return fmt.Errorf("%w: day %d", ErrField, dt.Day)
	case dt.Month < 1 || dt.Month > 12:
		return fmt.Errorf("%w: month %d", ErrField, dt.Month)
	case dt.Year > 99:
		return fmt.Errorf("%w: year %d", ErrField, dt.Year)
	}
	_, err := ParseDay(uint8(dt.Weekday))
	return err
}

// field returns the value stored in register r.
func (dt DateTime) field(r Register) uint8 {
	switch r {
	case Seconds:
		return dt.Second
	case Minutes:
		return dt.Minute
	case Hours:
		return dt.Hour
	case Weekday:
		return uint8(dt.Weekday)
	case Date:
		return dt.Day
	case Month:
		return dt.Month
	default:
		return dt.Year
	}
}
