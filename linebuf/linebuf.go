// Package linebuf is a fixed-capacity text builder for telemetry lines. It never grows and never allocates: a write
// that does not fit is refused whole with ErrOverflow and the line keeps what it had.
package linebuf

import (
	"errors"
	"strconv"

	"golang.org/x/exp/constraints"
)

// ErrOverflow is returned when a write would go past the line's capacity.
var ErrOverflow = errors.New("linebuf: line capacity exceeded")

const (
	// DefaultSize is the capacity of a line from New(0), matching the 32-byte serial buffers the boards use.
	DefaultSize = 32
	// MaxSize is the largest capacity a Line supports.
	MaxSize = 64
)

// CRLF terminates every line.
const CRLF = "\r\n"

// Line is a bounded byte buffer. The zero value is not usable, create one with New.
type Line struct {
	buf  [MaxSize]byte
	n    int
	size int
}

// New returns an empty line holding at most size bytes. Zero means DefaultSize, and sizes above MaxSize are capped.
func New(size int) Line {
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Line{size: size}
}

func (l *Line) Len() int      { return l.n }
func (l *Line) Cap() int      { return l.size }
func (l *Line) Bytes() []byte { return l.buf[:l.n] }
func (l *Line) String() string {
	return string(l.buf[:l.n])
}

// Reset empties the line, keeping its capacity.
func (l *Line) Reset() {
	l.n = 0
}

// Write appends p entirely, or nothing at all if it does not fit.
func (l *Line) Write(p []byte) (int, error) {
	if l.n+len(p) > l.size {
		return 0, ErrOverflow
	}
	l.n += copy(l.buf[l.n:l.size], p)
	return len(p), nil
}

func (l *Line) WriteString(s string) (int, error) {
	if l.n+len(s) > l.size {
		return 0, ErrOverflow
	}
	l.n += copy(l.buf[l.n:l.size], s)
	return len(s), nil
}

func (l *Line) WriteByte(c byte) error {
	if l.n >= l.size {
		return ErrOverflow
	}
	l.buf[l.n] = c
	l.n++
	return nil
}

// WriteUint appends v in decimal, left-padded with zeros to at least width digits.
func WriteUint[T constraints.Unsigned](l *Line, v T, width int) error {
	var tmp [20]byte
	i := len(tmp)
	for v >= 10 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	i--
	tmp[i] = byte('0' + v)
	for len(tmp)-i < width && i > 0 {
		i--
		tmp[i] = '0'
	}
	_, err := l.Write(tmp[i:])
	return err
}

// WriteInt appends v in decimal.
func WriteInt[T constraints.Signed](l *Line, v T) error {
	var tmp [20]byte
	_, err := l.Write(strconv.AppendInt(tmp[:0], int64(v), 10))
	return err
}

// WriteFloat appends v with prec digits after the decimal point.
func (l *Line) WriteFloat(v float64, prec int) error {
	var tmp [32]byte
	_, err := l.Write(strconv.AppendFloat(tmp[:0], v, 'f', prec, 64))
	return err
}

// Terminate appends CRLF.
func (l *Line) Terminate() error {
	_, err := l.WriteString(CRLF)
	return err
}

// Message replaces the contents with as much of s as fits while leaving room for CRLF, then terminates the line.
// It is meant for error reports, which must always fit. A line shorter than CRLF gets as much of CRLF as fits.
func (l *Line) Message(s string) {
	l.n = 0
	room := max(l.size-len(CRLF), 0)
	if len(s) > room {
		s = s[:room]
	}
	l.n += copy(l.buf[:], s)
	l.n += copy(l.buf[l.n:l.size], CRLF)
}
