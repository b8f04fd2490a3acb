// Package serial holds the outbound side of the boards: a Port receives finished telemetry lines, and a Servicer is
// pumped on every loop iteration so that queued bytes actually leave and incoming bytes get handled, whether or not
// anything was sampled.
//
// Nothing here blocks for long. A port that cannot deliver drops data and carries on.
package serial

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
)

// Port is the outbound byte sink.
type Port interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Servicer is polled once per loop iteration.
type Servicer interface {
	Service()
}

// Handler receives bytes read from a port. The slice is only valid for the duration of the call.
type Handler func(p []byte)

// Writer turns an unbuffered io.Writer into a Port. On TinyGo, machine.Serial (the USB CDC endpoint) is wrapped this
// way: the runtime services USB in the background, so Service has nothing to do.
type Writer struct {
	W io.Writer
}

func (w Writer) Write(p []byte) (int, error) { return w.W.Write(p) }
func (w Writer) Flush() error                { return nil }
func (w Writer) Service()                    {}

// Stream is a buffered Port over an output stream, with an optional input stream read in the background. On a host
// it stands in for the USB serial line, using stdout and stdin.
type Stream struct {
	out    *bufio.Writer
	in     chan []byte
	logger *slog.Logger

	// OnReceive is called from Service with bytes read from the input stream.
	OnReceive Handler
}

// NewStream wraps w, and starts reading r if it is not nil.
func NewStream(r io.Reader, w io.Writer, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stream{
		out:    bufio.NewWriterSize(w, 512),
		logger: logger,
	}
	if r != nil {
		s.in = make(chan []byte, 16)
		go s.read(r)
	}
	return s
}

func (s *Stream) read(r io.Reader) {
	defer close(s.in)
	for {
		buf := make([]byte, 64)
		n, err := r.Read(buf)
		if n > 0 {
			s.in <- buf[:n]
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("serial input closed", "error", err)
			}
			return
		}
	}
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stream) Flush() error {
	return s.out.Flush()
}

// Service flushes pending output and hands any received input to OnReceive.
func (s *Stream) Service() {
	if err := s.out.Flush(); err != nil {
		s.logger.Warn("serial output failed, discarding from now on", "error", err)
		s.out.Reset(io.Discard)
	}
	if s.in == nil {
		return
	}
	for {
		select {
		case p, ok := <-s.in:
			if !ok {
				s.in = nil
				return
			}
			if s.OnReceive != nil {
				s.OnReceive(p)
			}
		default:
			return
		}
	}
}

// Multi fans one Port out to several. Writes and flushes go to every port; the first error is returned after all of
// them were tried.
type Multi []Port

func (m Multi) Write(p []byte) (int, error) {
	var first error
	for _, port := range m {
		if _, err := port.Write(p); err != nil && first == nil {
			first = err
		}
	}
	return len(p), first
}

func (m Multi) Flush() error {
	var first error
	for _, port := range m {
		if err := port.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Service services every port that is also a Servicer.
func (m Multi) Service() {
	for _, port := range m {
		if s, ok := port.(Servicer); ok {
			s.Service()
		}
	}
}
