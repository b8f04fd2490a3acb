package serial

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

// eventually polls cond, servicing s in between, until it holds or a second has passed.
func eventually(c *qt.C, s Servicer, cond func() bool) {
	c.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.Service()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	c.Fatalf("condition not met within a second")
}

func TestWriter(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	w := Writer{W: &buf}
	n, err := w.Write([]byte("tick\r\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 6)
	c.Assert(w.Flush(), qt.IsNil)
	w.Service()
	c.Assert(buf.String(), qt.Equals, "tick\r\n")
}

func TestStream(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	s := NewStream(strings.NewReader("ping"), &out, nil)
	var got []byte
	s.OnReceive = func(p []byte) { got = append(got, p...) }

	_, err := s.Write([]byte("line\r\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(out.Len(), qt.Equals, 0)

	eventually(c, s, func() bool { return string(got) == "ping" })
	c.Assert(out.String(), qt.Equals, "line\r\n")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestStreamDegrades(t *testing.T) {
	c := qt.New(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s := NewStream(nil, failingWriter{}, logger)
	_, _ = s.Write([]byte("lost\r\n"))
	s.Service()
	// after a failure the stream keeps accepting and discarding
	_, err := s.Write([]byte("also lost\r\n"))
	c.Assert(err, qt.IsNil)
	s.Service()
	c.Assert(s.Flush(), qt.IsNil)

	// abandoning the output is reported once, at WARN
	c.Assert(strings.Count(logs.String(), "level=WARN"), qt.Equals, 1)
	c.Assert(logs.String(), qt.Contains, "serial output failed")
}

type countingPort struct {
	bytes.Buffer
	err      error
	services int
}

func (p *countingPort) Write(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.Buffer.Write(b)
}
func (p *countingPort) Flush() error { return p.err }
func (p *countingPort) Service()     { p.services++ }

func TestMulti(t *testing.T) {
	c := qt.New(t)
	broken := errors.New("broken")
	a, b, d := &countingPort{}, &countingPort{err: broken}, &countingPort{}
	m := Multi{a, b, d}

	n, err := m.Write([]byte("x\r\n"))
	c.Assert(n, qt.Equals, 3)
	c.Assert(err, qt.ErrorIs, broken)
	c.Assert(a.String(), qt.Equals, "x\r\n")
	c.Assert(d.String(), qt.Equals, "x\r\n")
	c.Assert(m.Flush(), qt.ErrorIs, broken)

	m.Service()
	c.Assert(a.services, qt.Equals, 1)
	c.Assert(b.services, qt.Equals, 1)
	c.Assert(d.services, qt.Equals, 1)
}

func TestListener(t *testing.T) {
	c := qt.New(t)
	l, err := Listen("127.0.0.1:0", 1, nil)
	c.Assert(err, qt.IsNil)
	defer l.Close()

	var got []byte
	l.OnReceive = func(p []byte) { got = append(got, p...) }

	// nobody listening yet: discarded
	_, err = l.Write([]byte("early\r\n"))
	c.Assert(err, qt.IsNil)

	conn, err := net.Dial("tcp", l.Addr().String())
	c.Assert(err, qt.IsNil)
	defer conn.Close()
	eventually(c, l, func() bool { return l.Clients() == 1 })

	_, err = l.Write([]byte("Friday, 18/6/2025, 18:30:00\r\n"))
	c.Assert(err, qt.IsNil)
	l.Service()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 64)
	n, err := io.ReadAtLeast(conn, buf, 29)
	c.Assert(err, qt.IsNil)
	c.Assert(string(buf[:n]), qt.Equals, "Friday, 18/6/2025, 18:30:00\r\n")

	_, err = conn.Write([]byte("time\r"))
	c.Assert(err, qt.IsNil)
	eventually(c, l, func() bool { return string(got) == "time\r" })

	conn.Close()
	eventually(c, l, func() bool { return l.Clients() == 0 })
}
