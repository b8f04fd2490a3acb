package mqttsink

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func TestEncodeText(t *testing.T) {
	c := qt.New(t)
	p, err := Encode(Text, "board", 7, []byte("Lux: 12.5\r\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(p), qt.Equals, "Lux: 12.5")
}

func TestEncodeCBOR(t *testing.T) {
	c := qt.New(t)
	p, err := Encode(CBOR, "board", 7, []byte("Lux: 12.5\r\n"))
	c.Assert(err, qt.IsNil)
	e, err := DecodeEnvelope(p)
	c.Assert(err, qt.IsNil)
	c.Assert(e, qt.Equals, Envelope{Device: "board", Seq: 7, Line: "Lux: 12.5"})
}

func TestEncodeUnknown(t *testing.T) {
	c := qt.New(t)
	_, err := Encode("xml", "", 0, []byte("x"))
	c.Assert(err, qt.ErrorMatches, `mqttsink: unknown encoding "xml"`)
}

func TestDefaultClientID(t *testing.T) {
	c := qt.New(t)
	a, b := DefaultClientID(), DefaultClientID()
	c.Assert(a, qt.Matches, `picoboard-[0-9a-f]{8}`)
	c.Assert(a, qt.Not(qt.Equals), b)
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic   string
	qos     byte
	payload string
}

// fakeClient implements only what Paho uses. The embedded nil interface panics on anything else.
type fakeClient struct {
	mqtt.Client
	open      bool
	published []message
	tokens    []*fakeToken
}

func (f *fakeClient) IsConnectionOpen() bool { return f.open }

func (f *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, message{topic, qos, string(payload.([]byte))})
	tok := &fakeToken{done: make(chan struct{})}
	f.tokens = append(f.tokens, tok)
	return tok
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPahoPublishesOnService(t *testing.T) {
	c := qt.New(t)
	client := &fakeClient{open: true}
	p := newPaho(Config{Topic: "board/rtc", QoS: 1, ClientID: "x"}, client, discard())

	n, err := p.Write([]byte("12:00:00\r\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 10)
	c.Assert(client.published, qt.HasLen, 0)

	p.Service()
	c.Assert(client.published, qt.CmpEquals(cmp.AllowUnexported(message{})), []message{{"board/rtc", 1, "12:00:00"}})
	c.Assert(p.inflight, qt.HasLen, 1)

	client.tokens[0].err = errors.New("timeout")
	close(client.tokens[0].done)
	p.Service()
	c.Assert(p.inflight, qt.HasLen, 0)
	c.Assert(client.published, qt.HasLen, 1)
}

func TestPahoDropsWhileDisconnected(t *testing.T) {
	c := qt.New(t)
	client := &fakeClient{}
	p := newPaho(Config{Topic: "t"}, client, discard())

	n, err := p.Write([]byte("a\r\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)
	p.Service()
	c.Assert(client.published, qt.HasLen, 0)
	c.Assert(p.Dropped(), qt.Equals, uint64(1))
}

func TestPahoQueueLimit(t *testing.T) {
	c := qt.New(t)
	client := &fakeClient{open: true}
	p := newPaho(Config{Topic: "t", Queue: 2}, client, discard())
	for i := 0; i < 3; i++ {
		p.Write([]byte("x\r\n"))
	}
	c.Assert(p.Dropped(), qt.Equals, uint64(1))
	p.Flush()
	c.Assert(client.published, qt.HasLen, 2)
}

func TestNatiuDropsWhileDisconnected(t *testing.T) {
	c := qt.New(t)
	n := NewNatiu(Config{Broker: "tcp://127.0.0.1:1883", Topic: "t"}, discard())
	c.Assert(n.Connected(), qt.IsFalse)

	w, err := n.Write([]byte("a\r\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(w, qt.Equals, 3)
	c.Assert(n.Dropped(), qt.Equals, uint64(1))
	c.Assert(n.Flush(), qt.IsNil)
}
