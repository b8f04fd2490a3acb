// Package mqttsink publishes telemetry lines to an MQTT broker, one message per line. Two clients are provided: Paho,
// for hosts, and Natiu, an allocation-light QoS 0 publisher of the kind that fits on a microcontroller with a network
// coprocessor. Both are serial.Ports that never block the run loop: while the broker is unreachable, lines are dropped.
package mqttsink

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Encoding selects the message payload format.
type Encoding string

const (
	// Text sends the line as is, without its CRLF.
	Text Encoding = "text"
	// CBOR sends an Envelope.
	CBOR Encoding = "cbor"
)

// Envelope is the CBOR payload: the line plus enough context to spot gaps.
type Envelope struct {
	Device string `cbor:"1,keyasint,omitempty"`
	Seq    uint32 `cbor:"2,keyasint"`
	Line   string `cbor:"3,keyasint"`
}

type Config struct {
	// Broker is host:port, optionally prefixed with tcp://.
	Broker   string
	Topic    string
	ClientID string
	Encoding Encoding
	QoS      byte
	// Queue caps the lines waiting to be published. Zero means 32.
	Queue int
}

func (c *Config) setDefaults() {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID()
	}
	if c.Encoding == "" {
		c.Encoding = Text
	}
	if c.Queue <= 0 {
		c.Queue = 32
	}
}

// DefaultClientID returns a client identifier unique to this process.
func DefaultClientID() string {
	return "picoboard-" + uuid.NewString()[:8]
}

// hostPort strips a tcp:// scheme.
func hostPort(broker string) string {
	return strings.TrimPrefix(broker, "tcp://")
}

// Encode builds the payload for one line.
func Encode(enc Encoding, device string, seq uint32, line []byte) ([]byte, error) {
	line = bytes.TrimRight(line, "\r\n")
	switch enc {
	case Text, "":
		return append([]byte(nil), line...), nil
	case CBOR:
		return cbor.Marshal(Envelope{Device: device, Seq: seq, Line: string(line)})
	default:
		return nil, fmt.Errorf("mqttsink: unknown encoding %q", enc)
	}
}

// DecodeEnvelope parses a CBOR payload.
func DecodeEnvelope(p []byte) (Envelope, error) {
	var e Envelope
	err := cbor.Unmarshal(p, &e)
	return e, err
}
