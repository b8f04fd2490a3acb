package mqttsink

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	natiu "github.com/soypat/natiu-mqtt"
)

// Natiu publishes at QoS 0 with soypat/natiu-mqtt. It never reads from the broker, so keepalive is disabled and the
// connection is only noticed to be dead when a publish fails. A dead connection is redialled in the background.
type Natiu struct {
	cfg    Config
	client *natiu.Client
	logger *slog.Logger
	dial   func(ctx context.Context) (net.Conn, error)

	conn       atomic.Pointer[net.Conn]
	connecting atomic.Bool
	lastDial   time.Time

	queue   [][]byte
	seq     uint32
	dropped uint64
}

// Redial is the minimum time between connection attempts.
const Redial = 5 * time.Second

func NewNatiu(cfg Config, logger *slog.Logger) *Natiu {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	addr := hostPort(cfg.Broker)
	return &Natiu{
		cfg: cfg,
		client: natiu.NewClient(natiu.ClientConfig{
			Decoder: natiu.DecoderNoAlloc{UserBuffer: make([]byte, 512)},
		}),
		logger: logger,
		dial: func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// Connect starts a connection attempt in the background if none is running.
func (n *Natiu) Connect() {
	if !n.connecting.CompareAndSwap(false, true) {
		return
	}
	n.lastDial = time.Now()
	go func() {
		defer n.connecting.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn, err := n.dial(ctx)
		if err != nil {
			n.logger.Debug("mqtt dial failed", "broker", n.cfg.Broker, "error", err)
			return
		}
		var vc natiu.VariablesConnect
		vc.SetDefaultMQTT([]byte(n.cfg.ClientID))
		vc.KeepAlive = 0
		if err := n.client.Connect(ctx, conn, &vc); err != nil {
			n.logger.Debug("mqtt connect failed", "broker", n.cfg.Broker, "error", err)
			conn.Close()
			return
		}
		n.conn.Store(&conn)
		n.logger.Info("mqtt connected", "broker", n.cfg.Broker)
	}()
}

// Connected reports whether the broker accepted the connection and it has not failed since.
func (n *Natiu) Connected() bool {
	return n.conn.Load() != nil && n.client.IsConnected()
}

// Write queues a line for publishing, or drops it when there is no connection or the queue is full.
func (n *Natiu) Write(line []byte) (int, error) {
	if !n.Connected() || len(n.queue) >= n.cfg.Queue {
		n.dropped++
		return len(line), nil
	}
	payload, err := Encode(n.cfg.Encoding, n.cfg.ClientID, n.seq, line)
	if err != nil {
		return 0, err
	}
	n.seq++
	n.queue = append(n.queue, payload)
	return len(line), nil
}

// Flush publishes every queued line. The first failure drops the connection and the rest of the queue.
func (n *Natiu) Flush() error {
	if len(n.queue) == 0 {
		return nil
	}
	defer func() { n.queue = n.queue[:0] }()
	conn := n.conn.Load()
	if conn == nil {
		n.dropped += uint64(len(n.queue))
		return nil
	}
	flags, err := natiu.NewPublishFlags(natiu.QoS0, false, false)
	if err != nil {
		return err
	}
	vp := natiu.VariablesPublish{TopicName: []byte(n.cfg.Topic)}
	for i, payload := range n.queue {
		(*conn).SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
		if err := n.client.PublishPayload(flags, vp, payload); err != nil {
			n.dropped += uint64(len(n.queue) - i)
			n.disconnect(err)
			return err
		}
	}
	return nil
}

// Service publishes queued lines and redials a lost connection at most every Redial.
func (n *Natiu) Service() {
	if !n.Connected() {
		if time.Since(n.lastDial) >= Redial {
			n.Connect()
		}
		return
	}
	if err := n.Flush(); err != nil {
		n.logger.Warn("mqtt publish failed", "topic", n.cfg.Topic, "error", err)
	}
}

// Dropped returns the number of lines dropped so far.
func (n *Natiu) Dropped() uint64 {
	return n.dropped
}

func (n *Natiu) disconnect(cause error) {
	conn := n.conn.Swap(nil)
	if conn == nil {
		return
	}
	n.client.Disconnect(cause)
	(*conn).Close()
}

// Close disconnects from the broker.
func (n *Natiu) Close() {
	n.disconnect(errors.New("closing"))
}
