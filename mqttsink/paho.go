package mqttsink

import (
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Paho publishes with the Eclipse Paho client, which reconnects on its own in the background.
type Paho struct {
	cfg    Config
	client mqtt.Client
	logger *slog.Logger

	queue    [][]byte
	inflight []mqtt.Token
	seq      uint32
	dropped  uint64
}

// NewPaho creates the client. Call Connect to start connecting.
func NewPaho(cfg Config, logger *slog.Logger) *Paho {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + hostPort(cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	return newPaho(cfg, mqtt.NewClient(opts), logger)
}

func newPaho(cfg Config, client mqtt.Client, logger *slog.Logger) *Paho {
	cfg.setDefaults()
	return &Paho{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Connect starts connecting in the background and returns immediately. With connect retry enabled the token only
// completes once connected, so it is not waited on.
func (p *Paho) Connect() {
	p.client.Connect()
}

// Write queues a line for publishing, or drops it when there is no connection or the queue is full.
func (p *Paho) Write(line []byte) (int, error) {
	if !p.client.IsConnectionOpen() || len(p.queue) >= p.cfg.Queue {
		p.dropped++
		return len(line), nil
	}
	payload, err := Encode(p.cfg.Encoding, p.cfg.ClientID, p.seq, line)
	if err != nil {
		return 0, err
	}
	p.seq++
	p.queue = append(p.queue, payload)
	return len(line), nil
}

// Flush hands every queued line to the client without waiting for delivery.
func (p *Paho) Flush() error {
	for _, payload := range p.queue {
		p.inflight = append(p.inflight, p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload))
	}
	p.queue = p.queue[:0]
	return nil
}

// Service publishes queued lines and reaps the ones the client is done with.
func (p *Paho) Service() {
	p.Flush()
	pending := p.inflight[:0]
	for _, tok := range p.inflight {
		select {
		case <-tok.Done():
			if err := tok.Error(); err != nil {
				p.logger.Debug("mqtt publish failed", "topic", p.cfg.Topic, "error", err)
			}
		default:
			pending = append(pending, tok)
		}
	}
	p.inflight = pending
}

// Dropped returns the number of lines dropped so far.
func (p *Paho) Dropped() uint64 {
	return p.dropped
}

// Close disconnects, giving in-flight messages a quarter second.
func (p *Paho) Close() {
	p.client.Disconnect(250)
}
