package serial

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/netutil"
)

const (
	// clientBacklog caps the bytes queued per TCP client. Older output is dropped first.
	clientBacklog = 4096
	writeDeadline = 5 * time.Millisecond
)

// Listener is a Port serving the serial line to TCP clients, in the manner of ser2net: every line goes to every
// connected client, and bytes typed by any client are handed to OnReceive. The number of simultaneous clients is
// capped; extra connections wait in the accept queue.
type Listener struct {
	ln     net.Listener
	logger *slog.Logger
	in     chan []byte

	mu      sync.Mutex
	clients map[net.Conn]*[]byte

	// OnReceive is called from Service with bytes read from any client.
	OnReceive Handler
}

// Listen starts accepting clients on addr. maxClients of zero means one.
func Listen(addr string, maxClients int, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxClients <= 0 {
		maxClients = 1
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln:      netutil.LimitListener(ln, maxClients),
		logger:  logger,
		in:      make(chan []byte, 16),
		clients: make(map[net.Conn]*[]byte),
	}
	go l.accept()
	return l, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting and disconnects every client.
func (l *Listener) Close() error {
	err := l.ln.Close()
	l.mu.Lock()
	for conn := range l.clients {
		conn.Close()
		delete(l.clients, conn)
	}
	l.mu.Unlock()
	return err
}

// Clients returns the number of connected clients.
func (l *Listener) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Listener) accept() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.logger.Warn("console accept failed", "error", err)
			}
			return
		}
		l.logger.Info("console client connected", "remote", conn.RemoteAddr().String())
		l.mu.Lock()
		l.clients[conn] = new([]byte)
		l.mu.Unlock()
		go l.read(conn)
	}
}

func (l *Listener) read(conn net.Conn) {
	for {
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if n > 0 {
			select {
			case l.in <- buf[:n]:
			default:
				l.logger.Debug("console input dropped", "bytes", n)
			}
		}
		if err != nil {
			l.drop(conn)
			return
		}
	}
}

func (l *Listener) drop(conn net.Conn) {
	l.mu.Lock()
	_, ok := l.clients[conn]
	delete(l.clients, conn)
	l.mu.Unlock()
	if ok {
		conn.Close()
		l.logger.Info("console client disconnected", "remote", conn.RemoteAddr().String())
	}
}

// Write queues p for every connected client. With no clients the bytes are discarded.
func (l *Listener) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, q := range l.clients {
		*q = append(*q, p...)
		if over := len(*q) - clientBacklog; over > 0 {
			*q = (*q)[over:]
		}
	}
	return len(p), nil
}

// Flush sends as much of each client's queue as the socket accepts within a few milliseconds. Clients whose
// connection failed are dropped.
func (l *Listener) Flush() error {
	l.mu.Lock()
	var dead []net.Conn
	for conn, q := range l.clients {
		if len(*q) == 0 {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		n, err := conn.Write(*q)
		*q = (*q)[n:]
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			dead = append(dead, conn)
		}
	}
	l.mu.Unlock()
	for _, conn := range dead {
		l.drop(conn)
	}
	return nil
}

// Service flushes client queues and hands received bytes to OnReceive.
func (l *Listener) Service() {
	l.Flush()
	for {
		select {
		case p := <-l.in:
			if l.OnReceive != nil {
				l.OnReceive(p)
			}
		default:
			return
		}
	}
}
