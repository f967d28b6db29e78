package tcp

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Writes queued per connection before the peer counts as stalled. The
	// catch-up of a late joiner is a single write.
	outboxSize = 1024

	// Maximum bytes taken from the socket per read.
	readChunkSize = 4096
)

// conn adapts a net.Conn to session.Conn
type conn struct {
	nc        net.Conn
	addr      string
	outbox    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(nc net.Conn) *conn {
	return &conn{
		nc:     nc,
		addr:   nc.RemoteAddr().String(),
		outbox: make(chan []byte, outboxSize),
		closed: make(chan struct{}),
	}
}

// Send queues a frame. A full outbox closes the connection.
func (c *conn) Send(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.outbox <- frame:
		return true
	default:
		log.Warn().Str("addr", c.addr).Msg("outbox full, dropping peer")
		c.Close()
		return false
	}
}

// Close closes the socket. It is safe to call more than once.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.nc.Close()
	})
	return err
}

// RemoteAddr returns the peer's host:port
func (c *conn) RemoteAddr() string {
	return c.addr
}

// writePump writes queued frames until the connection closes
func (c *conn) writePump() {
	for {
		select {
		case frame := <-c.outbox:
			if err := c.nc.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
			if _, err := c.nc.Write(frame); err != nil {
				log.Debug().Err(err).Str("addr", c.addr).Msg("write failed")
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
