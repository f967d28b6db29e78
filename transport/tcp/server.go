package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/tiles-server/game/session"
)

// DefaultAddr is the game listener address
const DefaultAddr = ":30020"

// Registry admits and removes players. session.Manager implements it.
type Registry interface {
	Join(conn session.Conn) (*session.Player, error)
	Disconnect(p *session.Player) bool
	Connected() int
}

// event is one result of a read: data, or the error that ended the
// connection.
type event struct {
	player *session.Player
	data   []byte
	err    error
}

// Server accepts game connections and watches them for input and hangups
type Server struct {
	registry Registry
	events   chan event

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// NewServer creates a server that registers players with registry
func NewServer(registry Registry) *Server {
	return &Server{
		registry: registry,
		events:   make(chan event, 256),
		conns:    make(map[*conn]struct{}),
	}
}

// Serve accepts connections on ln until ctx ends or the listener fails.
// Connections accepted by this call are closed when it returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.closeConns()

	log.Info().Str("addr", ln.Addr().String()).Msg("game listener ready")

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.accept(ctx, nc)
	}
}

// accept registers a new connection and starts its pumps
func (s *Server) accept(ctx context.Context, nc net.Conn) {
	c := newConn(nc)

	go c.writePump()

	p, err := s.registry.Join(c)
	if err != nil {
		log.Warn().Err(err).Str("addr", c.addr).Msg("connection rejected")
		c.Close()
		return
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	log.Debug().Int("player", p.ID).Int("connected", s.registry.Connected()).Msg("connection accepted")

	go s.readPump(ctx, c, p)
}

// readPump forwards everything read from c to the monitor
func (s *Server) readPump(ctx context.Context, c *conn, p *session.Player) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	buf := make([]byte, readChunkSize)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !s.forward(ctx, event{player: p, data: chunk}) {
				return
			}
		}
		if err != nil {
			s.forward(ctx, event{player: p, err: err})
			return
		}
	}
}

func (s *Server) forward(ctx context.Context, ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run is the liveness monitor. It delivers input to player inboxes and
// disconnects players whose connection ended, until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-s.events:
			if ev.err != nil {
				if !errors.Is(ev.err, io.EOF) && !errors.Is(ev.err, net.ErrClosed) {
					log.Debug().Err(ev.err).Int("player", ev.player.ID).Msg("read failed")
				}
				s.registry.Disconnect(ev.player)
				continue
			}

			if !ev.player.Enqueue(ev.data) && !ev.player.Gone() {
				log.Warn().Int("player", ev.player.ID).Int("bytes", len(ev.data)).Msg("inbox full, dropped input")
			}
		}
	}
}

// Connections returns the number of open connections
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
