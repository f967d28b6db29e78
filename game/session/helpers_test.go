package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wricardo/tiles-server/protocol"
)

// fakeConn records every frame sent to it
type fakeConn struct {
	mu     sync.Mutex
	addr   string
	frames [][]byte
	closed bool
	full   bool
}

func newFakeConn(n int) *fakeConn {
	return &fakeConn{addr: fmt.Sprintf("10.0.0.%d:4000", n)}
}

func (c *fakeConn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return c.addr
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// messages decodes everything sent so far
func (c *fakeConn) messages(t *testing.T) []protocol.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []protocol.Message
	for _, frame := range c.frames {
		for len(frame) > 0 {
			msg, n, err := protocol.Decode(frame)
			require.NoError(t, err)
			require.NotZero(t, n, "truncated frame")
			out = append(out, msg)
			frame = frame[n:]
		}
	}
	return out
}

// reset forgets recorded frames
func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

type recordingObserver struct {
	events []Event
}

func (o *recordingObserver) Observe(ev Event) {
	o.events = append(o.events, ev)
}

func joinN(t *testing.T, m *Manager, n int) ([]*Player, []*fakeConn) {
	t.Helper()
	players := make([]*Player, n)
	conns := make([]*fakeConn, n)
	for i := 0; i < n; i++ {
		conns[i] = newFakeConn(i + 1)
		p, err := m.Join(conns[i])
		require.NoError(t, err)
		players[i] = p
	}
	return players, conns
}
