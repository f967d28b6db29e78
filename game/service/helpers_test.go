package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/protocol"
)

// fakeConn records frames sent to a player
type fakeConn struct {
	mu     sync.Mutex
	addr   string
	frames [][]byte
	closed bool
}

func newFakeConn(n int) *fakeConn {
	return &fakeConn{addr: fmt.Sprintf("192.168.1.%d:5000", n)}
}

func (c *fakeConn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
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

func (c *fakeConn) messages() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]protocol.Message, 0, len(c.frames))
	for _, frame := range c.frames {
		for len(frame) > 0 {
			msg, n, err := protocol.Decode(frame)
			if n == 0 {
				break
			}
			if err == nil && msg != nil {
				out = append(out, msg)
			}
			frame = frame[n:]
		}
	}
	return out
}

// waitFor polls until cond holds for the messages received so far
func (c *fakeConn) waitFor(t *testing.T, cond func([]protocol.Message) bool, msgAndArgs ...any) []protocol.Message {
	t.Helper()
	var last []protocol.Message
	require.Eventually(t, func() bool {
		last = c.messages()
		return cond(last)
	}, 3*time.Second, 5*time.Millisecond, msgAndArgs...)
	return last
}

// seqBag deals tiles in a fixed cycle
type seqBag struct {
	mu    sync.Mutex
	tiles []int
	next  int
}

func (b *seqBag) Draw() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.tiles[b.next%len(b.tiles)]
	b.next++
	return t
}

func testRules(turnTimeout time.Duration) *engine.Rules {
	rules := engine.DefaultRules()
	rules.Name = "test"
	rules.TurnTimeoutMS = int(turnTimeout / time.Millisecond)
	rules.CountdownDelayMS = 0
	return rules
}

func countKind(msgs []protocol.Message, kind protocol.Kind) int {
	n := 0
	for _, m := range msgs {
		if m.Kind() == kind {
			n++
		}
	}
	return n
}

func contains(msgs []protocol.Message, want protocol.Message) bool {
	for _, m := range msgs {
		if m == want {
			return true
		}
	}
	return false
}

// after returns the messages that follow the first occurrence of want
func after(msgs []protocol.Message, want protocol.Message) []protocol.Message {
	for i, m := range msgs {
		if m == want {
			return msgs[i+1:]
		}
	}
	return nil
}

func joinPlayers(t *testing.T, m *session.Manager, n int) ([]*session.Player, []*fakeConn) {
	t.Helper()
	players := make([]*session.Player, n)
	conns := make([]*fakeConn, n)
	for i := range players {
		conns[i] = newFakeConn(i + 1)
		p, err := m.Join(conns[i])
		require.NoError(t, err)
		players[i] = p
	}
	return players, conns
}
