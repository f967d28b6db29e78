package session

import (
	"slices"
	"sync"

	"github.com/wricardo/tiles-server/protocol"
)

// DefaultInboxSize is the number of unread chunks kept per player
const DefaultInboxSize = 64

// Conn is the transport side of a connected player
type Conn interface {
	// Send queues a frame for writing without blocking. It returns false
	// when the frame could not be queued.
	Send(frame []byte) bool
	Close() error
	RemoteAddr() string
}

// Player is a connected client.
//
// The input buffer and the hand belong to the game director; the acted
// flag is guarded by the Manager.
type Player struct {
	ID   int
	Name string

	conn      Conn
	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once

	input protocol.Buffer
	hand  []int

	acted bool
}

func newPlayer(id int, conn Conn, inboxSize int) *Player {
	return &Player{
		ID:    id,
		Name:  conn.RemoteAddr(),
		conn:  conn,
		inbox: make(chan []byte, inboxSize),
		done:  make(chan struct{}),
	}
}

// Send encodes and queues a message for this player
func (p *Player) Send(m protocol.Message) bool {
	return p.conn.Send(protocol.Encode(m))
}

// SendAll queues msgs as a single write so a long catch-up takes one slot
// of the connection's outbox.
func (p *Player) SendAll(msgs []protocol.Message) bool {
	if len(msgs) == 0 {
		return true
	}
	return p.conn.Send(protocol.EncodeAll(msgs))
}

func (p *Player) sendFrame(frame []byte) bool {
	return p.conn.Send(frame)
}

// Enqueue stores a chunk read from the connection. It never blocks and
// returns false when the inbox is full or the player is gone.
func (p *Player) Enqueue(chunk []byte) bool {
	if p.Gone() {
		return false
	}
	select {
	case p.inbox <- chunk:
		return true
	default:
		return false
	}
}

// Inbox delivers chunks in arrival order
func (p *Player) Inbox() <-chan []byte {
	return p.inbox
}

// Done is closed once the player has been removed
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Gone reports whether the player has been removed
func (p *Player) Gone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Player) markGone() {
	p.closeOnce.Do(func() { close(p.done) })
}

// Feed adds a chunk to the decode buffer
func (p *Player) Feed(chunk []byte) {
	p.input.Write(chunk)
}

// NextMessage decodes the next buffered message, or returns nil when more
// input is needed.
func (p *Player) NextMessage() (protocol.Message, error) {
	return p.input.Next()
}

// DiscardInput drops everything the player sent so far
func (p *Player) DiscardInput() {
	p.input.Reset()
	for {
		select {
		case <-p.inbox:
		default:
			return
		}
	}
}

// Hand returns a copy of the player's tiles
func (p *Player) Hand() []int {
	return slices.Clone(p.hand)
}

// SetHand replaces the player's tiles
func (p *Player) SetHand(tiles []int) {
	p.hand = slices.Clone(tiles)
}

// AddTile appends a tile to the hand
func (p *Player) AddTile(tileID int) {
	p.hand = append(p.hand, tileID)
}

// HasTile reports whether the hand holds tileID
func (p *Player) HasTile(tileID int) bool {
	return slices.Contains(p.hand, tileID)
}

// RemoveTile removes one copy of tileID from the hand
func (p *Player) RemoveTile(tileID int) bool {
	i := slices.Index(p.hand, tileID)
	if i < 0 {
		return false
	}
	p.hand = slices.Delete(p.hand, i, i+1)
	return true
}
