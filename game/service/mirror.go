package service

import (
	"slices"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/protocol"
)

// Mirror rebuilds a board from the broadcast stream, the way a client does
type Mirror struct {
	width, height int
	board         *engine.Board
	inGame        bool
	collecting    bool
	turnOrder     []int
	current       int

	self int
	hand []int
}

// NewMirror creates a mirror for boards of the given size
func NewMirror(width, height int) *Mirror {
	return &Mirror{
		width:   width,
		height:  height,
		board:   engine.NewBoard(width, height),
		current: -1,
		self:    -1,
	}
}

// Apply folds one message into the mirrored state
func (m *Mirror) Apply(msg protocol.Message) {
	if _, ok := msg.(protocol.PlayerTurn); !ok {
		m.collecting = false
	}

	switch msg := msg.(type) {
	case protocol.Welcome:
		m.self = msg.ID
	case protocol.AddTileToHand:
		m.hand = append(m.hand, msg.TileID)
	case protocol.GameStart:
		m.board = engine.NewBoard(m.width, m.height)
		m.hand = nil
		m.inGame = true
		m.collecting = true
		m.turnOrder = nil
		m.current = -1
	case protocol.PlayerTurn:
		// a game starts with one announcement per player in turn order
		if m.collecting && !slices.Contains(m.turnOrder, msg.ID) {
			m.turnOrder = append(m.turnOrder, msg.ID)
			return
		}
		m.collecting = false
		m.current = msg.ID
	case protocol.PlaceTile:
		m.board.Restore(msg.X, msg.Y, msg.TileID, msg.Rotation, msg.ID)
		if msg.ID == m.self {
			if i := slices.Index(m.hand, msg.TileID); i >= 0 {
				m.hand = slices.Delete(m.hand, i, i+1)
			}
		}
	case protocol.MoveToken:
		m.board.RestorePosition(msg.ID, engine.TokenPosition{X: msg.X, Y: msg.Y, Point: msg.Position})
	case protocol.PlayerEliminated:
		m.board.RestoreElimination(msg.ID)
	}
}

// ApplyAll folds a sequence of messages
func (m *Mirror) ApplyAll(msgs []protocol.Message) {
	for _, msg := range msgs {
		m.Apply(msg)
	}
}

// Board returns the mirrored board
func (m *Mirror) Board() *engine.Board {
	return m.board
}

// Self returns the id from the welcome message, or -1
func (m *Mirror) Self() int {
	return m.self
}

// Hand returns the tiles dealt to this client and not yet played
func (m *Mirror) Hand() []int {
	return slices.Clone(m.hand)
}

// MyTurn reports whether the awaited move is this client's
func (m *Mirror) MyTurn() bool {
	return m.self >= 0 && m.current == m.self
}

// InGame reports whether a game start has been seen
func (m *Mirror) InGame() bool {
	return m.inGame
}

// TurnOrder returns the announced turn order
func (m *Mirror) TurnOrder() []int {
	return slices.Clone(m.turnOrder)
}

// Current returns the player whose move is awaited, or -1
func (m *Mirror) Current() int {
	return m.current
}
