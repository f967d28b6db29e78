package session

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/protocol"
)

var (
	ErrServerFull     = errors.New("no free player id")
	ErrPlayerNotFound = errors.New("player not found")
)

// Event is a broadcast as seen by observers. Seq increases by one for every
// broadcast.
type Event struct {
	Seq     uint64
	Message protocol.Message
	Durable bool
}

// Observer receives every broadcast. Observe is called with the manager
// lock held and must not block.
type Observer interface {
	Observe(ev Event)
}

// Replay is what a late joiner needs to catch up with the current game
type Replay struct {
	Seq      uint64
	InGame   bool
	GameID   string
	Messages []protocol.Message
}

// PlayerInfo describes a connected player
type PlayerInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Acted bool   `json:"acted,omitempty"`
}

// Status is a point-in-time view of the pools
type Status struct {
	Connected     int          `json:"connected"`
	Queue         []PlayerInfo `json:"queue"`
	Lobby         []PlayerInfo `json:"lobby"`
	InGame        bool         `json:"in_game"`
	GameID        string       `json:"game_id,omitempty"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	TurnOrder     []int        `json:"turn_order,omitempty"`
	Current       int          `json:"current"`
	HistoryLength int          `json:"history_length"`
	Seq           uint64       `json:"seq"`
}

// Manager owns the connected players, the Queue and Lobby pools and the
// history of the running game. Every method is atomic with respect to the
// others; broadcasts happen inside the same critical section as the state
// change that caused them.
type Manager struct {
	mu        sync.Mutex
	players   map[int]*Player
	queue     []*Player
	lobby     []*Player
	idLimit   int
	inboxSize int

	inGame    bool
	gameID    string
	startedAt time.Time
	turnOrder []int
	current   int
	history   *History
	seq       uint64

	observers []Observer
	changed   chan struct{}
}

// NewManager creates a manager with the default id range
func NewManager() *Manager {
	return NewManagerWithLimit(engine.IDLimit)
}

// NewManagerWithLimit creates a manager that hands out ids in [0, idLimit)
func NewManagerWithLimit(idLimit int) *Manager {
	return &Manager{
		players:   make(map[int]*Player),
		idLimit:   idLimit,
		inboxSize: DefaultInboxSize,
		current:   -1,
		history:   NewHistory(),
		changed:   make(chan struct{}),
	}
}

// AddObserver registers an observer for all later broadcasts
func (m *Manager) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Join registers a new connection. The joiner is welcomed, introduced to
// everyone and given the state of a running game, then queued.
func (m *Manager) Join(conn Conn) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.allocateIDLocked()
	if !ok {
		return nil, ErrServerFull
	}

	p := newPlayer(id, conn, m.inboxSize)
	catchUp := []protocol.Message{protocol.Welcome{ID: id}}

	m.broadcastLocked(protocol.PlayerJoined{Name: p.Name, ID: id}, false)
	for _, other := range m.playersLocked() {
		catchUp = append(catchUp, protocol.PlayerJoined{Name: other.Name, ID: other.ID})
	}
	if m.inGame {
		catchUp = append(catchUp, m.replayLocked()...)
	}
	if !p.SendAll(catchUp) {
		log.Warn().Int("player", id).Int("messages", len(catchUp)).Msg("catch-up not delivered")
	}

	m.players[id] = p
	m.queue = append(m.queue, p)
	m.notifyLocked()

	log.Info().Int("player", id).Str("addr", p.Name).Bool("in_game", m.inGame).Msg("player joined")
	return p, nil
}

// Disconnect removes a player from whichever pool holds it and announces the
// departure. A player who leaves the Lobby of a running game after acting is
// also announced as eliminated. Calling Disconnect again for the same player
// does nothing and returns false.
func (m *Manager) Disconnect(p *Player) bool {
	m.mu.Lock()
	cur, ok := m.players[p.ID]
	if !ok || cur != p {
		m.mu.Unlock()
		return false
	}

	delete(m.players, p.ID)
	fromLobby := m.removeLocked(p)
	p.markGone()

	if fromLobby && m.inGame && p.acted {
		m.broadcastLocked(protocol.PlayerEliminated{ID: p.ID}, true)
	}
	m.broadcastLocked(protocol.PlayerLeft{ID: p.ID}, false)
	m.notifyLocked()
	m.mu.Unlock()

	if err := p.conn.Close(); err != nil {
		log.Debug().Err(err).Int("player", p.ID).Msg("close after disconnect")
	}
	log.Info().Int("player", p.ID).Bool("from_lobby", fromLobby).Msg("player left")
	return true
}

// MoveQueueToLobby moves the given players from the Queue to the tail of the
// Lobby, skipping ids that are no longer queued.
func (m *Manager) MoveQueueToLobby(ids ...int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	moved := 0
	for _, id := range ids {
		if i := indexOf(m.queue, id); i >= 0 {
			m.moveToLobbyLocked(i)
			moved++
		}
	}
	if moved > 0 {
		m.notifyLocked()
	}
	return moved
}

// FormLobby fills the Lobby with up to limit randomly chosen queued players.
// pick(n) must return a number in [0, n). The resulting Lobby order is
// returned.
func (m *Manager) FormLobby(limit int, pick func(n int) int) []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := min(len(m.queue)+len(m.lobby), limit)
	for len(m.lobby) < size && len(m.queue) > 0 {
		m.moveToLobbyLocked(pick(len(m.queue)))
	}
	m.notifyLocked()
	return ids(m.lobby)
}

// DisbandLobby returns every Lobby member to the Queue
func (m *Manager) DisbandLobby() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.lobby)
	m.queue = append(m.queue, m.lobby...)
	m.lobby = nil
	m.notifyLocked()
	return n
}

// RotateLobby moves the current player to the tail of the Lobby
func (m *Manager) RotateLobby() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.lobby) < 2 {
		return false
	}
	head := m.lobby[0]
	m.lobby = append(m.lobby[1:], head)
	return true
}

// AdvanceTurn rotates the Lobby only if id is still its head
func (m *Manager) AdvanceTurn(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.lobby) < 2 || m.lobby[0].ID != id {
		return false
	}
	head := m.lobby[0]
	m.lobby = append(m.lobby[1:], head)
	return true
}

// ReturnToQueue moves a Lobby member to the tail of the Queue
func (m *Manager) ReturnToQueue(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.returnToQueueLocked(id)
}

// Eliminate announces a Lobby member as eliminated and returns it to the
// Queue.
func (m *Manager) Eliminate(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if indexOf(m.lobby, id) < 0 {
		return false
	}
	m.broadcastLocked(protocol.PlayerEliminated{ID: id}, true)
	m.returnToQueueLocked(id)
	log.Info().Int("player", id).Str("game", m.gameID).Msg("player eliminated")
	return true
}

// BeginGame freezes the Lobby order as the turn order, clears the history
// and announces the game and its turn order to everyone.
func (m *Manager) BeginGame(gameID string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history.Reset()
	m.inGame = true
	m.gameID = gameID
	m.startedAt = time.Now()
	m.turnOrder = ids(m.lobby)
	m.current = -1
	for _, p := range m.players {
		p.acted = false
	}

	m.broadcastLocked(protocol.GameStart{}, false)
	for _, id := range m.turnOrder {
		m.broadcastLocked(protocol.PlayerTurn{ID: id}, false)
	}

	log.Info().Str("game", gameID).Ints("turn_order", m.turnOrder).Msg("game started")
	return slices.Clone(m.turnOrder)
}

// AnnounceTurn records id as the current actor and tells everyone
func (m *Manager) AnnounceTurn(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if indexOf(m.lobby, id) < 0 {
		return false
	}
	m.current = id
	m.broadcastLocked(protocol.PlayerTurn{ID: id}, false)
	return true
}

// Broadcast sends a message to every connected player. Durable messages of
// a running game are also recorded in the history.
func (m *Manager) Broadcast(msg protocol.Message, durable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastLocked(msg, durable)
}

// CommitMove applies a move of p and announces it as one step. apply runs
// with the lock held and must not call back into the manager. Nothing
// happens unless p is still connected and in the Lobby of a running game;
// a false result from apply leaves p unmarked and nothing is broadcast.
func (m *Manager) CommitMove(p *Player, move protocol.Message, apply func() bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.inGame || m.players[p.ID] != p || indexOf(m.lobby, p.ID) < 0 {
		return false
	}
	if !apply() {
		return false
	}
	p.acted = true
	m.broadcastLocked(move, true)
	return true
}

// EndGame returns the Lobby to the Queue and clears the game state. The
// finished game is returned as a record.
func (m *Manager) EndGame() *GameRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &GameRecord{
		ID:        m.gameID,
		StartedAt: m.startedAt,
		EndedAt:   time.Now(),
		TurnOrder: slices.Clone(m.turnOrder),
		Winner:    -1,
		Events:    m.history.Events(),
	}
	if len(m.lobby) == 1 {
		rec.Winner = m.lobby[0].ID
	}

	m.queue = append(m.queue, m.lobby...)
	m.lobby = nil
	m.history.Reset()
	m.inGame = false
	m.gameID = ""
	m.startedAt = time.Time{}
	m.turnOrder = nil
	m.current = -1
	for _, p := range m.players {
		p.acted = false
	}
	m.notifyLocked()

	log.Info().Str("game", rec.ID).Int("winner", rec.Winner).Int("events", len(rec.Events)).Msg("game over")
	return rec
}

// WaitForQueue blocks until at least n players are queued or ctx ends
func (m *Manager) WaitForQueue(ctx context.Context, n int) error {
	for {
		m.mu.Lock()
		if len(m.queue) >= n {
			m.mu.Unlock()
			return nil
		}
		changed := m.changed
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Current returns the head of the Lobby
func (m *Manager) Current() (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.lobby) == 0 {
		return nil, false
	}
	return m.lobby[0], true
}

// Player returns a connected player by id
func (m *Manager) Player(id int) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	return p, ok
}

// Queue returns the queued players in order
func (m *Manager) Queue() []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue)
}

// Lobby returns the Lobby in turn order
func (m *Manager) Lobby() []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lobby)
}

// LobbyIDs returns the ids of the Lobby in turn order
func (m *Manager) LobbyIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ids(m.lobby)
}

// QueueIDs returns the ids of the Queue in order
func (m *Manager) QueueIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ids(m.queue)
}

// LobbySize returns the number of Lobby members
func (m *Manager) LobbySize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lobby)
}

// InLobby reports whether id is a Lobby member
func (m *Manager) InLobby(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return indexOf(m.lobby, id) >= 0
}

// Connected returns the number of connected players
func (m *Manager) Connected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// History returns the durable events of the running game
func (m *Manager) History() []protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Events()
}

// Replay returns what a late joiner would be sent right now, together with
// the sequence number of the last broadcast it covers.
func (m *Manager) Replay() Replay {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := Replay{Seq: m.seq, InGame: m.inGame, GameID: m.gameID}
	if m.inGame {
		r.Messages = m.replayLocked()
	}
	return r
}

// Status returns a snapshot of the pools and the running game
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Connected:     len(m.players),
		Queue:         infos(m.queue),
		Lobby:         infos(m.lobby),
		InGame:        m.inGame,
		GameID:        m.gameID,
		TurnOrder:     slices.Clone(m.turnOrder),
		Current:       m.current,
		HistoryLength: m.history.Len(),
		Seq:           m.seq,
	}
	if m.inGame {
		started := m.startedAt
		s.StartedAt = &started
	}
	return s
}

// CloseAll closes every connection
func (m *Manager) CloseAll() {
	m.mu.Lock()
	players := m.playersLocked()
	m.mu.Unlock()

	for _, p := range players {
		_ = p.conn.Close()
	}
}

func (m *Manager) broadcastLocked(msg protocol.Message, durable bool) {
	frame := protocol.Encode(msg)
	for _, p := range m.players {
		if !p.sendFrame(frame) {
			log.Warn().Int("player", p.ID).Str("kind", msg.Kind().String()).Msg("dropped broadcast")
		}
	}
	if durable && m.inGame {
		m.history.Append(msg)
	}

	m.seq++
	ev := Event{Seq: m.seq, Message: msg, Durable: durable}
	for _, o := range m.observers {
		o.Observe(ev)
	}
}

func (m *Manager) replayLocked() []protocol.Message {
	msgs := make([]protocol.Message, 0, 2+len(m.turnOrder)+m.history.Len())
	msgs = append(msgs, protocol.GameStart{})
	for _, id := range m.turnOrder {
		msgs = append(msgs, protocol.PlayerTurn{ID: id})
	}
	msgs = append(msgs, m.history.Events()...)
	if m.current >= 0 {
		msgs = append(msgs, protocol.PlayerTurn{ID: m.current})
	}
	return msgs
}

func (m *Manager) allocateIDLocked() (int, bool) {
	for id := 0; id < m.idLimit; id++ {
		if _, used := m.players[id]; !used {
			return id, true
		}
	}
	return 0, false
}

func (m *Manager) playersLocked() []*Player {
	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// removeLocked drops p from its pool and reports whether it was in the Lobby
func (m *Manager) removeLocked(p *Player) bool {
	if i := indexOf(m.lobby, p.ID); i >= 0 {
		m.lobby = slices.Delete(m.lobby, i, i+1)
		return true
	}
	if i := indexOf(m.queue, p.ID); i >= 0 {
		m.queue = slices.Delete(m.queue, i, i+1)
	}
	return false
}

func (m *Manager) moveToLobbyLocked(queueIndex int) {
	p := m.queue[queueIndex]
	m.queue = slices.Delete(m.queue, queueIndex, queueIndex+1)
	m.lobby = append(m.lobby, p)
}

func (m *Manager) returnToQueueLocked(id int) bool {
	i := indexOf(m.lobby, id)
	if i < 0 {
		return false
	}
	p := m.lobby[i]
	m.lobby = slices.Delete(m.lobby, i, i+1)
	m.queue = append(m.queue, p)
	m.notifyLocked()
	return true
}

// notifyLocked wakes every WaitForQueue caller
func (m *Manager) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func indexOf(pool []*Player, id int) int {
	for i, p := range pool {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func ids(pool []*Player) []int {
	out := make([]int, len(pool))
	for i, p := range pool {
		out[i] = p.ID
	}
	return out
}

func infos(pool []*Player) []PlayerInfo {
	out := make([]PlayerInfo, len(pool))
	for i, p := range pool {
		out[i] = PlayerInfo{ID: p.ID, Name: p.Name, Acted: p.acted}
	}
	return out
}
