package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/protocol"
)

// MinPlayers is the smallest Lobby that can start a game
const MinPlayers = 2

var errLobbyTooSmall = errors.New("lobby too small")

// Director forms games from the Queue and runs them turn by turn
type Director struct {
	pools   Pools
	rules   *engine.Rules
	archive session.GameArchive
	bag     engine.TileBag
	rng     *rand.Rand
	newID   func() string

	// board belongs to the goroutine running Run
	board engine.Engine
}

// DirectorOption configures a Director
type DirectorOption func(*Director)

// WithArchive stores every finished game
func WithArchive(archive session.GameArchive) DirectorOption {
	return func(d *Director) { d.archive = archive }
}

// WithTileBag sets the source of dealt tiles
func WithTileBag(bag engine.TileBag) DirectorOption {
	return func(d *Director) { d.bag = bag }
}

// WithRand sets the random source for lobby selection and fallback moves
func WithRand(rng *rand.Rand) DirectorOption {
	return func(d *Director) { d.rng = rng }
}

// WithGameIDs sets the game id generator
func WithGameIDs(newID func() string) DirectorOption {
	return func(d *Director) { d.newID = newID }
}

// NewDirector creates a director for the given pools and rules
func NewDirector(pools Pools, rules *engine.Rules, opts ...DirectorOption) *Director {
	d := &Director{
		pools: pools,
		rules: rules,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.bag == nil {
		d.bag = engine.NewRandomBag(rand.New(rand.NewPCG(d.rng.Uint64(), d.rng.Uint64())))
	}
	return d
}

// Run forms and plays games until ctx is cancelled
func (d *Director) Run(ctx context.Context) error {
	log.Info().
		Str("rules", d.rules.Name).
		Int("player_limit", d.rules.PlayerLimit).
		Dur("turn_timeout", d.rules.TurnTimeout()).
		Msg("director started")

	for {
		err := d.formLobby(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Info().Err(err).Msg("lobby formation restarted")
			continue
		}

		d.playGame(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// formLobby waits for enough queued players, counts down and picks the
// Lobby at random.
func (d *Director) formLobby(ctx context.Context) error {
	if err := d.pools.WaitForQueue(ctx, MinPlayers); err != nil {
		return err
	}

	log.Info().Ints("queue", d.pools.QueueIDs()).Dur("delay", d.rules.CountdownDelay()).Msg("countdown started")
	d.pools.Broadcast(protocol.Countdown{}, false)
	if delay := d.rules.CountdownDelay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	lobby := d.pools.FormLobby(d.rules.PlayerLimit, d.rng.IntN)
	if len(lobby) < MinPlayers {
		d.pools.DisbandLobby()
		return errLobbyTooSmall
	}
	return nil
}

// playGame runs one game from dealing to game over
func (d *Director) playGame(ctx context.Context) {
	gameID := d.newID()
	d.board = engine.NewBoardFromRules(d.rules)
	d.pools.BeginGame(gameID)

	for _, p := range d.pools.Lobby() {
		d.deal(p)
	}

	var announced *session.Player
	var deadline time.Time
	moved := false

	for d.pools.LobbySize() > 1 && ctx.Err() == nil {
		p, ok := d.pools.Current()
		if !ok {
			break
		}
		if p != announced || moved {
			announced = p
			p.DiscardInput()
			d.pools.AnnounceTurn(p.ID)
			deadline = time.Now().Add(d.rules.TurnTimeout())
		}
		moved = d.turn(ctx, p, deadline)
	}

	rec := d.pools.EndGame()
	rec.Rules = d.rules.Name
	d.board = nil

	if d.archive != nil && rec.ID != "" {
		if err := d.archive.Save(rec); err != nil {
			log.Error().Err(err).Str("game", rec.ID).Msg("failed to archive game")
		}
	}
}

// deal gives a Lobby member a fresh hand, one tile per message
func (d *Director) deal(p *session.Player) {
	hand := make([]int, 0, d.rules.HandSize)
	for i := 0; i < d.rules.HandSize; i++ {
		tile := d.bag.Draw()
		hand = append(hand, tile)
		p.Send(protocol.AddTileToHand{TileID: tile})
	}
	p.SetHand(hand)
}

// turn waits for one move from p and applies it. It reports whether the
// move was accepted.
func (d *Director) turn(ctx context.Context, p *session.Player, deadline time.Time) (moved bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("player", p.ID).Msg("turn failed")
			moved = false
		}
	}()

	msg, fallback, ok := d.awaitMove(ctx, p, deadline)
	if !ok {
		return false
	}
	if !d.pools.InLobby(p.ID) {
		return false
	}

	if fallback && msg == nil {
		log.Warn().Int("player", p.ID).Msg("no fallback move available")
		d.forfeit(p)
		return true
	}

	if d.apply(p, msg) {
		return true
	}
	if !d.pools.InLobby(p.ID) {
		return false
	}
	if fallback {
		log.Warn().Int("player", p.ID).Str("kind", msg.Kind().String()).Msg("fallback move rejected")
		d.forfeit(p)
		return true
	}
	log.Debug().Int("player", p.ID).Str("kind", msg.Kind().String()).Msg("move rejected")
	return false
}

// awaitMove returns the next candidate move of p. On deadline it returns a
// synthesized move with fallback set. ok is false when p left or ctx ended.
func (d *Director) awaitMove(ctx context.Context, p *session.Player, deadline time.Time) (msg protocol.Message, fallback bool, ok bool) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		m, err := p.NextMessage()
		if err != nil {
			log.Debug().Err(err).Int("player", p.ID).Msg("discarded malformed input")
			continue
		}
		if m != nil {
			if d.acceptable(p, m) {
				return m, false, true
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil, false, false
		case <-p.Done():
			return nil, false, false
		case chunk := <-p.Inbox():
			p.Feed(chunk)
		case <-timer.C:
			move, ok := FallbackMove(d.board, p.ID, p.Hand(), d.rng)
			if !ok {
				return nil, true, true
			}
			log.Info().Int("player", p.ID).Str("kind", move.Kind().String()).Msg("turn timed out, playing fallback")
			return move, true, true
		}
	}
}

// acceptable filters out messages that cannot be a move by p
func (d *Director) acceptable(p *session.Player, m protocol.Message) bool {
	switch m.(type) {
	case protocol.PlaceTile, protocol.MoveToken:
		id, _ := protocol.PlayerID(m)
		return id == p.ID
	default:
		return false
	}
}

// apply validates and applies a move, then runs the post-move steps
func (d *Director) apply(p *session.Player, msg protocol.Message) bool {
	switch m := msg.(type) {
	case protocol.PlaceTile:
		if !p.HasTile(m.TileID) {
			return false
		}
		committed := d.pools.CommitMove(p, m, func() bool {
			return d.board.SetTile(m.X, m.Y, m.TileID, m.Rotation, p.ID)
		})
		if !committed {
			return false
		}

		p.RemoveTile(m.TileID)
		fresh := d.bag.Draw()
		p.AddTile(fresh)
		p.Send(protocol.AddTileToHand{TileID: fresh})

	case protocol.MoveToken:
		committed := d.pools.CommitMove(p, m, func() bool {
			return !d.board.HasPlayerPosition(p.ID) &&
				d.board.SetPlayerStartPosition(p.ID, m.X, m.Y, m.Position)
		})
		if !committed {
			return false
		}

	default:
		return false
	}

	d.afterMove(p)
	return true
}

// afterMove moves tokens, passes the turn and removes eliminated players
func (d *Director) afterMove(p *session.Player) {
	moves, eliminated := d.board.AdvanceTokens(d.pools.LobbyIDs())
	for _, mv := range moves {
		d.pools.Broadcast(protocol.MoveToken{
			ID:       mv.PlayerID,
			X:        mv.Position.X,
			Y:        mv.Position.Y,
			Position: mv.Position.Point,
		}, true)
	}

	d.pools.AdvanceTurn(p.ID)

	for _, id := range eliminated {
		d.pools.Eliminate(id)
	}
}

// forfeit removes a player that cannot make any legal move
func (d *Director) forfeit(p *session.Player) {
	d.board.RestoreElimination(p.ID)
	d.pools.AdvanceTurn(p.ID)
	d.pools.Eliminate(p.ID)
}
