package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/service"
	"github.com/wricardo/tiles-server/protocol"
)

const readChunkSize = 4096

// Bot is a game client that answers each of its turns with a legal move
type Bot struct {
	conn   net.Conn
	mirror *service.Mirror
	rng    *rand.Rand
	think  time.Duration
	buf    protocol.Buffer
}

// NewBot wraps an established connection. think delays every move.
func NewBot(conn net.Conn, rules *engine.Rules, rng *rand.Rand, think time.Duration) *Bot {
	return &Bot{
		conn:   conn,
		mirror: service.NewMirror(rules.BoardWidth, rules.BoardHeight),
		rng:    rng,
		think:  think,
	}
}

// Play reads the broadcast stream and moves whenever it is this bot's turn.
// It returns nil when ctx ends and an error when the server hangs up.
func (b *Bot) Play(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { b.conn.Close() })
	defer stop()

	chunk := make([]byte, readChunkSize)
	for {
		n, err := b.conn.Read(chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bot %d: %w", b.mirror.Self(), err)
		}
		b.buf.Write(chunk[:n])

		for {
			msg, err := b.buf.Next()
			if err != nil {
				log.Warn().Err(err).Int("bot", b.mirror.Self()).Msg("dropped malformed frame")
				continue
			}
			if msg == nil {
				break
			}
			if err := b.handle(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg protocol.Message) error {
	b.mirror.Apply(msg)

	switch msg := msg.(type) {
	case protocol.Welcome:
		log.Info().Int("bot", msg.ID).Msg("joined")
	case protocol.GameStart:
		log.Debug().Int("bot", b.mirror.Self()).Msg("game started")
	case protocol.PlayerEliminated:
		if msg.ID == b.mirror.Self() {
			log.Info().Int("bot", msg.ID).Msg("eliminated")
		}
	case protocol.PlayerTurn:
		if b.mirror.MyTurn() {
			return b.move(ctx)
		}
	}
	return nil
}

func (b *Bot) move(ctx context.Context) error {
	if b.think > 0 {
		timer := time.NewTimer(b.think)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	msg, ok := service.FallbackMove(b.mirror.Board(), b.mirror.Self(), b.mirror.Hand(), b.rng)
	if !ok {
		// the server forfeits us when the turn times out
		log.Debug().Int("bot", b.mirror.Self()).Msg("no legal move")
		return nil
	}

	log.Debug().Int("bot", b.mirror.Self()).Str("kind", msg.Kind().String()).Msg("moving")
	if _, err := b.conn.Write(protocol.Encode(msg)); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return fmt.Errorf("bot %d: write: %w", b.mirror.Self(), err)
	}
	return nil
}
