package service

import (
	"math/rand/v2"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/protocol"
)

// FallbackMove picks a legal move for a player who ran out of time:
//   - with a token on the board, place a hand tile on the token's cell
//   - with a start tile but no token, enter it from a border point
//   - otherwise place a hand tile on a random empty border cell
//
// It returns false when no legal move exists.
func FallbackMove(board engine.Engine, playerID int, hand []int, rng *rand.Rand) (protocol.Message, bool) {
	if board.IsEliminated(playerID) {
		return nil, false
	}
	if pos, ok := board.PlayerPosition(playerID); ok {
		if len(hand) == 0 {
			return nil, false
		}
		return protocol.PlaceTile{
			ID:       playerID,
			TileID:   hand[rng.IntN(len(hand))],
			Rotation: rng.IntN(engine.Rotations),
			X:        pos.X,
			Y:        pos.Y,
		}, true
	}

	if cell, ok := board.OwnedStartTile(playerID); ok {
		points := board.BorderPoints(cell.X, cell.Y)
		if len(points) == 0 {
			return nil, false
		}
		return protocol.MoveToken{
			ID:       playerID,
			X:        cell.X,
			Y:        cell.Y,
			Position: points[rng.IntN(len(points))],
		}, true
	}

	empty := board.EmptyBorderCells()
	if len(empty) == 0 || len(hand) == 0 || board.HasPlacedTile(playerID) {
		return nil, false
	}
	cell := empty[rng.IntN(len(empty))]
	return protocol.PlaceTile{
		ID:       playerID,
		TileID:   hand[rng.IntN(len(hand))],
		Rotation: rng.IntN(engine.Rotations),
		X:        cell.X,
		Y:        cell.Y,
	}, true
}
