package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideAndNeighbor(t *testing.T) {
	tests := []struct {
		point  int
		side   TileSide
		nx, ny int
	}{
		{0, SideBottom, 2, 3},
		{1, SideBottom, 2, 3},
		{2, SideRight, 3, 2},
		{3, SideRight, 3, 2},
		{4, SideTop, 2, 1},
		{5, SideTop, 2, 1},
		{6, SideLeft, 1, 2},
		{7, SideLeft, 1, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.side, Side(tt.point))
		x, y := Neighbor(2, 2, tt.point)
		assert.Equal(t, tt.nx, x, "point %d", tt.point)
		assert.Equal(t, tt.ny, y, "point %d", tt.point)

		facing := facingPoint(tt.point)
		assert.Equal(t, tt.point, facingPoint(facing))
		assert.NotEqual(t, Side(tt.point), Side(facing))
	}
}

func TestAdvanceTokens_StopsOnEmptyCell(t *testing.T) {
	board := NewBoard(5, 5)
	straight, _ := lookup(t, straightTile)

	require.True(t, board.SetTile(0, 2, straight, 0, 1))
	require.True(t, board.SetPlayerStartPosition(1, 0, 2, 6))

	moves, eliminated := board.AdvanceTokens([]int{1})
	assert.Empty(t, eliminated)
	require.Len(t, moves, 1)
	assert.Equal(t, TokenMove{PlayerID: 1, Position: TokenPosition{X: 1, Y: 2, Point: 6}}, moves[0])

	// nothing to follow until another tile is placed
	moves, eliminated = board.AdvanceTokens([]int{1})
	assert.Empty(t, moves)
	assert.Empty(t, eliminated)
}

func TestAdvanceTokens_EliminatesAtEdge(t *testing.T) {
	board := NewBoard(5, 5)
	uTurn, _ := lookup(t, uTurnTile)

	require.True(t, board.SetTile(0, 2, uTurn, 0, 1))
	require.True(t, board.SetPlayerStartPosition(1, 0, 2, 6))

	moves, eliminated := board.AdvanceTokens([]int{1})
	assert.Equal(t, []int{1}, eliminated)
	require.Len(t, moves, 1)
	assert.True(t, moves[0].Eliminated)
	assert.Equal(t, TokenPosition{X: 0, Y: 2, Point: 7}, moves[0].Position)
	assert.True(t, board.IsEliminated(1))

	// eliminated tokens are not moved again
	moves, eliminated = board.AdvanceTokens([]int{1})
	assert.Empty(t, moves)
	assert.Empty(t, eliminated)
	assert.False(t, board.SetTile(0, 2, uTurn, 0, 1))
}

func TestAdvanceTokens_FollowsLongPath(t *testing.T) {
	board := NewBoard(5, 5)
	straight, _ := lookup(t, straightTile)
	uTurn, _ := lookup(t, uTurnTile)

	require.True(t, board.SetTile(0, 2, straight, 0, 1))
	require.True(t, board.SetPlayerStartPosition(1, 0, 2, 6))
	board.AdvanceTokens([]int{1})

	require.True(t, board.SetTile(1, 2, straight, 0, 1))
	moves, _ := board.AdvanceTokens([]int{1})
	require.Len(t, moves, 1)
	assert.Equal(t, TokenPosition{X: 2, Y: 2, Point: 6}, moves[0].Position)

	// the u-turn sends the token back across both straights and off the board
	require.True(t, board.SetTile(2, 2, uTurn, 0, 1))
	moves, eliminated := board.AdvanceTokens([]int{1})
	assert.Equal(t, []int{1}, eliminated)
	require.Len(t, moves, 1)
	assert.Equal(t, TokenPosition{X: 0, Y: 2, Point: 7}, moves[0].Position)
}

func TestAdvanceTokens_MovesEveryTokenOnThePlacedTile(t *testing.T) {
	board := NewBoard(5, 5)
	straight, _ := lookup(t, straightTile)

	// two players enter (1,2) from the left and from below
	require.True(t, board.SetTile(0, 2, straight, 0, 1))
	require.True(t, board.SetPlayerStartPosition(1, 0, 2, 6))
	require.True(t, board.SetTile(1, 4, straight, 0, 2))
	require.True(t, board.SetPlayerStartPosition(2, 1, 4, 0))
	moves, _ := board.AdvanceTokens([]int{1, 2})
	require.Len(t, moves, 2)
	assert.Equal(t, TokenPosition{X: 1, Y: 3, Point: 0}, moves[1].Position)

	require.True(t, board.SetTile(1, 3, straight, 0, 2))
	moves, _ = board.AdvanceTokens([]int{1, 2})
	require.Len(t, moves, 1)
	assert.Equal(t, 2, moves[0].PlayerID)
	assert.Equal(t, TokenPosition{X: 1, Y: 2, Point: 0}, moves[0].Position)

	// player 2 now shares the empty cell with player 1
	require.True(t, board.SetTile(1, 2, straight, 0, 2))
	moves, _ = board.AdvanceTokens([]int{1, 2})
	require.Len(t, moves, 2)
	assert.Equal(t, TokenPosition{X: 2, Y: 2, Point: 6}, moves[0].Position)
	assert.Equal(t, TokenPosition{X: 1, Y: 1, Point: 0}, moves[1].Position)
}

func TestAdvanceTokens_IgnoresUnknownAndUnpositioned(t *testing.T) {
	board := NewBoard(5, 5)
	require.True(t, board.SetTile(0, 2, 3, 0, 1))

	moves, eliminated := board.AdvanceTokens([]int{1, 2, 99})
	assert.Empty(t, moves)
	assert.Empty(t, eliminated)
}
