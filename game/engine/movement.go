package engine

// crossPoint maps an exit point to the entry point of the neighbouring cell
var crossPoint = [PointsPerTile]int{5, 4, 7, 6, 1, 0, 3, 2}

// AdvanceTokens moves every live token along the placed tiles until it
// reaches an empty cell or leaves the board. Only tokens that moved are
// reported. Tokens that left the board are returned as eliminated and are
// skipped by later calls.
func (b *Board) AdvanceTokens(liveIDs []int) ([]TokenMove, []int) {
	var moves []TokenMove
	var eliminated []int

	for _, id := range liveIDs {
		pos, ok := b.positions[id]
		if !ok || b.eliminated[id] {
			continue
		}

		final, moved, out := b.follow(pos)
		if !moved {
			continue
		}
		b.positions[id] = final
		if out {
			b.eliminated[id] = true
			eliminated = append(eliminated, id)
		}
		moves = append(moves, TokenMove{PlayerID: id, Position: final, Eliminated: out})
	}

	return moves, eliminated
}

// follow traces a path from pos. It reports the final position, whether the
// token moved at all and whether it left the board.
func (b *Board) follow(pos TokenPosition) (TokenPosition, bool, bool) {
	moved := false
	limit := len(b.cells)*PointsPerTile + 1

	for step := 0; step < limit; step++ {
		cell := b.cells[b.index(pos.X, pos.Y)]
		if !cell.Placed {
			return pos, moved, false
		}
		exit := tiles[cell.TileID].Exit(pos.Point, cell.Rotation)
		moved = true

		nx, ny := Neighbor(pos.X, pos.Y, exit)
		if !b.InBounds(nx, ny) {
			return TokenPosition{X: pos.X, Y: pos.Y, Point: exit}, true, true
		}
		pos = TokenPosition{X: nx, Y: ny, Point: facingPoint(exit)}
	}

	// paths are reversible, so a walk that started on an open point never cycles
	return pos, moved, false
}

// Neighbor returns the cell across the side that holds point
func Neighbor(x, y, point int) (int, int) {
	switch Side(point) {
	case SideBottom:
		return x, y + 1
	case SideRight:
		return x + 1, y
	case SideTop:
		return x, y - 1
	default:
		return x - 1, y
	}
}

// facingPoint returns the entry point across from an exit point
func facingPoint(point int) int {
	return crossPoint[point]
}
