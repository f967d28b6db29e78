package engine

// TileSide identifies one side of a cell
type TileSide int

const (
	SideBottom TileSide = iota
	SideRight
	SideTop
	SideLeft
)

// Side returns the side that holds a point
func Side(point int) TileSide {
	return TileSide((point % PointsPerTile) / 2)
}

// SidePoints returns the two points on a side
func SidePoints(side TileSide) [2]int {
	p := int(side) * 2
	return [2]int{p, p + 1}
}

// IsBorder reports whether (x, y) lies on the outer ring of the board
func (b *Board) IsBorder(x, y int) bool {
	if !b.InBounds(x, y) {
		return false
	}
	return x == 0 || y == 0 || x == b.width-1 || y == b.height-1
}

// BorderSides returns the sides of (x, y) that face the board edge
func (b *Board) BorderSides(x, y int) []TileSide {
	if !b.InBounds(x, y) {
		return nil
	}
	var sides []TileSide
	if y == b.height-1 {
		sides = append(sides, SideBottom)
	}
	if x == b.width-1 {
		sides = append(sides, SideRight)
	}
	if y == 0 {
		sides = append(sides, SideTop)
	}
	if x == 0 {
		sides = append(sides, SideLeft)
	}
	return sides
}

// BorderPoints returns the points of (x, y) that face the board edge.
// Corner cells expose both of their outer sides.
func (b *Board) BorderPoints(x, y int) []int {
	var points []int
	for _, side := range b.BorderSides(x, y) {
		sp := SidePoints(side)
		points = append(points, sp[0], sp[1])
	}
	return points
}

// EmptyBorderCells lists border cells without a tile, row by row
func (b *Board) EmptyBorderCells() []Position {
	var out []Position
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.IsBorder(x, y) && !b.cells[b.index(x, y)].Placed {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

// Restore places a tile without rule checks. It rebuilds a board from an
// event log whose moves were already accepted.
func (b *Board) Restore(x, y, tileID, rotation, playerID int) bool {
	if !b.InBounds(x, y) || !ValidTile(tileID) || !ValidRotation(rotation) {
		return false
	}
	b.cells[b.index(x, y)] = Cell{Placed: true, TileID: tileID, Rotation: rotation, Owner: playerID}
	b.placed[playerID] = true
	return true
}

// RestorePosition sets a token position without rule checks
func (b *Board) RestorePosition(playerID int, pos TokenPosition) {
	b.positions[playerID] = pos
}

// RestoreElimination marks a player as out of the game
func (b *Board) RestoreElimination(playerID int) {
	b.eliminated[playerID] = true
}

func (b *Board) onBorderSide(x, y, point int) bool {
	side := Side(point)
	for _, s := range b.BorderSides(x, y) {
		if s == side {
			return true
		}
	}
	return false
}
