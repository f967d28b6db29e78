package engine

// Engine provides the board operations the game director relies on
type Engine interface {
	// Dimensions
	Width() int
	Height() int

	// Placement
	SetTile(x, y, tileID, rotation, playerID int) bool
	SetPlayerStartPosition(playerID, x, y, point int) bool

	// Queries
	Tile(x, y int) (Cell, bool)
	HasPlayerPosition(playerID int) bool
	PlayerPosition(playerID int) (TokenPosition, bool)
	HasPlacedTile(playerID int) bool
	IsEliminated(playerID int) bool
	OwnedStartTile(playerID int) (Position, bool)
	BorderPoints(x, y int) []int
	EmptyBorderCells() []Position

	// Movement
	AdvanceTokens(liveIDs []int) ([]TokenMove, []int)
	RestoreElimination(playerID int)
}

var _ Engine = (*Board)(nil)

// Board implements the Engine interface for a single game.
// It is not safe for concurrent use.
type Board struct {
	width      int
	height     int
	cells      []Cell
	positions  map[int]TokenPosition
	placed     map[int]bool
	eliminated map[int]bool
}

// NewBoard creates an empty board
func NewBoard(width, height int) *Board {
	return &Board{
		width:      width,
		height:     height,
		cells:      make([]Cell, width*height),
		positions:  make(map[int]TokenPosition),
		placed:     make(map[int]bool),
		eliminated: make(map[int]bool),
	}
}

// NewBoardFromRules creates an empty board sized by the rules
func NewBoardFromRules(rules *Rules) *Board {
	return NewBoard(rules.BoardWidth, rules.BoardHeight)
}

// Width returns the number of columns
func (b *Board) Width() int {
	return b.width
}

// Height returns the number of rows
func (b *Board) Height() int {
	return b.height
}

// InBounds reports whether (x, y) is on the board
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// Tile returns the cell at (x, y)
func (b *Board) Tile(x, y int) (Cell, bool) {
	if !b.InBounds(x, y) {
		return Cell{}, false
	}
	return b.cells[b.index(x, y)], true
}

// SetTile places a tile for a player. A player with a token may only place
// on the token's cell; a player without one places a single border tile.
func (b *Board) SetTile(x, y, tileID, rotation, playerID int) bool {
	if !b.InBounds(x, y) || !ValidTile(tileID) || !ValidRotation(rotation) {
		return false
	}
	if b.eliminated[playerID] {
		return false
	}
	idx := b.index(x, y)
	if b.cells[idx].Placed {
		return false
	}

	if pos, ok := b.positions[playerID]; ok {
		if pos.X != x || pos.Y != y {
			return false
		}
	} else {
		if !b.IsBorder(x, y) || b.placed[playerID] {
			return false
		}
	}

	b.cells[idx] = Cell{Placed: true, TileID: tileID, Rotation: rotation, Owner: playerID}
	b.placed[playerID] = true
	return true
}

// SetPlayerStartPosition puts a player's token on an edge point of the
// player's own tile. The point must face the board edge.
func (b *Board) SetPlayerStartPosition(playerID, x, y, point int) bool {
	if !b.InBounds(x, y) || point < 0 || point >= PointsPerTile {
		return false
	}
	if _, ok := b.positions[playerID]; ok || b.eliminated[playerID] {
		return false
	}
	cell := b.cells[b.index(x, y)]
	if !cell.Placed || cell.Owner != playerID {
		return false
	}
	if !b.onBorderSide(x, y, point) {
		return false
	}

	b.positions[playerID] = TokenPosition{X: x, Y: y, Point: point}
	return true
}

// HasPlayerPosition reports whether the player's token is on the board
func (b *Board) HasPlayerPosition(playerID int) bool {
	_, ok := b.positions[playerID]
	return ok
}

// PlayerPosition returns the player's token position
func (b *Board) PlayerPosition(playerID int) (TokenPosition, bool) {
	pos, ok := b.positions[playerID]
	return pos, ok
}

// HasPlacedTile reports whether the player has placed any tile
func (b *Board) HasPlacedTile(playerID int) bool {
	return b.placed[playerID]
}

// IsEliminated reports whether the player's token left the board
func (b *Board) IsEliminated(playerID int) bool {
	return b.eliminated[playerID]
}

// OwnedStartTile returns the border tile a player placed before choosing a
// start position.
func (b *Board) OwnedStartTile(playerID int) (Position, bool) {
	if b.HasPlayerPosition(playerID) {
		return Position{}, false
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			c := b.cells[b.index(x, y)]
			if c.Placed && c.Owner == playerID {
				return Position{X: x, Y: y}, true
			}
		}
	}
	return Position{}, false
}

// PlacedCount returns the number of tiles on the board
func (b *Board) PlacedCount() int {
	n := 0
	for _, c := range b.cells {
		if c.Placed {
			n++
		}
	}
	return n
}

func (b *Board) index(x, y int) int {
	return y*b.width + x
}
