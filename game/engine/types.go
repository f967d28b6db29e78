package engine

const (
	// Board and player defaults of the classic game
	DefaultBoardWidth  = 5
	DefaultBoardHeight = 5
	DefaultPlayerLimit = 4
	DefaultHandSize    = 4

	// IDLimit bounds player identifiers to [0, IDLimit)
	IDLimit = 256

	// PointsPerTile is the number of path endpoints on a tile edge
	PointsPerTile = 8

	// Rotations is the number of distinct quarter turns
	Rotations = 4

	// Validation constants
	MinBoardSize   = 3
	MaxBoardSize   = 16
	MinPlayerLimit = 2
	MaxPlayerLimit = 8
	MinHandSize    = 1
	MaxHandSize    = 8
)

// Position represents x,y coordinates of a board cell
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TokenPosition is a token's cell and the edge point it occupies
type TokenPosition struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Point int `json:"point"`
}

// Cell returns the board cell holding the token
func (p TokenPosition) Cell() Position {
	return Position{X: p.X, Y: p.Y}
}

// Cell represents a single board cell
type Cell struct {
	Placed   bool `json:"placed"`
	TileID   int  `json:"tile_id"`
	Rotation int  `json:"rotation"`
	Owner    int  `json:"owner"`
}

// TokenMove reports a token's final position after movement
type TokenMove struct {
	PlayerID   int           `json:"player_id"`
	Position   TokenPosition `json:"position"`
	Eliminated bool          `json:"eliminated"`
}
